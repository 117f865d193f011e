package storage

import (
	"fmt"
	"sync"

	"github.com/eugenenazirov/event-tables/internal/calculator"
)

const (
	defaultTableCapacity = calculator.DefaultTableCapacity
	maxTableCapacity     = calculator.MaxTableCapacity
)

var (
	// ErrInvalidTableCapacity indicates the provided capacity violates validation rules.
	ErrInvalidTableCapacity = fmt.Errorf("table capacity must be an integer between 1 and %d", maxTableCapacity)
)

// Storage provides access to the seating settings used by the calculator.
type Storage interface {
	GetTableCapacity() (int, error)
	SetTableCapacity(capacity int) error
}

// MemoryStorage keeps the table capacity in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	capacity int
}

// NewMemoryStorage initialises storage with the default table capacity.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		capacity: defaultTableCapacity,
	}
}

// DefaultTableCapacity returns the number of seats per table used when nothing is configured.
func DefaultTableCapacity() int {
	return defaultTableCapacity
}

// GetTableCapacity returns the currently configured seats per table.
func (s *MemoryStorage) GetTableCapacity() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.capacity, nil
}

// SetTableCapacity validates and stores the provided capacity.
func (s *MemoryStorage) SetTableCapacity(capacity int) error {
	if err := validateTableCapacity(capacity); err != nil {
		return err
	}

	s.mu.Lock()
	s.capacity = capacity
	s.mu.Unlock()

	return nil
}

func validateTableCapacity(capacity int) error {
	if capacity <= 0 || capacity > maxTableCapacity {
		return ErrInvalidTableCapacity
	}
	return nil
}
