package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eugenenazirov/event-tables/internal/calculator"
)

const (
	// DriverMemory keeps records in process memory.
	DriverMemory = "memory"
	// DriverSQLite persists records to a SQLite database.
	DriverSQLite = "sqlite"

	// DefaultSize is the number of records the memory store retains.
	DefaultSize = 1000
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("calculation not found")
	// ErrInvalidRecord is returned when a record cannot be stored.
	ErrInvalidRecord = errors.New("calculation record requires an id")
	// ErrUnknownDriver is returned by Open for unsupported drivers.
	ErrUnknownDriver = errors.New("history driver must be memory or sqlite")
)

// Record is a stored calculation.
type Record struct {
	ID        string
	RequestID string
	Plan      calculator.Plan
	CreatedAt time.Time
}

// Store persists calculation records.
type Store interface {
	Save(ctx context.Context, rec Record) error
	// SaveAll stores recs atomically, in order.
	SaveAll(ctx context.Context, recs []Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns at most limit records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// NewRecord wraps a plan in a record with a fresh id.
func NewRecord(plan calculator.Plan, requestID string, now time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Plan:      plan,
		CreatedAt: now.UTC(),
	}
}

// Open creates the store selected by driver.
func Open(driver, dsn string, size int) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(size), nil
	case DriverSQLite:
		store, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite history: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validateRecord(rec Record) error {
	if rec.ID == "" {
		return ErrInvalidRecord
	}
	return nil
}

func validateRecords(recs []Record) error {
	for i, rec := range recs {
		if err := validateRecord(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
