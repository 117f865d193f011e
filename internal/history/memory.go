package history

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent records in a bounded ring.
type MemoryStore struct {
	mu      sync.Mutex
	size    int
	records []Record
	index   map[string]int
	next    int
	full    bool
}

// NewMemoryStore creates a store retaining at most size records.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryStore{
		size:    size,
		records: make([]Record, size),
		index:   make(map[string]int, size),
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.append(rec)
	return nil
}

// SaveAll appends recs under a single lock so concurrent writers cannot interleave them.
func (s *MemoryStore) SaveAll(_ context.Context, recs []Record) error {
	if err := validateRecords(recs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		s.append(rec)
	}
	return nil
}

func (s *MemoryStore) append(rec Record) {
	if s.full {
		evicted := s.records[s.next].ID
		if s.index[evicted] == s.next {
			delete(s.index, evicted)
		}
	}
	s.records[s.next] = rec
	s.index[rec.ID] = s.next
	s.next = (s.next + 1) % s.size
	if s.next == 0 {
		s.full = true
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.records[pos], nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.next
	if s.full {
		count = s.size
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		pos := (s.next - i + s.size) % s.size
		out = append(out, s.records[pos])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
