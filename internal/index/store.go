package index

import (
	"sync"
)

// Store is the authoritative in-memory mapping from relative path to
// FileRecord for the lifetime of the process. It never touches disk or
// network; persistence is the caller's responsibility.
//
// Iteration via All is in insertion order so results are deterministic for a
// fixed snapshot. Replacing an existing record keeps its original position.
type Store struct {
	mu      sync.RWMutex
	records map[string]*FileRecord
	order   []string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*FileRecord),
	}
}

// Put inserts or replaces the record keyed by its RelPath.
func (s *Store) Put(record *FileRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.RelPath]; !exists {
		s.order = append(s.order, record.RelPath)
	}
	s.records[record.RelPath] = record
}

// Get returns the record for relPath, or ok=false when absent.
func (s *Store) Get(relPath string) (*FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[relPath]
	return record, ok
}

// Remove deletes the entry for relPath. Absence is not an error.
func (s *Store) Remove(relPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[relPath]; !exists {
		return
	}
	delete(s.records, relPath)
	for i, p := range s.order {
		if p == relPath {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// All returns a snapshot of every record in insertion order.
func (s *Store) All() []*FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*FileRecord, 0, len(s.order))
	for _, p := range s.order {
		records = append(records, s.records[p])
	}
	return records
}

// Paths returns a snapshot of every key in insertion order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, len(s.order))
	copy(paths, s.order)
	return paths
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Clear removes every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*FileRecord)
	s.order = nil
}
