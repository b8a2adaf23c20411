// Package inmemory provides a map-backed session store, used in tests and
// single-process deployments.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/adaptive-rag/session"
)

// Store keeps session records in process memory.
type Store struct {
	mu      sync.RWMutex
	records map[string]*session.Record
}

// New creates an empty in-memory session store.
func New() *Store {
	return &Store{records: make(map[string]*session.Record)}
}

// Save stores a deep copy of the record.
func (s *Store) Save(ctx context.Context, record *session.Record) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("session record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record.Clone()
	return nil
}

// Load returns a deep copy of the record with the given ID.
func (s *Store) Load(ctx context.Context, id string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return record.Clone(), nil
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(s.records, id)
	return nil
}

// List returns all stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids, nil
}
