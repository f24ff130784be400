// Package memory provides an in-memory session store, mainly for tests and
// single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/espalierhq/espalier/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Record
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Record),
	}
}

// Save persists the record in memory.
func (s *Store) Save(ctx context.Context, actorKey string, rec *domain.Record) error {
	copied := *rec
	copied.LastKwargs = rec.LastKwargs.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[actorKey] = &copied
	return nil
}

// Load retrieves the record from memory.
func (s *Store) Load(ctx context.Context, actorKey string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[actorKey]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// copy on read so the caller cannot mutate store state by pointer
	ret := *rec
	ret.LastKwargs = rec.LastKwargs.Clone()
	return &ret, nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, actorKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, actorKey)
	return nil
}

// List returns the actor keys with stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}
