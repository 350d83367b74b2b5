package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/intheflow/pkg/domain"
)

// Store implements ports.CanvasStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkpoint),
	}
}

func clone(cp *domain.Checkpoint) *domain.Checkpoint {
	c := *cp
	c.Nodes = slices.Clone(cp.Nodes)
	c.Connections = slices.Clone(cp.Connections)
	return &c
}

// Save persists the checkpoint in memory.
func (s *Store) Save(ctx context.Context, sessionID string, cp *domain.Checkpoint) error {
	copied := clone(cp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load retrieves the checkpoint from memory.
// The result is a copy so callers cannot mutate the stored value.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(cp), nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored sessions in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
