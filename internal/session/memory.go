package session

import (
	"context"
	"sync"
)

// MemoryStore is the in-process fallback used when no durable store is
// configured. Histories live for the process lifetime with no TTL and no
// eviction, so the map grows without bound under a churning session
// population. That is a known resource leak accepted only because this is
// the explicitly degraded mode.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.sessions[sessionID]
	if !ok {
		return []Turn{}, nil
	}
	out := make([]Turn, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID string, history []Turn) error {
	history = truncate(history)
	out := make([]Turn, len(history))
	copy(out, history)
	s.mu.Lock()
	s.sessions[sessionID] = out
	s.mu.Unlock()
	return nil
}
