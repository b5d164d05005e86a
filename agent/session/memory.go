package session

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps histories in process memory, keyed by session id.
// Lifecycle is tied to the process: no eviction, no size cap, nothing
// survives a restart. Safe for concurrent use across session ids.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Message),
	}
}

func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msgs ...Message) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], msgs...)
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}
