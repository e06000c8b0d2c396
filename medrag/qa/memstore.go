package qa

import (
	"context"
	"sync"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// MemoryStore is an in-memory ConversationStore used when no database is
// configured. Contents do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]ports.Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]ports.Entry)}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]ports.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.sessions[sessionID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	out := make([]ports.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, entries []ports.Entry) error {
	saved := make([]ports.Entry, len(entries))
	copy(saved, entries)
	s.mu.Lock()
	s.sessions[sessionID] = saved
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

var _ ports.ConversationStore = (*MemoryStore)(nil)
