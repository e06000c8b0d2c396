package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// HistoryManager keeps per-session conversation logs in memory, bounded to
// the most recent maxLen entries, and mirrors every mutation to the backing
// store. Each session is serialized by its own mutex so concurrent requests
// on the same session id never lose an append; distinct sessions proceed in
// parallel.
type HistoryManager struct {
	store  ports.ConversationStore
	maxLen int
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu      sync.Mutex
	loaded  bool
	entries []ports.Entry
}

func NewHistoryManager(store ports.ConversationStore, maxLen int, logger zerolog.Logger) *HistoryManager {
	if maxLen <= 0 {
		maxLen = 10
	}
	return &HistoryManager{
		store:    store,
		maxLen:   maxLen,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (m *HistoryManager) session(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &session{}
		m.sessions[id] = s
	}
	return s
}

// ensureLoaded populates a session from the store on first access. Must be
// called with s.mu held.
func (m *HistoryManager) ensureLoaded(ctx context.Context, id string, s *session) {
	if s.loaded {
		return
	}
	s.loaded = true
	entries, err := m.store.Load(ctx, id)
	switch {
	case err == nil:
		s.entries = entries
	case errors.Is(err, ports.ErrSessionNotFound):
		// new session
	default:
		m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to load conversation history")
	}
}

// Append records a question/answer pair, evicts the oldest entries beyond the
// bound, and persists the full list. Store errors are logged, not surfaced:
// the answer has already been produced and losing a history write must not
// fail the query.
func (m *HistoryManager) Append(ctx context.Context, id, question, answer string) {
	s := m.session(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ensureLoaded(ctx, id, s)
	s.entries = append(s.entries, ports.Entry{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	})
	if len(s.entries) > m.maxLen {
		s.entries = s.entries[len(s.entries)-m.maxLen:]
	}

	saved := make([]ports.Entry, len(s.entries))
	copy(saved, s.entries)
	if err := m.store.Save(ctx, id, saved); err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Msg("failed to persist conversation history")
	}
}

// Entries returns a copy of the session's history in chronological order.
func (m *HistoryManager) Entries(ctx context.Context, id string) []ports.Entry {
	s := m.session(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ensureLoaded(ctx, id, s)
	out := make([]ports.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Formatted renders the session history as a plain transcript for prompt
// embedding.
func (m *HistoryManager) Formatted(ctx context.Context, id string) string {
	var sb strings.Builder
	for _, e := range m.Entries(ctx, id) {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n\n", e.Question, e.Answer)
	}
	return sb.String()
}

// Delete removes the session from memory and from the backing store.
func (m *HistoryManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ports.ErrSessionNotFound) {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	return nil
}
