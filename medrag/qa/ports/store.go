package qaports

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned by Load when no history exists for a session.
var ErrSessionNotFound = errors.New("qa: session not found")

// Entry is a single question/answer turn. Immutable once created.
type Entry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationStore persists per-session conversation history. Save always
// receives the full, already-bounded entry list for the session so the stored
// state is never a partially appended record.
type ConversationStore interface {
	Load(ctx context.Context, sessionID string) ([]Entry, error)
	Save(ctx context.Context, sessionID string, entries []Entry) error
	Delete(ctx context.Context, sessionID string) error
}
