package adapters

import (
	"context"
	"database/sql"
	"fmt"

	ports "github.com/ragstack/medrag/medrag/qa/ports"
)

// LibSQLConversationStore implements ConversationStore on an embedded libsql
// database. Save replaces the session's rows inside one transaction, so a
// reader never observes a partially appended history.
type LibSQLConversationStore struct {
	db *sql.DB
}

func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{db: db}
}

// Load returns the session's entries in chronological order, or
// ErrSessionNotFound when no rows exist.
func (s *LibSQLConversationStore) Load(ctx context.Context, sessionID string) ([]ports.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, created_at
		FROM conversation_entries
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []ports.Entry
	for rows.Next() {
		var e ports.Entry
		if err := rows.Scan(&e.Question, &e.Answer, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning conversation entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, ports.ErrSessionNotFound
	}
	return entries, nil
}

// Save writes the full entry list for a session, replacing whatever was
// stored before.
func (s *LibSQLConversationStore) Save(ctx context.Context, sessionID string, entries []ports.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save for %s: %w", sessionID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clearing conversation %s: %w", sessionID, err)
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_entries (session_id, seq, question, answer, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, i, e.Question, e.Answer, e.Timestamp); err != nil {
			return fmt.Errorf("inserting conversation entry %d for %s: %w", i, sessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing conversation %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes all persisted entries for a session.
func (s *LibSQLConversationStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversation_entries WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", sessionID, err)
	}
	return nil
}

var _ ports.ConversationStore = (*LibSQLConversationStore)(nil)
