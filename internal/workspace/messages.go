package workspace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskmind/internal/logging"
)

// CreateConversation starts a new conversation for the given user.
func (s *Store) CreateConversation(creds Credentials, title string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Conversation{
		ID:        uuid.NewString(),
		UserID:    creds.UserID,
		Title:     title,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	logging.StoreDebug("Created conversation %s for user %s", c.ID, creds.UserID)
	return c, nil
}

// GetConversation loads a conversation owned by the caller.
func (s *Store) GetConversation(creds Credentials, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Conversation
	var summarized sql.NullInt64
	var created int64
	err := s.db.QueryRow(
		`SELECT id, user_id, title, summary, last_summarized_at, created_at
		 FROM conversations WHERE id = ? AND user_id = ?`,
		id, creds.UserID,
	).Scan(&c.ID, &c.UserID, &c.Title, &c.Summary, &summarized, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	if summarized.Valid {
		t := time.UnixMilli(summarized.Int64)
		c.LastSummarizedAt = &t
	}
	c.CreatedAt = time.UnixMilli(created)
	return &c, nil
}

// ConversationSummary returns the current compacted summary, empty if the
// conversation has never been summarized.
func (s *Store) ConversationSummary(conversationID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary string
	err := s.db.QueryRow(
		`SELECT summary FROM conversations WHERE id = ?`, conversationID,
	).Scan(&summary)
	if err != nil {
		return "", fmt.Errorf("failed to load summary: %w", err)
	}
	return summary, nil
}

// AppendMessage stores one message at the tail of a conversation.
func (s *Store) AppendMessage(conversationID, role, content string, attachments []Attachment) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Attachments:    attachments,
		CreatedAt:      time.Now(),
	}
	attachJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	if attachments == nil {
		attachJSON = []byte("[]")
	}

	_, err = s.db.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, attachments_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, string(attachJSON), m.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return m, nil
}

// CountMessages returns the number of messages in a conversation.
func (s *Store) CountMessages(conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// History returns a conversation's messages in chronological order.
func (s *Store) History(conversationID string) ([]Message, error) {
	timer := logging.StartTimer(logging.CategoryStore, "History")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, conversation_id, role, content, attachments_json, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MessagesExceptRecent returns all messages except the most recent keep,
// in chronological order. This is the compaction candidate set.
func (s *Store) MessagesExceptRecent(conversationID string, keep int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, conversation_id, role, content, attachments_json, created_at
		 FROM messages WHERE conversation_id = ?
		   AND id NOT IN (
		     SELECT id FROM messages WHERE conversation_id = ?
		     ORDER BY created_at DESC, id DESC LIMIT ?
		   )
		 ORDER BY created_at ASC, id ASC`,
		conversationID, conversationID, keep)
	if err != nil {
		return nil, fmt.Errorf("failed to query old messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// NthRecentCreatedAt returns the creation time of the n-th most recent
// message. This is the prune boundary: everything strictly older goes.
func (s *Store) NthRecentCreatedAt(conversationID string, n int) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var created int64
	err := s.db.QueryRow(
		`SELECT created_at FROM messages WHERE conversation_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT 1 OFFSET ?`,
		conversationID, n-1,
	).Scan(&created)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find boundary message: %w", err)
	}
	return time.UnixMilli(created), nil
}

// SaveSummary durably persists the compacted summary and stamps the
// conversation. Must succeed before any prune.
func (s *Store) SaveSummary(conversationID, summary string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE conversations SET summary = ?, last_summarized_at = ? WHERE id = ?`,
		summary, at.UnixMilli(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	logging.StoreDebug("Saved summary for conversation %s (%d chars)", conversationID, len(summary))
	return nil
}

// DeleteMessagesBefore removes messages created strictly before the cutoff.
// Returns the number of deleted messages.
func (s *Store) DeleteMessagesBefore(conversationID string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM messages WHERE conversation_id = ? AND created_at < ?`,
		conversationID, cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages: %w", err)
	}
	n, _ := res.RowsAffected()
	logging.StoreDebug("Pruned %d messages from conversation %s", n, conversationID)
	return n, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		var attachJSON string
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &attachJSON, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if attachJSON != "" && attachJSON != "[]" {
			if err := json.Unmarshal([]byte(attachJSON), &m.Attachments); err != nil {
				logging.StoreDebug("Skipping malformed attachments on message %s: %v", m.ID, err)
			}
		}
		m.CreatedAt = time.UnixMilli(created)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
