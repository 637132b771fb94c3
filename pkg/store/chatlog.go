package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatRole mirrors the persisted chatbot role column.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "USER"
	ChatRoleAgent ChatRole = "AGENT"
)

// ChatMessageType mirrors the persisted chatbot type column; VOICE is
// reserved for the voice STT/TTS surface, which sits outside this core.
type ChatMessageType string

const (
	ChatMessageTypeGenerate ChatMessageType = "GENERATE"
	ChatMessageTypeVoice    ChatMessageType = "VOICE"
)

// OpenSession inserts a new session row and returns its durable id. The
// dialog controller calls this once, at init_context, and never again for
// that connection's lifetime.
func (c *Client) OpenSession(ctx context.Context, memberID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO session (id, member_id) VALUES ($1, $2)`, id, memberID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to open session: %w", err)
	}
	return id, nil
}

// CloseSession stamps a session's closed_at on disconnect. Best-effort: the
// core's control flow never depends on this succeeding.
func (c *Client) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE session SET closed_at = $2 WHERE id = $1`, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// AppendChatMessage records one chat turn. The core's own control flow never
// reads this back within a session; it exists purely for persisted history.
func (c *Client) AppendChatMessage(ctx context.Context, sessionID uuid.UUID, role ChatRole, content string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_message (session_id, role, msg_type, content) VALUES ($1, $2, $3, $4)`,
		sessionID, role, ChatMessageTypeGenerate, content)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}
