package postgres

import (
	"context"
	"fmt"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
)

// ChatRepository implements mentor.Repository for PostgreSQL.
type ChatRepository struct {
	conn *Connection
}

var _ mentor.Repository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(conn *Connection) *ChatRepository {
	return &ChatRepository{conn: conn}
}

// Append stores one message.
func (r *ChatRepository) Append(ctx context.Context, m *mentor.Message) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO chat_messages (id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, string(m.Role), m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

// Recent returns the latest limit messages, oldest first.
func (r *ChatRepository) Recent(ctx context.Context, userID string, limit int) ([]mentor.Message, error) {
	if limit <= 0 {
		return []mentor.Message{}, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT id, user_id, role, content, created_at FROM (
			SELECT id, user_id, role, content, created_at, seq
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT $2
		) latest
		ORDER BY created_at, seq
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	out := make([]mentor.Message, 0, limit)
	for rows.Next() {
		var (
			m    mentor.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.Role = mentor.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
