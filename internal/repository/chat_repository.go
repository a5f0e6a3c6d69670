package repository

import (
	"context"
	"database/sql"

	"github.com/novabanka/branch-appointments/internal/model"
)

// ChatRepo persists chatbot conversation turns so the model can be
// given recent history and users can reload their conversation.
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

// Append stores one conversation turn.
func (r *ChatRepo) Append(ctx context.Context, m model.ChatMessage) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO chat_messages (user_id, role, content, intent) VALUES (?,?,?,?)",
		m.UserID, m.Role, m.Content, m.Intent)
	return err
}

// History returns the user's most recent turns in chronological order.
// limit bounds how many rows are read; the newest rows win.
func (r *ChatRepo) History(ctx context.Context, userID uint64, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT id, user_id, role, content, intent, created_at
	           FROM chat_messages WHERE user_id = ?
	           ORDER BY id DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var desc []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.Intent, &m.CreatedAt); err != nil {
			return nil, err
		}
		desc = append(desc, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	out := make([]model.ChatMessage, len(desc))
	for i, m := range desc {
		out[len(desc)-1-i] = m
	}
	return out, nil
}
