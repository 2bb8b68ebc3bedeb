package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
)

// ChatRepository implements domain.ChatRepository on sqlite
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save upserts a chat transcript keyed by id, preserving created_at,
// user_id and share_path on update. The owner guard mirrors the postgres
// store: a commit never reassigns ownership.
func (r *ChatRepository) Save(ctx context.Context, chat *domain.Chat) error {
	messagesJSON, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO chats (id, title, user_id, created_at, messages, share_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title, messages = excluded.messages
		WHERE chats.user_id = excluded.user_id
	`
	_, err = r.db.conn.ExecContext(ctx, query,
		chat.ID.String(),
		chat.Title,
		chat.UserID.String(),
		chat.CreatedAt,
		string(messagesJSON),
		chat.SharePath,
	)
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

// Get retrieves a chat by id, returning domain.ErrNotFound when absent
func (r *ChatRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, title, user_id, created_at, messages, share_path
		FROM chats
		WHERE id = ?
	`
	return scanChat(r.db.conn.QueryRowContext(ctx, query, id.String()))
}

// ListByUser retrieves all chats owned by a user, newest first
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT id, title, user_id, created_at, messages, share_path
		FROM chats
		WHERE user_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.conn.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// SetSharePath marks a chat as shared
func (r *ChatRepository) SetSharePath(ctx context.Context, id uuid.UUID, sharePath string) error {
	query := `UPDATE chats SET share_path = ? WHERE id = ?`
	if _, err := r.db.conn.ExecContext(ctx, query, sharePath, id.String()); err != nil {
		return fmt.Errorf("failed to set share path: %w", err)
	}
	return nil
}

// Delete removes a chat
func (r *ChatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// DeleteByUser removes every chat owned by a user
func (r *ChatRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM chats WHERE user_id = ?`, userID.String()); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var c domain.Chat
	var id, userID, messagesJSON string
	err := row.Scan(&id, &c.Title, &userID, &c.CreatedAt, &messagesJSON, &c.SharePath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan chat: %w", err)
	}

	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", id, err)
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &c.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &c, nil
}
