package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ChatRepository implements domain.ChatRepository
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save upserts a chat transcript keyed by id. On conflict only title and
// messages are replaced; created_at, user_id and share_path are preserved.
// The owner guard on the update arm means a commit can never move a chat to
// a different user.
func (r *ChatRepository) Save(ctx context.Context, chat *domain.Chat) error {
	messagesJSON, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	query := `
		INSERT INTO chats (id, title, user_id, created_at, messages, share_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, messages = EXCLUDED.messages
		WHERE chats.user_id = EXCLUDED.user_id
	`
	_, err = r.db.Pool.Exec(ctx, query,
		chat.ID,
		chat.Title,
		chat.UserID,
		chat.CreatedAt,
		messagesJSON,
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
		WHERE id = $1
	`
	var c domain.Chat
	var messagesJSON []byte
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Title,
		&c.UserID,
		&c.CreatedAt,
		&messagesJSON,
		&c.SharePath,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	if err := json.Unmarshal(messagesJSON, &c.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return &c, nil
}

// ListByUser retrieves all chats owned by a user, newest first
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	query := `
		SELECT id, title, user_id, created_at, messages, share_path
		FROM chats
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		var messagesJSON []byte
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.UserID,
			&c.CreatedAt,
			&messagesJSON,
			&c.SharePath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		if err := json.Unmarshal(messagesJSON, &c.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, nil
}

// SetSharePath marks a chat as shared
func (r *ChatRepository) SetSharePath(ctx context.Context, id uuid.UUID, sharePath string) error {
	query := `UPDATE chats SET share_path = $1 WHERE id = $2`
	_, err := r.db.Pool.Exec(ctx, query, sharePath, id)
	if err != nil {
		return fmt.Errorf("failed to set share path: %w", err)
	}
	return nil
}

// Delete removes a chat
func (r *ChatRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM chats WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// DeleteByUser removes every chat owned by a user
func (r *ChatRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM chats WHERE user_id = $1`
	_, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}
	return nil
}
