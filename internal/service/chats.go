package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
)

// ChatService owns transcript persistence and the history, removal, and
// sharing operations over saved chats. All operations are owner-scoped
// except reading an explicitly shared chat.
type ChatService struct {
	repo domain.ChatRepository
	now  func() time.Time
}

// NewChatService creates a new chat service
func NewChatService(repo domain.ChatRepository) *ChatService {
	return &ChatService{repo: repo, now: time.Now}
}

// SaveChat reconciles a finished turn's transcript to storage. Anonymous
// conversations are never persisted. The title derives from the first user
// message; concurrent saves of the same chat resolve last-writer-wins.
func (s *ChatService) SaveChat(ctx context.Context, state ConversationState, userID *uuid.UUID) error {
	if userID == nil || len(state.Messages) == 0 {
		return nil
	}

	var title string
	for _, m := range state.Messages {
		if m.Role == domain.RoleUser && m.Content != "" {
			title = domain.DeriveTitle(m.Content)
			break
		}
	}

	return s.repo.Save(ctx, &domain.Chat{
		ID:        state.ChatID,
		Title:     title,
		UserID:    *userID,
		CreatedAt: s.now(),
		Messages:  state.Messages,
	})
}

// LoadConversation resumes a conversation by chat id. An unknown id yields a
// fresh conversation under that id; an existing chat loads only for its
// owner.
func (s *ChatService) LoadConversation(ctx context.Context, chatID uuid.UUID, userID *uuid.UUID) (ConversationState, error) {
	chat, err := s.repo.Get(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return ConversationState{ChatID: chatID}, nil
	}
	if err != nil {
		return ConversationState{}, err
	}
	if userID == nil || chat.UserID != *userID {
		return ConversationState{}, domain.ErrUnauthorized
	}
	return ConversationState{ChatID: chat.ID, Messages: chat.Messages}, nil
}

// GetChats lists the user's chats, most recent first.
func (s *ChatService) GetChats(ctx context.Context, userID uuid.UUID) ([]domain.Chat, error) {
	return s.repo.ListByUser(ctx, userID)
}

// GetChat fetches one chat for its owner.
func (s *ChatService) GetChat(ctx context.Context, id, userID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return chat, nil
}

// RemoveChat deletes one chat owned by the user.
func (s *ChatService) RemoveChat(ctx context.Context, id, userID uuid.UUID) error {
	chat, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if chat.UserID != userID {
		return domain.ErrUnauthorized
	}
	return s.repo.Delete(ctx, id)
}

// ClearChats deletes all of the user's chats.
func (s *ChatService) ClearChats(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUser(ctx, userID)
}

// ShareChat marks a chat shared and returns its share path. Sharing is
// idempotent; a missing chat and a non-owned chat are indistinguishable to
// the caller.
func (s *ChatService) ShareChat(ctx context.Context, id, userID uuid.UUID) (string, error) {
	chat, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if chat.UserID != userID {
		return "", domain.ErrUnauthorized
	}
	if chat.SharePath != nil {
		return *chat.SharePath, nil
	}

	sharePath := "/share/" + chat.ID.String()
	if err := s.repo.SetSharePath(ctx, id, sharePath); err != nil {
		return "", err
	}
	return sharePath, nil
}

// GetSharedChat fetches a chat by id without an owner check. Only chats the
// owner has shared are visible; everything else reads as missing.
func (s *ChatService) GetSharedChat(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	chat, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if chat.SharePath == nil {
		return nil, domain.ErrNotFound
	}
	return chat, nil
}
