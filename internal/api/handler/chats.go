package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/api/middleware"
	"github.com/hooper-ai/hooper/internal/api/response"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/service"
)

// ChatsHandler handles chat history, removal, and sharing
type ChatsHandler struct {
	chats *service.ChatService
}

// NewChatsHandler creates a new chats handler
func NewChatsHandler(chats *service.ChatService) *ChatsHandler {
	return &ChatsHandler{chats: chats}
}

// List returns the user's chats, most recent first
func (h *ChatsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	chats, err := h.chats.GetChats(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	response.OK(w, chats)
}

// Get returns one chat. Chats the caller does not own read as missing.
func (h *ChatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := parseChatID(w, r)
	if !ok {
		return
	}

	chat, err := h.chats.GetChat(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			response.NotFound(w, "chat not found")
			return
		}
		response.InternalError(w, "failed to load chat")
		return
	}
	response.OK(w, chat)
}

// Remove deletes one chat owned by the caller
func (h *ChatsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := parseChatID(w, r)
	if !ok {
		return
	}

	err := h.chats.RemoveChat(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
			response.NotFound(w, "chat not found")
			return
		}
		response.InternalError(w, "failed to remove chat")
		return
	}
	response.NoContent(w)
}

// Clear deletes all of the caller's chats
func (h *ChatsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	if err := h.chats.ClearChats(r.Context(), userID); err != nil {
		response.InternalError(w, "failed to clear chats")
		return
	}
	response.NoContent(w)
}

// Share marks a chat shared and returns its share path
func (h *ChatsHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	chatID, ok := parseChatID(w, r)
	if !ok {
		return
	}

	sharePath, err := h.chats.ShareChat(r.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			response.Unauthorized(w, "unauthorized")
			return
		}
		response.InternalError(w, "failed to share chat")
		return
	}
	response.OK(w, map[string]string{
		"share_path": sharePath,
	})
}

// Shared returns a shared chat without authentication
func (h *ChatsHandler) Shared(w http.ResponseWriter, r *http.Request) {
	chatID, ok := parseChatID(w, r)
	if !ok {
		return
	}

	chat, err := h.chats.GetSharedChat(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.NotFound(w, "chat not found")
			return
		}
		response.InternalError(w, "failed to load chat")
		return
	}
	response.OK(w, chat)
}

func parseChatID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		response.BadRequest(w, "invalid chat ID")
		return uuid.Nil, false
	}
	return chatID, true
}
