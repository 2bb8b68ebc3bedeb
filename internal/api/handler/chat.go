package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/api/middleware"
	"github.com/hooper-ai/hooper/internal/api/response"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/espn"
	"github.com/hooper-ai/hooper/internal/service"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles the streaming chat endpoint
type ChatHandler struct {
	turns *service.TurnService
	chats *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(turns *service.TurnService, chats *service.ChatService) *ChatHandler {
	return &ChatHandler{turns: turns, chats: chats}
}

type turnRequest struct {
	ChatID  *uuid.UUID `json:"chat_id"`
	Message string     `json:"message" validate:"required,max=4000"`
}

// turnOutcome is the terminal SSE event payload of a turn
type turnOutcome struct {
	ChatID uuid.UUID          `json:"chat_id"`
	Kind   string             `json:"kind"`
	Text   string             `json:"text,omitempty"`
	News   *espn.News         `json:"news,omitempty"`
	Scores *espn.Scoreboard   `json:"scores,omitempty"`
	Error  *service.TurnError `json:"error,omitempty"`
}

// Submit runs one conversational turn and streams its render events back as
// server-sent events: "delta" text fragments, at most one "pending" tool
// notice, and a final "result".
func (h *ChatHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input turnRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	identity := callerIdentity(r)

	var (
		state service.ConversationState
		err   error
	)
	if input.ChatID != nil {
		state, err = h.chats.LoadConversation(r.Context(), *input.ChatID, identity.UserID)
		if errors.Is(err, domain.ErrUnauthorized) {
			response.Unauthorized(w, "unauthorized")
			return
		}
		if err != nil {
			response.InternalError(w, "failed to load chat")
			return
		}
	} else {
		state = service.NewConversation()
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(ev service.RenderEvent) {
		switch ev.Type {
		case service.EventDelta:
			writeEvent(w, flusher, "delta", map[string]string{"text": ev.Delta})
		case service.EventPending:
			writeEvent(w, flusher, "pending", map[string]string{"tool": ev.Tool})
		}
	}

	state, result := h.turns.SubmitTurn(r.Context(), state, input.Message, identity, emit)

	writeEvent(w, flusher, "result", turnOutcome{
		ChatID: state.ChatID,
		Kind:   string(result.Kind),
		Text:   result.Text,
		News:   result.News,
		Scores: result.Scores,
		Error:  result.Err,
	})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", name).Msg("Failed to marshal SSE event")
		return
	}
	w.Write([]byte("event: " + name + "\ndata: " + string(data) + "\n\n"))
	flusher.Flush()
}

// callerIdentity resolves the request to a turn identity: the session user
// when present, the remote address otherwise.
func callerIdentity(r *http.Request) service.Identity {
	identity := service.Identity{IP: r.RemoteAddr}
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		identity.UserID = &userID
	}
	if email, ok := middleware.GetUserEmail(r.Context()); ok {
		identity.Email = email
	}
	return identity
}
