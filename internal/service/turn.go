package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/espn"
	"github.com/hooper-ai/hooper/internal/llm"
	"github.com/hooper-ai/hooper/internal/repository/redis"
	"github.com/rs/zerolog/log"
)

// RateLimiter admits or rejects turns per identity
type RateLimiter interface {
	Allow(ctx context.Context, identity string) (bool, error)
}

// Identity is the caller submitting a turn. UserID is nil for anonymous
// callers, which are tracked by IP instead.
type Identity struct {
	UserID *uuid.UUID
	Email  string
	IP     string
}

// RateKey returns the identity's rate-limit bucket key
func (i Identity) RateKey() string {
	if i.UserID != nil {
		return redis.UserIdentity(*i.UserID)
	}
	return redis.IPIdentity(i.IP)
}

// ConversationState is the in-flight transcript of one conversation
type ConversationState struct {
	ChatID   uuid.UUID
	Messages []domain.Message
}

// NewConversation returns an empty conversation with a fresh id
func NewConversation() ConversationState {
	return ConversationState{ChatID: uuid.New()}
}

// RenderEventType discriminates interim stream events
type RenderEventType string

const (
	// EventDelta carries one text fragment of the streamed reply.
	EventDelta RenderEventType = "delta"
	// EventPending signals a tool invocation is in flight.
	EventPending RenderEventType = "pending"
)

// RenderEvent is an interim notification emitted while a turn runs
type RenderEvent struct {
	Type  RenderEventType
	Delta string
	Tool  string
}

// TurnResultKind discriminates the terminal payload of a turn
type TurnResultKind string

const (
	ResultText   TurnResultKind = "text"
	ResultNews   TurnResultKind = "news"
	ResultScores TurnResultKind = "scores"
	ResultError  TurnResultKind = "error"
)

// TurnResult is the terminal outcome of a submitted turn
type TurnResult struct {
	Kind   TurnResultKind
	Text   string
	News   *espn.News
	Scores *espn.Scoreboard
	Err    *TurnError
}

// TurnError is a renderable turn failure
type TurnError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	errCodeRateLimited = "rate_limited"
	errCodeModelFailed = "model_failed"
	errCodeToolFailed  = "tool_failed"
)

// TurnService orchestrates one conversational turn: admission, streaming
// the model, dispatching at most one tool call, and reconciling the
// transcript to storage.
type TurnService struct {
	limiter  RateLimiter
	router   *llm.Router
	facts    FactClient
	chats    *ChatService
	validate *validator.Validate
	now      func() time.Time
}

// NewTurnService creates a new turn service
func NewTurnService(limiter RateLimiter, router *llm.Router, facts FactClient, chats *ChatService) *TurnService {
	return &TurnService{
		limiter:  limiter,
		router:   router,
		facts:    facts,
		chats:    chats,
		validate: validator.New(),
		now:      time.Now,
	}
}

// SubmitTurn runs one turn for the given conversation. emit receives interim
// events (text deltas, tool-pending notices) as they happen; the returned
// state and result are final. A rate-limited turn leaves the state untouched
// and persists nothing.
func (s *TurnService) SubmitTurn(ctx context.Context, state ConversationState, userText string, id Identity, emit func(RenderEvent)) (ConversationState, TurnResult) {
	if emit == nil {
		emit = func(RenderEvent) {}
	}

	allowed, err := s.limiter.Allow(ctx, id.RateKey())
	if err != nil {
		// Fail open: a broken limiter should not take chat down.
		log.Error().Err(err).Str("identity", id.RateKey()).Msg("Rate limit check failed")
		allowed = true
	}
	if !allowed {
		return state, TurnResult{
			Kind: ResultError,
			Err:  &TurnError{Code: errCodeRateLimited, Message: "You have reached your message limit. Please try again later."},
		}
	}

	state.Messages = append(state.Messages, domain.Message{
		ID:      uuid.New(),
		Role:    domain.RoleUser,
		Content: userText,
	})

	provider, err := s.router.GetProvider("")
	if err != nil {
		log.Error().Err(err).Msg("No usable model provider")
		return state, s.finish(ctx, state, id, TurnResult{
			Kind: ResultError,
			Err:  &TurnError{Code: errCodeModelFailed, Message: "Something went wrong. Please try again."},
		})
	}

	req := llm.Request{
		System:      llm.BuildSystemPrompt(s.now()),
		Messages:    projectHistory(state.Messages),
		Tools:       ToolDefinitions(),
		Temperature: 0,
	}

	completion, err := provider.StreamChat(ctx, req, "", func(delta string) {
		emit(RenderEvent{Type: EventDelta, Delta: delta})
	})
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name()).Msg("Model stream failed")
		return state, s.finish(ctx, state, id, TurnResult{
			Kind: ResultError,
			Err:  &TurnError{Code: errCodeModelFailed, Message: "Something went wrong. Please try again."},
		})
	}

	if completion.ToolCall != nil {
		return s.dispatchTool(ctx, state, id, *completion.ToolCall, emit)
	}

	state.Messages = append(state.Messages, domain.Message{
		ID:      uuid.New(),
		Role:    domain.RoleAssistant,
		Content: completion.Text,
	})
	return state, s.finish(ctx, state, id, TurnResult{Kind: ResultText, Text: completion.Text})
}

// dispatchTool runs the single tool invocation a completion elected. The
// transcript always gains a paired invocation entry and result entry sharing
// one call id, invocation first, whether the call succeeds or fails.
func (s *TurnService) dispatchTool(ctx context.Context, state ConversationState, id Identity, call llm.ToolCall, emit func(RenderEvent)) (ConversationState, TurnResult) {
	emit(RenderEvent{Type: EventPending, Tool: call.Name})

	callID := call.ID
	if callID == "" {
		callID = uuid.NewString()
	}
	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	state.Messages = append(state.Messages, domain.Message{
		ID:   uuid.New(),
		Role: domain.RoleAssistant,
		ToolCalls: []domain.ToolCall{
			{ID: callID, Name: call.Name, Arguments: args},
		},
	})

	result := domain.ToolResult{ID: callID, Name: call.Name}
	var turnResult TurnResult

	switch call.Name {
	case ToolGetNews:
		news, err := s.runGetNews(ctx, args)
		if err != nil {
			log.Error().Err(err).Msg("getNews failed")
			result.Error = "Failed to get news."
			turnResult = TurnResult{Kind: ResultError, Err: &TurnError{Code: errCodeToolFailed, Message: "Failed to get news."}}
			break
		}
		result.Result, _ = json.Marshal(news)
		turnResult = TurnResult{Kind: ResultNews, News: news}

	case ToolGetScores:
		scores, err := s.runGetScores(ctx, args)
		if err != nil {
			log.Error().Err(err).Msg("getScores failed")
			result.Error = "Failed to get scores."
			turnResult = TurnResult{Kind: ResultError, Err: &TurnError{Code: errCodeToolFailed, Message: "Failed to get scores."}}
			break
		}
		result.Result, _ = json.Marshal(scores)
		turnResult = TurnResult{Kind: ResultScores, Scores: scores}

	default:
		log.Warn().Str("tool", call.Name).Msg("Model invoked unknown tool")
		result.Error = "Unknown tool."
		turnResult = TurnResult{Kind: ResultError, Err: &TurnError{Code: errCodeToolFailed, Message: "Something went wrong. Please try again."}}
	}

	state.Messages = append(state.Messages, domain.Message{
		ID:          uuid.New(),
		Role:        domain.RoleTool,
		ToolResults: []domain.ToolResult{result},
	})

	return state, s.finish(ctx, state, id, turnResult)
}

func (s *TurnService) runGetNews(ctx context.Context, raw json.RawMessage) (*espn.News, error) {
	var args NewsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&args); err != nil {
		return nil, err
	}
	return s.facts.GetNews(ctx)
}

func (s *TurnService) runGetScores(ctx context.Context, raw json.RawMessage) (*espn.Scoreboard, error) {
	var args ScoresArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(&args); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", args.Date)
	if err != nil {
		return nil, err
	}
	return s.facts.GetScores(ctx, date)
}

// finish reconciles the transcript to storage and passes the result through.
// Persistence failures are logged, not surfaced; the rendered turn already
// happened.
func (s *TurnService) finish(ctx context.Context, state ConversationState, id Identity, result TurnResult) TurnResult {
	if err := s.chats.SaveChat(ctx, state, id.UserID); err != nil {
		log.Error().Err(err).Str("chat_id", state.ChatID.String()).Msg("Failed to persist chat")
	}
	return result
}

// projectHistory flattens the transcript into provider messages. Tool
// invocation and result entries collapse to short assistant notes so the
// model retains awareness of prior lookups without replaying raw payloads.
func projectHistory(messages []domain.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Content != "":
			out = append(out, llm.Message{Role: string(m.Role), Content: m.Content})
		case len(m.ToolCalls) > 0:
			out = append(out, llm.Message{Role: "assistant", Content: "[called " + m.ToolCalls[0].Name + "]"})
		case len(m.ToolResults) > 0:
			r := m.ToolResults[0]
			if r.Failed() {
				out = append(out, llm.Message{Role: "assistant", Content: "[" + r.Name + " failed]"})
			} else {
				out = append(out, llm.Message{Role: "assistant", Content: "[" + r.Name + " returned results shown to the user]"})
			}
		}
	}
	return out
}
