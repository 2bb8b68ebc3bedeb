package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/espn"
	"github.com/hooper-ai/hooper/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTurnService(limiter *MockRateLimiter, provider *MockProvider, facts *MockFactClient, repo *MockChatRepository) *TurnService {
	router := llm.NewRouter("mock-provider")
	router.RegisterProvider(provider)
	return NewTurnService(limiter, router, facts, NewChatService(repo))
}

func collectEvents(events *[]RenderEvent) func(RenderEvent) {
	return func(ev RenderEvent) {
		*events = append(*events, ev)
	}
}

func TestTurnService_SubmitTurn_Text(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}

	limiter.On("Allow", ctx, "user:"+userID.String()).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Run(func(args mock.Arguments) {
			onDelta := args.Get(3).(func(string))
			onDelta("The Celtics ")
			onDelta("won last night.")
		}).
		Return(&llm.Completion{Text: "The Celtics won last night."}, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Chat")).Return(nil)

	var events []RenderEvent
	state, result := svc.SubmitTurn(ctx, NewConversation(), "Did the Celtics win?", identity, collectEvents(&events))

	assert.Equal(t, ResultText, result.Kind)
	assert.Equal(t, "The Celtics won last night.", result.Text)

	require.Len(t, state.Messages, 2)
	assert.Equal(t, domain.RoleUser, state.Messages[0].Role)
	assert.Equal(t, "Did the Celtics win?", state.Messages[0].Content)
	assert.Equal(t, domain.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, "The Celtics won last night.", state.Messages[1].Content)

	require.Len(t, events, 2)
	assert.Equal(t, EventDelta, events[0].Type)
	assert.Equal(t, "The Celtics ", events[0].Delta)
	assert.Equal(t, "won last night.", events[1].Delta)

	repo.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(chat *domain.Chat) bool {
		return chat.ID == state.ChatID &&
			chat.UserID == userID &&
			chat.Title == "Did the Celtics win?" &&
			len(chat.Messages) == 2
	}))
	limiter.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestTurnService_SubmitTurn_RateLimited(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	identity := Identity{IP: "10.0.0.1"}

	limiter.On("Allow", ctx, "ip:10.0.0.1").Return(false, nil)

	var events []RenderEvent
	state, result := svc.SubmitTurn(ctx, NewConversation(), "hello", identity, collectEvents(&events))

	assert.Equal(t, ResultError, result.Kind)
	require.NotNil(t, result.Err)
	assert.Equal(t, "rate_limited", result.Err.Code)

	// A rejected turn mutates nothing: no transcript entries, no events,
	// no model call, no save.
	assert.Empty(t, state.Messages)
	assert.Empty(t, events)
	provider.AssertNotCalled(t, "StreamChat", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTurnService_SubmitTurn_Anonymous(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	identity := Identity{IP: "203.0.113.9"}

	limiter.On("Allow", ctx, "ip:203.0.113.9").Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(&llm.Completion{Text: "Hey, hoops fan!"}, nil)

	state, result := svc.SubmitTurn(ctx, NewConversation(), "hello", identity, nil)

	assert.Equal(t, ResultText, result.Kind)
	assert.Len(t, state.Messages, 2)

	// Anonymous conversations are never persisted.
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTurnService_SubmitTurn_ScoresTool(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}

	scoreboard := &espn.Scoreboard{Events: []espn.Event{{ID: "401", Name: "Boston Celtics at New York Knicks", ShortName: "BOS @ NY"}}}
	wantDate, _ := time.Parse("2006-01-02", "2024-03-01")

	limiter.On("Allow", ctx, mock.Anything).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(&llm.Completion{ToolCall: &llm.ToolCall{Name: "getScores", Arguments: json.RawMessage(`{"date":"2024-03-01"}`)}}, nil)
	facts.On("GetScores", mock.Anything, wantDate).Return(scoreboard, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var events []RenderEvent
	state, result := svc.SubmitTurn(ctx, NewConversation(), "scores for march 1?", identity, collectEvents(&events))

	assert.Equal(t, ResultScores, result.Kind)
	assert.Equal(t, scoreboard, result.Scores)

	require.Len(t, events, 1)
	assert.Equal(t, EventPending, events[0].Type)
	assert.Equal(t, "getScores", events[0].Tool)

	// Invocation entry precedes the result entry and shares its call id.
	require.Len(t, state.Messages, 3)
	invocation := state.Messages[1]
	toolResult := state.Messages[2]
	require.Len(t, invocation.ToolCalls, 1)
	require.Len(t, toolResult.ToolResults, 1)
	assert.Equal(t, domain.RoleAssistant, invocation.Role)
	assert.Equal(t, domain.RoleTool, toolResult.Role)
	assert.NotEmpty(t, invocation.ToolCalls[0].ID)
	assert.Equal(t, invocation.ToolCalls[0].ID, toolResult.ToolResults[0].ID)
	assert.False(t, toolResult.ToolResults[0].Failed())

	facts.AssertExpectations(t)
}

func TestTurnService_SubmitTurn_NewsToolFails(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}

	limiter.On("Allow", ctx, mock.Anything).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(&llm.Completion{ToolCall: &llm.ToolCall{ID: "call_1", Name: "getNews", Arguments: json.RawMessage(`{}`)}}, nil)
	facts.On("GetNews", mock.Anything).Return(nil, errors.New("upstream down"))
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	state, result := svc.SubmitTurn(ctx, NewConversation(), "any news?", identity, nil)

	assert.Equal(t, ResultError, result.Kind)
	require.NotNil(t, result.Err)
	assert.Equal(t, "tool_failed", result.Err.Code)

	// The failed invocation still leaves a paired entry trail, with the
	// result carrying an error marker. The provider's call id is kept.
	require.Len(t, state.Messages, 3)
	assert.Equal(t, "call_1", state.Messages[1].ToolCalls[0].ID)
	assert.Equal(t, "call_1", state.Messages[2].ToolResults[0].ID)
	assert.True(t, state.Messages[2].ToolResults[0].Failed())

	// The failed turn is still reconciled for the owner.
	repo.AssertCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTurnService_SubmitTurn_InvalidToolArgs(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}

	limiter.On("Allow", ctx, mock.Anything).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(&llm.Completion{ToolCall: &llm.ToolCall{Name: "getScores", Arguments: json.RawMessage(`{"date":"yesterday"}`)}}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, result := svc.SubmitTurn(ctx, NewConversation(), "scores?", identity, nil)

	assert.Equal(t, ResultError, result.Kind)
	require.NotNil(t, result.Err)
	assert.Equal(t, "tool_failed", result.Err.Code)

	// Malformed arguments short-circuit before any upstream call.
	facts.AssertNotCalled(t, "GetScores", mock.Anything, mock.Anything)
}

func TestTurnService_SubmitTurn_ModelFails(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}

	limiter.On("Allow", ctx, mock.Anything).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(nil, errors.New("stream reset"))
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	state, result := svc.SubmitTurn(ctx, NewConversation(), "hello", identity, nil)

	assert.Equal(t, ResultError, result.Kind)
	require.NotNil(t, result.Err)
	assert.Equal(t, "model_failed", result.Err.Code)

	// The user entry survives a model failure so a reload shows the attempt.
	require.Len(t, state.Messages, 1)
	assert.Equal(t, domain.RoleUser, state.Messages[0].Role)
}

func TestTurnService_SubmitTurn_TitleTruncation(t *testing.T) {
	limiter := new(MockRateLimiter)
	provider := new(MockProvider)
	facts := new(MockFactClient)
	repo := new(MockChatRepository)
	svc := newTestTurnService(limiter, provider, facts, repo)

	ctx := context.Background()
	userID := uuid.New()
	identity := Identity{UserID: &userID, IP: "10.0.0.1"}
	longText := strings.Repeat("basketball ", 20)

	limiter.On("Allow", ctx, mock.Anything).Return(true, nil)
	provider.On("StreamChat", mock.Anything, mock.Anything, "", mock.Anything).
		Return(&llm.Completion{Text: "ok"}, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc.SubmitTurn(ctx, NewConversation(), longText, identity, nil)

	repo.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(chat *domain.Chat) bool {
		return len([]rune(chat.Title)) == domain.TitleMaxLen
	}))
}

func TestProjectHistory(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "scores yesterday?"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1", Name: "getScores"}}},
		{Role: domain.RoleTool, ToolResults: []domain.ToolResult{{ID: "c1", Name: "getScores", Result: []byte(`{}`)}}},
		{Role: domain.RoleUser, Content: "and any news?"},
	}

	projected := projectHistory(messages)

	require.Len(t, projected, 4)
	assert.Equal(t, "user", projected[0].Role)
	assert.Equal(t, "assistant", projected[1].Role)
	assert.Contains(t, projected[1].Content, "getScores")
	assert.Equal(t, "and any news?", projected[3].Content)
}
