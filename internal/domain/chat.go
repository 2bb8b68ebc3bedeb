package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole discriminates the shape of a message's payload
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry of a conversation transcript. The payload varies by
// role: user and assistant text messages carry Content, an assistant
// tool-invocation message carries ToolCalls, and a tool message carries
// ToolResults. Messages are immutable once appended.
type Message struct {
	ID          uuid.UUID    `json:"id"`
	Role        MessageRole  `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolCall records the assistant electing to invoke a tool. ID pairs the
// invocation with its result.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments []byte `json:"arguments"`
}

// ToolResult carries a tool's response payload, or an error marker when the
// call failed. ID matches the paired ToolCall.
type ToolResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Result []byte `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the result carries an error marker.
func (r ToolResult) Failed() bool {
	return r.Error != ""
}

// Chat is the durable form of a conversation, owned by exactly one user.
// UserID and CreatedAt never change after the first save; SharePath is nil
// until the owner explicitly shares.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
	SharePath *string   `json:"share_path,omitempty"`
}

// TitleMaxLen bounds the derived chat title.
const TitleMaxLen = 100

// DeriveTitle returns the chat title for a first user message: the message
// text truncated to TitleMaxLen characters.
func DeriveTitle(firstUserText string) string {
	runes := []rune(firstUserText)
	if len(runes) > TitleMaxLen {
		return string(runes[:TitleMaxLen])
	}
	return firstUserText
}

// ChatRepository defines the interface for transcript storage. Save is an
// upsert keyed by chat id: inserts set created_at and user_id once, updates
// replace title and messages only and must never reassign the owner.
type ChatRepository interface {
	Save(ctx context.Context, chat *Chat) error
	Get(ctx context.Context, id uuid.UUID) (*Chat, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Chat, error)
	SetSharePath(ctx context.Context, id uuid.UUID, sharePath string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
