package llm

import (
	"context"
	"encoding/json"
)

// Message is one conversation entry projected into provider format. Tool
// entries are flattened or omitted by the caller before reaching a provider.
type Message struct {
	Role    string
	Content string
}

// ToolDefinition declares a callable tool to the model. Parameters is a
// JSON schema object describing the tool's arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Request contains chat completion parameters
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float32
}

// ToolCall is the model's election to invoke a declared tool
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Completion is the terminal outcome of a streamed turn: either the final
// accumulated text, or exactly one tool call. Never both.
type Completion struct {
	Text       string
	ToolCall   *ToolCall
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for streaming LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// StreamChat streams a completion. onDelta is invoked for each text
	// fragment as it arrives; the returned Completion carries either the
	// full text or a single tool call that terminated the stream.
	StreamChat(ctx context.Context, req Request, model string, onDelta func(delta string)) (*Completion, error)
}
