package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hooper-ai/hooper/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(serverURL string) *Provider {
	p := NewProvider("test-key", "")
	p.baseURL = serverURL
	return p
}

func sseBody(frames ...string) string {
	body := ""
	for _, f := range frames {
		body += "data: " + f + "\n\n"
	}
	return body + "data: [DONE]\n\n"
}

func TestProvider_StreamChat_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(sseBody(
			`{"choices":[{"delta":{"content":"The "}}]}`,
			`{"choices":[{"delta":{"content":"Lakers won."}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"total_tokens":42}}`,
		)))
	}))
	defer server.Close()

	var deltas []string
	completion, err := newTestProvider(server.URL).StreamChat(
		context.Background(),
		llm.Request{System: "sys", Messages: []llm.Message{{Role: "user", Content: "who won?"}}},
		"",
		func(d string) { deltas = append(deltas, d) },
	)
	require.NoError(t, err)

	assert.Equal(t, "The Lakers won.", completion.Text)
	assert.Nil(t, completion.ToolCall)
	assert.Equal(t, 42, completion.TokensUsed)
	assert.Equal(t, []string{"The ", "Lakers won."}, deltas)
}

func TestProvider_StreamChat_ToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Tool-call arguments arrive fragmented across frames.
		w.Write([]byte(sseBody(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_abc","function":{"name":"getScores","arguments":""}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"date\":"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"2024-03-01\"}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
		)))
	}))
	defer server.Close()

	completion, err := newTestProvider(server.URL).StreamChat(
		context.Background(),
		llm.Request{Messages: []llm.Message{{Role: "user", Content: "scores?"}}},
		"",
		nil,
	)
	require.NoError(t, err)

	require.NotNil(t, completion.ToolCall)
	assert.Empty(t, completion.Text)
	assert.Equal(t, "call_abc", completion.ToolCall.ID)
	assert.Equal(t, "getScores", completion.ToolCall.Name)
	assert.JSONEq(t, `{"date":"2024-03-01"}`, string(completion.ToolCall.Arguments))
}

func TestProvider_StreamChat_ToolCallNoArgs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sseBody(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"getNews"}}]}}]}`,
		)))
	}))
	defer server.Close()

	completion, err := newTestProvider(server.URL).StreamChat(
		context.Background(),
		llm.Request{Messages: []llm.Message{{Role: "user", Content: "news?"}}},
		"",
		nil,
	)
	require.NoError(t, err)

	require.NotNil(t, completion.ToolCall)
	assert.Equal(t, "{}", string(completion.ToolCall.Arguments))
}

func TestProvider_StreamChat_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).StreamChat(
		context.Background(),
		llm.Request{Messages: []llm.Message{{Role: "user", Content: "hi"}}},
		"",
		nil,
	)
	assert.Error(t, err)
}

func TestProvider_Defaults(t *testing.T) {
	p := NewProvider("", "")
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-3.5-turbo", p.DefaultModel())
	assert.False(t, p.IsConfigured())

	assert.True(t, NewProvider("key", "gpt-4o").IsConfigured())
	assert.Equal(t, "gpt-4o", NewProvider("key", "gpt-4o").DefaultModel())
}
