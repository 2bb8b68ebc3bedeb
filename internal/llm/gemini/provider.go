package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/hooper-ai/hooper/internal/config"
	"github.com/hooper-ai/hooper/internal/llm"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Provider implements llm.Provider for Gemini
type Provider struct {
	apiKey string
	model  string
}

// NewProvider creates a new Gemini provider
func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-1.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// StreamChat streams a chat completion through the Gemini SDK. Gemini does
// not assign tool-call ids; the caller pairs invocation and result itself.
func (p *Provider) StreamChat(ctx context.Context, req llm.Request, model string, onDelta func(string)) (*llm.Completion, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}
	if model == "" {
		model = p.DefaultModel()
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("empty message history")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	temperature := req.Temperature
	generativeModel.Temperature = &temperature
	generativeModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}

	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}
	generativeModel.Tools = tools

	session := generativeModel.StartChat()
	for _, m := range req.Messages[:len(req.Messages)-1] {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	last := req.Messages[len(req.Messages)-1]

	start := time.Now()

	var (
		text       strings.Builder
		toolCall   *llm.ToolCall
		tokensUsed int
	)

	iter := session.SendMessageStream(ctx, genai.Text(last.Content))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream error: %w", err)
		}
		if resp.UsageMetadata != nil {
			tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				text.WriteString(string(v))
				if onDelta != nil {
					onDelta(string(v))
				}
			case genai.FunctionCall:
				if toolCall != nil {
					continue // one invocation per turn
				}
				args, err := json.Marshal(v.Args)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}
				toolCall = &llm.ToolCall{Name: v.Name, Arguments: args}
			}
		}
	}

	completion := &llm.Completion{
		Model:      model,
		TokensUsed: tokensUsed,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	if toolCall != nil {
		completion.ToolCall = toolCall
		return completion, nil
	}
	completion.Text = text.String()
	return completion, nil
}

// jsonSchema is the subset of JSON schema our tool declarations use
type jsonSchema struct {
	Type       string `json:"type"`
	Properties map[string]struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"properties"`
	Required []string `json:"required"`
}

func convertTools(defs []llm.ToolDefinition) ([]*genai.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	var decls []*genai.FunctionDeclaration
	for _, def := range defs {
		var schema jsonSchema
		if err := json.Unmarshal(def.Parameters, &schema); err != nil {
			return nil, fmt.Errorf("invalid parameter schema for tool %s: %w", def.Name, err)
		}

		properties := make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			properties[name] = &genai.Schema{
				Type:        genaiType(prop.Type),
				Description: prop.Description,
			}
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   schema.Required,
			},
		})
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

func genaiType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
