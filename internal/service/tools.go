package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hooper-ai/hooper/internal/espn"
	"github.com/hooper-ai/hooper/internal/llm"
)

const (
	// ToolGetNews fetches the latest NBA headlines.
	ToolGetNews = "getNews"
	// ToolGetScores fetches the scoreboard for a single day.
	ToolGetScores = "getScores"
)

// NewsArgs are the model-supplied arguments for getNews
type NewsArgs struct {
	Query string `json:"query" validate:"omitempty,max=200"`
}

// ScoresArgs are the model-supplied arguments for getScores
type ScoresArgs struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// FactClient is the sports-fact lookup surface tools dispatch to
type FactClient interface {
	GetNews(ctx context.Context) (*espn.News, error)
	GetScores(ctx context.Context, date time.Time) (*espn.Scoreboard, error)
}

// ToolDefinitions declares the tools offered to the model on every turn.
func ToolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolGetNews,
			Description: "Get the latest NBA news headlines. Use when the user asks about recent news, trades, injuries, or storylines.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Optional topic to focus the news on, such as a team or player name."}
				},
				"required": []
			}`),
		},
		{
			Name:        ToolGetScores,
			Description: "Get NBA game scores for a specific date. Use when the user asks about game results or schedules.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"date": {"type": "string", "description": "The date to fetch scores for, formatted YYYY-MM-DD."}
				},
				"required": ["date"]
			}`),
		},
	}
}
