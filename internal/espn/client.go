package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hooper-ai/hooper/internal/config"
)

// Client fetches NBA facts from the public ESPN site API. Responses are
// validated against fixed schemas and rejected on shape mismatch rather
// than passed through partially decoded.
type Client struct {
	baseURL  string
	client   *http.Client
	validate *validator.Validate
}

// NewClient creates a new ESPN client
func NewClient(cfg config.ESPNConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: timeout},
		validate: validator.New(),
	}
}

// GetNews returns the latest NBA news articles
func (c *Client) GetNews(ctx context.Context) (*News, error) {
	var news News
	if err := c.getJSON(ctx, c.baseURL+"/news", &news); err != nil {
		return nil, fmt.Errorf("failed to get news: %w", err)
	}
	if err := c.validate.Struct(&news); err != nil {
		return nil, fmt.Errorf("news response failed validation: %w", err)
	}
	return &news, nil
}

// GetScores returns the scoreboard for the given day
func (c *Client) GetScores(ctx context.Context, date time.Time) (*Scoreboard, error) {
	endpoint := fmt.Sprintf("%s/scoreboard?dates=%s", c.baseURL, url.QueryEscape(FormatScoreboardDate(date)))

	var scoreboard Scoreboard
	if err := c.getJSON(ctx, endpoint, &scoreboard); err != nil {
		return nil, fmt.Errorf("failed to get scores: %w", err)
	}
	if err := c.validate.Struct(&scoreboard); err != nil {
		return nil, fmt.Errorf("scoreboard response failed validation: %w", err)
	}
	return &scoreboard, nil
}

// FormatScoreboardDate renders a date the way the scoreboard endpoint
// expects: YYYYMMDD, zero-padded.
func FormatScoreboardDate(date time.Time) string {
	return date.Format("20060102")
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("espn returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
