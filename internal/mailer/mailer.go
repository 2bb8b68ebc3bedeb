package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hooper-ai/hooper/internal/config"
	"github.com/rs/zerolog/log"
)

// Mailer delivers one-time login codes
type Mailer interface {
	SendLoginCode(ctx context.Context, to, code string) error
}

// ResendMailer sends mail through the Resend HTTP API
type ResendMailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

// NewResendMailer creates a new Resend-backed mailer
func NewResendMailer(cfg config.EmailConfig) *ResendMailer {
	return &ResendMailer{
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://api.resend.com",
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// SendLoginCode emails a login code
func (m *ResendMailer) SendLoginCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Your Hooper login code",
		Text:    fmt.Sprintf("Your one-time login code is %s. It expires in 10 minutes.", code),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer logs codes instead of sending them, for local development
// without email credentials.
type LogMailer struct{}

func (LogMailer) SendLoginCode(_ context.Context, to, code string) error {
	log.Info().Str("email", to).Str("code", code).Msg("login code (email delivery disabled)")
	return nil
}
