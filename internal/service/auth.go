package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/mailer"
	"github.com/hooper-ai/hooper/internal/security"
	"github.com/rs/zerolog/log"
)

// ErrInvalidCode is returned when code verification fails for any reason
// visible to the caller: wrong code, expired code, or too many attempts.
var ErrInvalidCode = errors.New("invalid or expired code")

// CodeStore keeps outstanding hashed login codes
type CodeStore interface {
	Put(ctx context.Context, email, codeHash string) error
	Get(ctx context.Context, email string) (string, error)
	RecordAttempt(ctx context.Context, email string) (int64, error)
	Consume(ctx context.Context, email string) error
}

// AuthService runs the email one-time-code login flow: issue a code, verify
// it, and mint a session for the (possibly newly created) user.
type AuthService struct {
	users       domain.UserRepository
	codes       CodeStore
	mailer      mailer.Mailer
	sessions    *security.SessionManager
	maxAttempts int
}

// NewAuthService creates a new auth service
func NewAuthService(users domain.UserRepository, codes CodeStore, m mailer.Mailer, sessions *security.SessionManager, maxAttempts int) *AuthService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &AuthService{
		users:       users,
		codes:       codes,
		mailer:      m,
		sessions:    sessions,
		maxAttempts: maxAttempts,
	}
}

// RequestCode generates a fresh login code for the email and sends it. A new
// request replaces any outstanding code. Only the bcrypt hash is stored.
func (s *AuthService) RequestCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	code, err := security.GenerateLoginCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	hash, err := security.HashLoginCode(code)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	if err := s.codes.Put(ctx, email, hash); err != nil {
		return err
	}
	if err := s.mailer.SendLoginCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to send code: %w", err)
	}

	log.Info().Str("email", email).Msg("Login code issued")
	return nil
}

// VerifyCode exchanges a code for a session token, creating the user on
// first login. The code burns after success or after too many failures.
func (s *AuthService) VerifyCode(ctx context.Context, email, code string) (*domain.User, string, error) {
	email = normalizeEmail(email)

	hash, err := s.codes.Get(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if hash == "" {
		return nil, "", ErrInvalidCode
	}

	if !security.CompareLoginCode(hash, code) {
		attempts, err := s.codes.RecordAttempt(ctx, email)
		if err != nil {
			return nil, "", err
		}
		if attempts >= int64(s.maxAttempts) {
			if err := s.codes.Consume(ctx, email); err != nil {
				log.Error().Err(err).Str("email", email).Msg("Failed to burn login code")
			}
		}
		return nil, "", ErrInvalidCode
	}

	if err := s.codes.Consume(ctx, email); err != nil {
		log.Error().Err(err).Str("email", email).Msg("Failed to consume login code")
	}

	user, err := s.getOrCreateUser(ctx, email)
	if err != nil {
		return nil, "", err
	}

	token, err := s.sessions.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session: %w", err)
	}
	return user, token, nil
}

// GetUser fetches a user by id, for session introspection.
func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) getOrCreateUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	user = &domain.User{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
	if err := s.users.Create(ctx, user); err != nil {
		// Another login for the same address may have won the race.
		if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	log.Info().Str("email", email).Str("user_id", user.ID.String()).Msg("User created")
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
