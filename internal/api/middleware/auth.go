package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/hooper-ai/hooper/internal/api/response"
	"github.com/hooper-ai/hooper/internal/security"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	UserEmailKey contextKey = "userEmail"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "session"

// AuthMiddleware resolves the session cookie into a user identity
type AuthMiddleware struct {
	sessions *security.SessionManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(sessions *security.SessionManager) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// WithSession populates the request context with the user identity when a
// valid session cookie is present. Anonymous requests pass through; chat
// admits them under the anonymous quota.
func (m *AuthMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.sessions.Validate(cookie.Value)
		if err != nil {
			// Expired or tampered cookie: treat the caller as anonymous.
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that did not resolve to an authenticated user
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID gets the user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetUserEmail gets the user email from context
func GetUserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}
