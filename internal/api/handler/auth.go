package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/hooper-ai/hooper/internal/api/middleware"
	"github.com/hooper-ai/hooper/internal/api/response"
	"github.com/hooper-ai/hooper/internal/config"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/service"
)

var validate = validator.New()

// AuthHandler handles the email one-time-code login endpoints
type AuthHandler struct {
	authService *service.AuthService
	authConfig  config.AuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, authConfig config.AuthConfig) *AuthHandler {
	return &AuthHandler{authService: authService, authConfig: authConfig}
}

// RequestCode emails a one-time login code
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var input domain.CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	if err := h.authService.RequestCode(r.Context(), input.Email); err != nil {
		response.InternalError(w, "failed to send login code")
		return
	}

	response.OK(w, map[string]string{
		"message": "login code sent",
	})
}

// VerifyCode exchanges a login code for a session cookie
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var input domain.CodeVerify
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationMessages(err))
		return
	}

	user, token, err := h.authService.VerifyCode(r.Context(), input.Email, input.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			response.Unauthorized(w, "invalid or expired code")
			return
		}
		response.InternalError(w, "failed to verify code")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.authConfig.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.authConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	response.OK(w, map[string]any{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Logout clears the session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.authConfig.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	response.NoContent(w)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	user, err := h.authService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.Unauthorized(w, "user not found")
			return
		}
		response.InternalError(w, "failed to load user")
		return
	}

	response.OK(w, map[string]any{
		"id":    user.ID,
		"email": user.Email,
	})
}

// validationMessages turns validator errors into a field-to-message map
func validationMessages(err error) any {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	messages := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages[field] = "field is required"
		case "email":
			messages[field] = "invalid email format"
		case "len":
			messages[field] = "must be exactly " + e.Param() + " characters"
		case "max":
			messages[field] = "must be at most " + e.Param() + " characters"
		case "numeric":
			messages[field] = "must be numeric"
		default:
			messages[field] = "validation failed on " + e.Tag()
		}
	}
	return messages
}
