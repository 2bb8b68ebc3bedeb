package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hooper-ai/hooper/internal/api/handler"
	customMiddleware "github.com/hooper-ai/hooper/internal/api/middleware"
	"github.com/hooper-ai/hooper/internal/config"
	"github.com/hooper-ai/hooper/internal/domain"
	"github.com/hooper-ai/hooper/internal/espn"
	"github.com/hooper-ai/hooper/internal/llm"
	"github.com/hooper-ai/hooper/internal/llm/gemini"
	"github.com/hooper-ai/hooper/internal/llm/openai"
	"github.com/hooper-ai/hooper/internal/mailer"
	"github.com/hooper-ai/hooper/internal/repository/redis"
	"github.com/hooper-ai/hooper/internal/security"
	"github.com/hooper-ai/hooper/internal/service"
	"github.com/rs/zerolog/log"
)

// Stores carries the driver-selected persistence backends
type Stores struct {
	Chats domain.ChatRepository
	Users domain.UserRepository
	DB    handler.Pinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, stores Stores, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	sessions := security.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	rateLimiter := redis.NewRateLimiter(redisClient, cfg.RateLimit)
	codeStore := redis.NewCodeStore(redisClient, cfg.Auth.CodeTTL)

	var codeMailer mailer.Mailer
	if cfg.Email.APIKey != "" {
		codeMailer = mailer.NewResendMailer(cfg.Email)
	} else {
		log.Warn().Msg("Email API key is empty, logging login codes instead")
		codeMailer = mailer.LogMailer{}
	}

	// LLM providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)
	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini))
	}
	if len(llmRouter.ListProviders()) == 0 {
		log.Warn().Msg("No LLM provider configured, chat turns will fail")
	}

	// Services
	chatService := service.NewChatService(stores.Chats)
	turnService := service.NewTurnService(rateLimiter, llmRouter, espn.NewClient(cfg.ESPN), chatService)
	authService := service.NewAuthService(stores.Users, codeStore, codeMailer, sessions, cfg.Auth.CodeMaxAttempts)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Auth)
	chatHandler := handler.NewChatHandler(turnService, chatService)
	chatsHandler := handler.NewChatsHandler(chatService)

	authMiddleware := customMiddleware.NewAuthMiddleware(sessions)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(stores.DB, redisClient))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/code", authHandler.RequestCode)
			r.Post("/verify", authHandler.VerifyCode)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.WithSession)
				r.Use(customMiddleware.RequireUser)
				r.Get("/me", authHandler.Me)
			})
		})

		// Shared chats are public by construction
		r.Get("/share/{chatID}", chatsHandler.Shared)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.WithSession)

			// Chat admits anonymous callers under the anonymous quota
			r.Post("/chat", chatHandler.Submit)

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.RequireUser)

				r.Route("/chats", func(r chi.Router) {
					r.Get("/", chatsHandler.List)
					r.Delete("/", chatsHandler.Clear)

					r.Route("/{chatID}", func(r chi.Router) {
						r.Get("/", chatsHandler.Get)
						r.Delete("/", chatsHandler.Remove)
						r.Post("/share", chatsHandler.Share)
					})
				})
			})
		})
	})

	return r
}
