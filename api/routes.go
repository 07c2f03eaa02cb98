package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/internal/metrics"
	"github.com/garnizeh/prepwise/internal/repository/sqlite"
	"github.com/garnizeh/prepwise/internal/webhook"
)

// Deps are the application-scoped dependencies handlers are built from.
type Deps struct {
	Repo     *sqlite.SQLiteRepo
	Engine   *ai.Engine
	Verifier *webhook.Verifier
	Voice    sessionMinter
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(SecureHeadersMiddleware(cfg.Development()))
	r.Use(metrics.Middleware)

	authLimit, err := RateLimitMiddleware(cfg.RateLimit)
	if err != nil {
		// Config.Validate rejects bad rates; reaching this means it was skipped
		logger.Error("rate limit disabled", slog.Any("error", err))
		authLimit = func(next http.Handler) http.Handler { return next }
	}

	repo := deps.Repo

	// Create handlers
	var checker backendChecker
	if deps.Engine != nil {
		checker = deps.Engine
	}
	systemHandler := NewSystemHandler(checker)
	authHandler := NewAuthHandler(repo, cfg.JWTSecret, cfg.TokenDuration, cfg.FreeInterviews)
	webhookHandler := NewWebhookHandler(deps.Verifier, deps.Engine, repo)
	interviewsHandler := NewInterviewsHandler(deps.Engine, repo, repo)
	voiceHandler := NewVoiceHandler(deps.Voice)
	promptsHandler := NewPromptsHandler(deps.Engine, repo, repo)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/ready", systemHandler.ReadyHandler).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.Handle("/v1/auth/signup", authLimit(http.HandlerFunc(authHandler.Signup))).Methods("POST")
	r.Handle("/v1/auth/signin", authLimit(http.HandlerFunc(authHandler.Signin))).Methods("POST")

	// Signature-authenticated
	r.HandleFunc("/v1/webhook", webhookHandler.Receive).Methods("POST")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	apiV1.HandleFunc("/auth/signout", authHandler.Signout).Methods("POST")
	apiV1.HandleFunc("/me", authHandler.Me).Methods("GET")

	apiV1.HandleFunc("/interviews", interviewsHandler.Create).Methods("POST")
	apiV1.HandleFunc("/interviews", interviewsHandler.List).Methods("GET")
	apiV1.HandleFunc("/interviews/complete", interviewsHandler.Complete).Methods("POST")
	apiV1.HandleFunc("/interviews/{id}", interviewsHandler.Get).Methods("GET")
	apiV1.HandleFunc("/interviews/{id}/analysis", interviewsHandler.Analysis).Methods("GET")

	apiV1.HandleFunc("/voice/token", voiceHandler.Token).Methods("GET")
	apiV1.HandleFunc("/voice/agents", voiceHandler.Agents).Methods("GET")

	// Prompt administration
	aiV1 := apiV1.PathPrefix("/ai").Subrouter()
	aiV1.Use(AdminOnly(cfg.AdminEmails))
	aiV1.HandleFunc("/templates", promptsHandler.ListTemplates).Methods("GET")
	aiV1.HandleFunc("/templates", promptsHandler.UpsertTemplate).Methods("POST")
	aiV1.HandleFunc("/schemas", promptsHandler.ListSchemas).Methods("GET")
	aiV1.HandleFunc("/schemas", promptsHandler.UpsertSchema).Methods("POST")
	aiV1.HandleFunc("/schemas", promptsHandler.DeleteSchema).Methods("DELETE")
	aiV1.HandleFunc("/reload", promptsHandler.Reload).Methods("POST")

	return r
}
