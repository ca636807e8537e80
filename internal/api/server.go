// Package api provides the HTTP API server for spinabot.
package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spinabot/spinabot/internal/assistant"
	"github.com/spinabot/spinabot/internal/catalog"
	"github.com/spinabot/spinabot/internal/config"
	"github.com/spinabot/spinabot/internal/metrics"
	"github.com/spinabot/spinabot/internal/onboard"
	"github.com/spinabot/spinabot/internal/query"
	"github.com/spinabot/spinabot/internal/scheduler"
	"github.com/spinabot/spinabot/internal/session"
)

// JobScheduler defines the scheduler operations the API needs.
type JobScheduler interface {
	HasJob(name string) bool
	Trigger(name string) error
	Status() []JobStatus
	IsRunning() bool
}

// JobStatus is an alias for scheduler.JobStatus.
type JobStatus = scheduler.JobStatus

// Options carries the server's collaborators. Nil collaborators disable the
// routes that need them with 503 responses.
type Options struct {
	Engine    query.Engine
	Sessions  *session.Manager
	Tokens    *session.Tokens
	Flow      *onboard.Flow
	Scheduler JobScheduler
	Assistant assistant.Config
	Script    *assistant.Script
	Catalog   *catalog.Catalog
	Logger    *slog.Logger
}

// Server represents the HTTP API server.
type Server struct {
	cfg         *config.Config
	engine      query.Engine
	sessions    *session.Manager
	tokens      *session.Tokens
	flow        *onboard.Flow
	scheduler   JobScheduler
	assistant   assistant.Config
	script      *assistant.Script
	catalog     *catalog.Catalog
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    opts.Engine,
		sessions:  opts.Sessions,
		tokens:    opts.Tokens,
		flow:      opts.Flow,
		scheduler: opts.Scheduler,
		assistant: opts.Assistant,
		script:    opts.Script,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.script == nil {
		s.script = assistant.DefaultScript()
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	if s.assistant.Logger == nil {
		s.assistant.Logger = s.logger
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	// CORS (config-driven; disabled when no origins configured)
	corsConfig := CORSConfig{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", session.HeaderName},
		AllowCredentials: s.cfg.Server.CORSCredentials,
		MaxAge:           s.cfg.Server.CORSMaxAge,
	}
	if corsConfig.MaxAge == 0 && len(corsConfig.AllowedOrigins) > 0 {
		corsConfig.MaxAge = 86400
	}
	r.Use(CORSMiddleware(corsConfig))

	if s.cfg.Server.RateLimitRPS > 0 {
		s.rateLimiter = NewRateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst)
		r.Use(RateLimitMiddleware(s.rateLimiter))
	}

	// Unauthenticated
	r.Get("/health", s.handleHealth)
	if s.cfg.Server.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/providers", s.handleCatalogProviders)
			r.Get("/tools", s.handleCatalogTools)
			r.Get("/task-tools", s.handleCatalogTaskTools)
			r.Get("/questions", s.handleCatalogQuestions)
			r.Get("/products", s.handleCatalogProducts)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Group(func(r chi.Router) {
				r.Use(s.sessionMiddleware)
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/guard/{step}", s.handleGuard)
				r.Post("/provider", s.handleSelectProvider)
				r.Post("/login", s.handleLogin)
				r.Post("/integration", s.handleSelectIntegration)
				r.Post("/tool-credentials", s.handleToolCredentials)
				r.Post("/task-tool", s.handleSelectTaskTool)
				r.Post("/task-tool/skip", s.handleSkipTaskTool)
				r.Post("/task-credentials", s.handleTaskCredentials)
				r.Post("/answers", s.handleAnswer)
				r.Post("/connect", s.handleConnect)
				r.Post("/theme", s.handleTheme)
			})
		})

		r.Get("/emails", s.handleListEmails)
		r.Get("/emails/{id}", s.handleGetEmail)
		r.Post("/emails/bulk", s.handleBulk)
		r.Get("/stats", s.handleStats)
		r.Get("/categories", s.handleCategories)
		r.Get("/companies", s.handleCompanies)

		r.Post("/assistant", s.handleAssistant)
		r.Get("/assistant/quick-questions", s.handleQuickQuestions)

		r.Get("/scheduler/status", s.handleSchedulerStatus)
		r.Post("/scheduler/jobs/{name}/run", s.handleTriggerJob)
	})

	return r
}

// Start begins listening for HTTP requests.
// Returns an error if the security posture is invalid.
func (s *Server) Start() error {
	if err := s.cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	addr := s.cfg.ListenAddr()
	if s.cfg.Server.APIKey == "" {
		s.logger.Warn("API server running without authentication; set [server] api_key in config.toml")
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// loggerMiddleware logs HTTP requests and records their duration.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			elapsed := time.Since(start)
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
				"request_id", chimw.GetReqID(r.Context()),
			)
			if s.cfg.Server.MetricsEnabled {
				metrics.RecordHTTPRequest(r.Method, routePattern(r), ww.Status(), elapsed)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

// routePattern returns the matched chi pattern so metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// authMiddleware validates the API key.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Server.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			authHeader = r.Header.Get("X-API-Key")
		}
		authHeader = strings.TrimPrefix(authHeader, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(s.cfg.Server.APIKey)) != 1 {
			s.logger.Warn("unauthorized API request",
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
