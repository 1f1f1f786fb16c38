// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects the database, services,
// handlers and middleware, and decides which roles may reach which routes.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New
//	server.New creates: sqlite.DB → services → handlers → chi routes
//
// All dependencies are assembled here (the "composition root") rather than
// scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/studytrackr/internal/auth"
	"github.com/sakif/studytrackr/internal/config"
	"github.com/sakif/studytrackr/internal/handler"
	"github.com/sakif/studytrackr/internal/middleware"
	"github.com/sakif/studytrackr/internal/model"
	sqliteRepo "github.com/sakif/studytrackr/internal/repository/sqlite"
	"github.com/sakif/studytrackr/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and, when configured, the Redis
// client behind the rate limiter. Both are closed by Close.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New creates a Server from cfg: it opens the database, connects to Redis
// if REDIS_URL is set, and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		s.redis = redis.NewClient(opts)
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/health               → liveness                 (public)
//	GET    /metrics                  → Prometheus exposition    (public)
//	POST   /api/auth/signup          → register student/teacher (public)
//	POST   /api/auth/login           → issue token              (public, rate-limited)
//	GET    /api/users/teachers       → teacher picker           (public)
//	GET    /api/users/{id}           → public profile           (public)
//	GET    /api/me                   → caller's profile         (any role)
//	GET    /api/principal/teachers   → list teachers            (principal)
//	POST   /api/principal/teachers   → create teacher           (principal)
//	GET    /api/teacher/students     → roster                   (teacher)
//	GET    /api/tasks                → visible tasks            (student, teacher)
//	POST   /api/tasks                → create task              (student, teacher)
//	PUT    /api/tasks/{id}           → update own task          (student, teacher)
//	DELETE /api/tasks/{id}           → delete own task          (student, teacher)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID and RealIP run first so the logger sees the request ID and the
// forwarded client address. SocketAddr sits before RealIP: unless TRUST_PROXY
// is set, the login limiter keys on the TCP peer, never on a header.
// Recoverer sits inside the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenServiceWithOptions(
		s.config.Auth.JWTSecret, s.config.Auth.JWTIssuer, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(s.config.Auth.BcryptCost)

	loginLimit, err := middleware.NewIPRateLimiter(middleware.RateLimitOptions{
		Rate:       s.config.RateLimit.Login,
		TrustProxy: s.config.RateLimit.TrustProxy,
		Redis:      s.redis,
	})
	if err != nil {
		return fmt.Errorf("creating login rate limiter: %w", err)
	}

	// === Services ===
	users := s.db.Users()
	roster := service.NewRosterService(users)
	authService := service.NewAuthService(users, tokens, passwords, s.logger)
	taskService := service.NewTaskService(s.db.Tasks(), roster, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(roster, s.logger)
	principalHandler := handler.NewPrincipalHandler(authService, roster, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(middleware.SocketAddr)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Prometheus)
	s.router.Use(middleware.NewSecure(middleware.SecureOptions(s.config.IsDevelopment())))

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.HandleSignup)
			r.With(loginLimit).Post("/login", authHandler.HandleLogin)
		})

		r.Get("/users/teachers", userHandler.HandleListTeachers)
		r.Get("/users/{id}", userHandler.HandleGetByID)

		// Everything below needs a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", userHandler.HandleMe)

			r.With(auth.RequireRole(model.RolePrincipal)).Route("/principal", func(r chi.Router) {
				r.Get("/teachers", principalHandler.HandleListTeachers)
				r.Post("/teachers", principalHandler.HandleCreateTeacher)
			})

			r.With(auth.RequireRole(model.RoleTeacher)).
				Get("/teacher/students", userHandler.HandleListStudents)

			r.With(auth.RequireRole(model.RoleStudent, model.RoleTeacher)).Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.HandleList)
				r.Post("/", taskHandler.HandleCreate)
				r.Put("/{id}", taskHandler.HandleUpdate)
				r.Delete("/{id}", taskHandler.HandleDelete)
			})
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database (flushes WAL, releases the file lock) and Redis
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
			slog.String("env", s.config.Env),
			slog.Bool("redis_rate_limit", s.redis != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
