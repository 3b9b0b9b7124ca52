// Package server wires the dependency graph and runs the HTTP server.
//
// This is the composition root: everything is constructed here in dependency
// order — store connections first, then services over the repository
// interfaces, then handlers over the services — and handed to the router.
// main.go only loads config and calls New/Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dayloop/planner/internal/auth"
	"github.com/dayloop/planner/internal/config"
	"github.com/dayloop/planner/internal/handler"
	"github.com/dayloop/planner/internal/middleware"
	"github.com/dayloop/planner/internal/model"
	"github.com/dayloop/planner/internal/oauth"
	sqliteRepo "github.com/dayloop/planner/internal/repository/sqlite"
	redisStore "github.com/dayloop/planner/internal/session/redis"
	"github.com/dayloop/planner/internal/service"
	"github.com/dayloop/planner/internal/token"
)

// Server owns the router and the connections that must be closed on
// shutdown.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *redisStore.Store
}

// New builds the full dependency graph.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sessions, err := redisStore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting session store: %w", err)
	}

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		sessions.Close()
		db.Close()
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	// One verifier per configured provider. An unconfigured provider is
	// simply absent from the map; logging in with it fails cleanly.
	verifiers := oauth.Verifiers{}
	if cfg.GoogleClientID != "" {
		verifiers[model.ProviderGoogle] = oauth.NewGoogleVerifier(cfg.OAuthTimeout)
	}
	if cfg.AppleClientID != "" {
		verifiers[model.ProviderApple] = oauth.NewAppleVerifier(cfg.AppleClientID, cfg.OAuthTimeout)
	}
	if cfg.KakaoClientID != "" {
		verifiers[model.ProviderKakao] = oauth.NewKakaoVerifier(cfg.OAuthTimeout)
	}

	resolver := oauth.NewResolver(verifiers, db, db, logger)
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(db, sessions, codec, passwords, resolver, logger)
	taskService := service.NewTaskService(db, logger)

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
	}
	s.setupRoutes(codec, authService, taskService)

	return s, nil
}

func (s *Server) setupRoutes(codec *token.Codec, authService *service.AuthService, taskService *service.TaskService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authHandler := handler.NewAuthHandler(authService, s.logger)
	taskHandler := handler.NewTaskHandler(taskService, s.logger)

	requireAuth := auth.RequireAuth(codec)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/oauth/{provider}", authHandler.HandleOAuthLogin)
			// The refresh token itself is the credential here.
			r.Post("/refresh", authHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", authHandler.HandleLogout)
				r.Post("/logout-all", authHandler.HandleLogoutAll)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)
			r.Delete("/me", authHandler.HandleWithdraw)

			r.Get("/tasks", taskHandler.HandleList)
			r.Post("/tasks", taskHandler.HandleCreate)
			r.Get("/tasks/{id}", taskHandler.HandleGet)
			r.Put("/tasks/{id}", taskHandler.HandleUpdate)
			r.Patch("/tasks/{id}/done", taskHandler.HandleSetDone)
			r.Delete("/tasks/{id}", taskHandler.HandleDelete)
		})
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database and the session store.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.sessions.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.String("sessionStore", s.cfg.RedisAddr),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
