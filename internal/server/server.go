// Package server wires the router, middleware, and handlers, and owns the
// HTTP lifecycle including graceful shutdown.
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

	"github.com/d1337/sandboxd/internal/handler"
	"github.com/d1337/sandboxd/internal/middleware"
	"github.com/d1337/sandboxd/internal/paste"
	sqliteRepo "github.com/d1337/sandboxd/internal/repository/sqlite"
	"github.com/d1337/sandboxd/internal/sandbox/docker"
	"github.com/d1337/sandboxd/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string
	RedisAddr string // empty disables the paste store
	BaseURL   string // externally visible prefix for paste links
}

// Server owns the router and the resources behind it. The database and paste
// store are closed during shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	pastes *paste.Store // nil when no redis is configured
	exec   *docker.Executor
}

// New assembles the dependency chain: sqlite repository and paste store feed
// the execution service, which feeds the handlers. The executor is created by
// the caller so its lifecycle (and prewarming) stays in main.
func New(cfg Config, logger *slog.Logger, exec *docker.Executor) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var pastes *paste.Store
	if cfg.RedisAddr != "" {
		pastes, err = paste.NewStore(cfg.RedisAddr, cfg.BaseURL)
		if err != nil {
			// The paste store is a collaborator, not a dependency:
			// executions work without it, links are just omitted.
			logger.Warn("paste store unavailable, serving without paste links",
				slog.String("error", err.Error()))
			pastes = nil
		}
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		pastes: pastes,
		exec:   exec,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// service.PasteCreator is an interface; a nil *paste.Store must stay a
	// nil interface value.
	var creator service.PasteCreator
	if s.pastes != nil {
		creator = s.pastes
	}
	execService := service.NewExecutionService(s.exec, s.db, creator, s.logger)
	execHandler := handler.NewExecuteHandler(execService, s.logger)
	runtimeHandler := handler.NewRuntimeHandler(s.exec, s.logger)

	s.router.Get("/health", handler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/execute", execHandler.HandleExecute)
		r.Get("/executions", execHandler.HandleHistory)
		r.Get("/executions/{id}", execHandler.HandleHistoryRecord)
		r.Get("/runtime", runtimeHandler.HandleRuntime)
	})

	if s.pastes != nil {
		pasteHandler := handler.NewPasteHandler(s.pastes, s.logger)
		s.router.Get("/p/{id}", pasteHandler.HandlePasteHTML)
		s.router.Get("/p/{id}/raw", pasteHandler.HandlePasteRaw)
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully and closes owned resources.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.pastes != nil {
		defer s.pastes.Close()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		// Executions can legitimately run for minutes; the write timeout
		// must outlast the longest allowed deadline.
		WriteTimeout: (handler.MaxTimeoutSeconds + 30) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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
