package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"overseer/internal/config"
	"overseer/internal/logging"
	"overseer/internal/notifications"
	"overseer/internal/orchestrator"
	"overseer/internal/progress"
	"overseer/internal/store"
)

// Server exposes the control API and progress streams over HTTP.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	sup      *orchestrator.Supervisor
	hub      *progress.Hub
	notifier notifications.Service
	logger   *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New builds a server wired to the supervisor and progress hub.
func New(cfg *config.Config, st *store.Store, sup *orchestrator.Supervisor, hub *progress.Hub, notifier notifications.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sup:      sup,
		hub:      hub,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "api-server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/stream", s.handleStreamAll)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/incomplete", s.handleListIncompleteTasks)
			r.Route("/{taskID}", func(r chi.Router) {
				r.Get("/", s.handleGetTask)
				r.Delete("/", s.handleDeleteTask)
				r.Get("/items", s.handleListItems)
				r.Get("/stream", s.handleStreamTask)
				r.Post("/start", s.handleStartTask)
				r.Post("/cancel", s.handleCancelTask)
				r.Post("/resume", s.handleResumeTask)
				r.Post("/retry", s.handleRetryAll)
				r.Post("/retry/{itemID}", s.handleRetryItem)
				r.Post("/repair", s.handleRepairTask)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleUpsertAccount)
			r.Delete("/{accountCode}", s.handleDeleteAccount)
		})

		r.Post("/notifications/test", s.handleTestNotification)
	})

	if dir := strings.TrimSpace(cfg.ScreenshotDir); dir != "" {
		fileServer := http.StripPrefix("/screenshots/", http.FileServer(http.Dir(dir)))
		r.Get("/screenshots/*", fileServer.ServeHTTP)
	}

	// WriteTimeout stays unset so progress streams can outlive a request cycle.
	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start binds the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.APIBind)
	if bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
