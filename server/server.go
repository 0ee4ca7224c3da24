package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/datasetops/shuttle/engine"
	"github.com/datasetops/shuttle/provider"
)

// Server exposes the job control surface over HTTP: starting transfers,
// querying job status, and browsing source folders.
type Server struct {
	manager    *engine.JobManager
	scheduler  *engine.Scheduler
	source     provider.Source
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a new Server instance.
func New(
	manager *engine.JobManager,
	scheduler *engine.Scheduler,
	source provider.Source,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager:   manager,
		scheduler: scheduler,
		source:    source,
		logger:    logger,
	}
}

// Handler returns the routed HTTP handler. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /transfer", s.handleTransfer)
	mux.HandleFunc("GET /status/{job_id}", s.handleStatus)
	mux.HandleFunc("GET /jobs", s.handleJobs)
	mux.HandleFunc("GET /folders", s.handleFolders)
	mux.HandleFunc("GET /folders/{folder_id}/contents", s.handleFolderContents)
	mux.HandleFunc("GET /folders/{folder_id}/path", s.handleFolderPath)

	return mux
}

// Start starts the HTTP server on the given listen address and blocks until
// it stops.
func (s *Server) Start(listenAddr string) error {
	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", listenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
