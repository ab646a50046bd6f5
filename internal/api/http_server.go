package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vessel-proximity/internal/config"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
)

// StatusProvider reports the progress of the current run
type StatusProvider interface {
	Status() (model.CollectorState, int)
}

// Server exposes the run status and metrics over HTTP
type Server struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
	status  StatusProvider
}

// NewServer creates a new HTTP server instance
func NewServer(log *logger.Logger, m *metrics.Metrics, status StatusProvider) *Server {
	return &Server{
		logger:  log,
		metrics: m,
		status:  status,
	}
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
}

// Serve listens on the configured port until ctx is done, then shuts down
func (s *Server) Serve(ctx context.Context, cfg config.ServerConfig) error {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.logger.Debug("Status server stopped")
	return nil
}

// handleHealth returns the collector state and the number of tracked vessels
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		s.metrics.IncrementHTTPErrors()
		return
	}

	s.metrics.IncrementHTTPRequests()

	state, tracked := s.status.Status()
	response := map[string]interface{}{
		"status":          "healthy",
		"collector_state": state,
		"tracked_vessels": tracked,
		"timestamp":       time.Now().Unix(),
		"uptime":          s.metrics.GetUptime().String(),
	}
	if state == model.StateFailed {
		response["status"] = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode health response: %v", err)
		s.metrics.IncrementHTTPErrors()
	}
}
