package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"wkfmanager/internal/api"
	"wkfmanager/internal/config"
	"wkfmanager/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the floor of the timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// writeSlack covers the work of a transition besides health polling.
	writeSlack = 30 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	// maxBodyBytes caps the size of a workflow request body.
	maxBodyBytes = 1 << 20
)

// WorkflowService is the set of workflow operations the REST API exposes.
// It is implemented by *planner.Planner.
type WorkflowService interface {
	Create(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error)
	Update(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error)
	Teardown(ctx context.Context, storeID string) (api.WorkflowSpec, error)
	Get(storeID string) (api.WorkflowSpec, error)
	List() map[string]api.WorkflowSpec
}

// Server serves the workflow REST API.
type Server struct {
	config     config.ServerConfig
	workflows  WorkflowService
	metrics    http.Handler
	httpServer *http.Server
}

// WriteTimeoutFor returns a write timeout long enough for a transition
// that exhausts the health budget h.
func WriteTimeoutFor(h config.HealthConfig) time.Duration {
	return max(DefaultWriteTimeout, h.TransitionBudget()+writeSlack)
}

// New creates a server for the given workflow service. metricsHandler may
// be nil, in which case /metrics is not registered.
func New(cfg config.ServerConfig, workflows WorkflowService, metricsHandler http.Handler) *Server {
	s := &Server{
		config:    cfg,
		workflows: workflows,
		metrics:   metricsHandler,
	}
	if s.config.WriteTimeout == 0 {
		s.config.WriteTimeout = DefaultWriteTimeout
	}
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.CreateMux(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// WriteTimeout returns the longest a request may take, transition included.
func (s *Server) WriteTimeout() time.Duration {
	return s.httpServer.WriteTimeout
}

// CreateMux creates the HTTP mux with every workflow route.
func (s *Server) CreateMux() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for probes
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	})

	mux.HandleFunc("PUT /workflow-requests/{storeId}", s.handleCreate)
	mux.HandleFunc("PUT /workflow-update/{storeId}", s.handleUpdate)
	mux.HandleFunc("DELETE /workflow-requests/{storeId}", s.handleTeardown)
	mux.HandleFunc("GET /workflow-requests/{storeId}", s.handleGet)
	mux.HandleFunc("GET /workflow-requests", s.handleList)
	mux.HandleFunc("GET /"+api.SchemaURL, s.handleSchema)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return logRequests(mux)
}

// Start listens on the configured address and serves until Shutdown is
// called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	logging.Info("Server", "Listening on %s", s.httpServer.Addr)
	return serveResult(s.httpServer.ListenAndServe())
}

// Serve serves on an existing listener until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	logging.Info("Server", "Listening on %s", l.Addr())
	return serveResult(s.httpServer.Serve(l))
}

// Shutdown gracefully shuts down the server. Start and Serve return nil
// once it has been called, even when it happens before they start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func serveResult(err error) error {
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	spec, err := readSpec(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := s.workflows.Create(r.Context(), storeID, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	storeID := r.PathValue("storeId")
	spec, err := readSpec(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.workflows.Update(r.Context(), storeID, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTeardown(w http.ResponseWriter, r *http.Request) {
	if _, err := s.workflows.Teardown(r.Context(), r.PathValue("storeId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	spec, err := s.workflows.Get(r.PathValue("storeId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workflows.List())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	raw, err := api.SchemaJSON()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// readSpec reads and validates the request body.
func readSpec(w http.ResponseWriter, r *http.Request) (api.WorkflowSpec, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return api.WorkflowSpec{}, api.NewValidationError("", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return api.WorkflowSpec{}, api.NewValidationError("", fmt.Sprintf("failed to read request body: %v", err))
	}
	return api.DecodeWorkflowSpec(body)
}

// writeError writes err as a plain text body with the matching status code.
func writeError(w http.ResponseWriter, err error) {
	status := api.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.Error("Server", err, "Unexpected error")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Server", "Failed to encode response: %v", err)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Server", "%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
