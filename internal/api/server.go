// Package api provides the HTTP server exposing the operation endpoint.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/household-ledger/internal/logging"
	"github.com/household-ledger/internal/ratelimit"
	"github.com/household-ledger/internal/request"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP front of the ledger: a health endpoint plus the
// /graphql operation endpoint dispatched through the request executor.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	executor   *request.Executor
	logger     *logging.Logger
	config     *ServerConfig
}

// NewServer creates the server. limiter may be nil, disabling rate limiting.
func NewServer(cfg *ServerConfig, executor *request.Executor, limiter *ratelimit.SlidingWindowLimiter, logger *logging.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		executor: executor,
		logger:   logger,
		config:   cfg,
	}

	s.router.Use(LoggingMiddleware(logger))
	s.router.Use(RecoveryMiddleware(logger))
	s.router.Use(CORSMiddleware)
	if limiter != nil {
		s.router.Use(RateLimitMiddleware(limiter, logger))
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/graphql", s.handleOperation).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "household-ledger",
	})
}

// handleOperation decodes the operation envelope and runs it through the
// executor, which owns the transaction lifecycle.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	var op request.Operation
	if err := parseJSONBody(r, &op); err != nil {
		respondJSON(w, http.StatusBadRequest, operationResponse{
			Errors: []graphQLError{{Message: "malformed request body"}},
		})
		return
	}

	data, err := s.executor.Execute(r.Context(), op)
	if err != nil {
		s.logger.WithError(err).Warn("operation error")
		respondOperationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, operationResponse{Data: data})
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
