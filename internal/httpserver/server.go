package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lugatuic/goberus-auth/config"
	"github.com/lugatuic/goberus-auth/middleware"
	"github.com/lugatuic/goberus-auth/server"
)

// DirectoryPinger reports whether the directory accepts connections.
type DirectoryPinger interface {
	Ping(ctx context.Context) error
}

// Server composes dependencies and constructs the HTTP handler graph.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	client  DirectoryPinger
	auth    server.Authenticator
	metrics http.Handler
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler exposes h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server.
func New(cfg *config.Config, logger *zap.Logger, client DirectoryPinger, auth server.Authenticator, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
		client: client,
		auth:   auth,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler wires routes and middleware, returning the root handler.
func (s *Server) Handler() http.Handler {
	// Health endpoints
	s.mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.client.Ping(ctx); err != nil {
			s.logger.Warn("readyz.ping_failed", zap.Error(err))
			respondJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		respondJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}

	// Business routes
	s.mux.Handle("/api/authenticate", s.makeAppHandler(s.postOnly(func(w http.ResponseWriter, r *http.Request) error {
		return server.HandleAuthenticate(s.auth, w, r)
	})))
	s.mux.Handle("/api/token", s.makeAppHandler(s.postOnly(func(w http.ResponseWriter, r *http.Request) error {
		return server.HandleToken(s.auth, w, r)
	})))

	// Mat-style middleware stack: Recover (outer), RequestID, Logger.
	var handler http.Handler = s.mux
	handler = middleware.Logger(s.logger, handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(s.logger, handler)

	return handler
}

// appHandler is an application handler that returns an error.
// Errors are logged and translated to HTTP responses by the adapter.
type appHandler func(http.ResponseWriter, *http.Request) error

func (s *Server) postOnly(fn appHandler) appHandler {
	return func(w http.ResponseWriter, r *http.Request) error {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			respondJSON(s.logger, w, http.StatusMethodNotAllowed, map[string]string{"status": "error", "message": "method not allowed"})
			return nil
		}
		return fn(w, r)
	}
}

// makeAppHandler adapts appHandler to http.Handler with sanitized error responses.
func (s *Server) makeAppHandler(fn appHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.logger.Error("handler.error", zap.Error(err), zap.String("path", r.URL.Path), zap.String("method", r.Method))
			// Do not leak internal details.
			respondJSON(s.logger, w, http.StatusInternalServerError, map[string]string{
				"status":    "error",
				"errorKind": "Internal",
				"message":   "internal error",
			})
		}
	})
}

// respondJSON writes a JSON response with proper headers.
func respondJSON(logger *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		if logger != nil {
			logger.Error("respond_json.encode_error", zap.Error(err))
		}
		_, _ = w.Write([]byte("\n"))
	}
}
