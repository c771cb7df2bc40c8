package api

import (
	"bufio"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/chess-graph-crawler/internal/crawler"
	"github.com/JakeFAU/chess-graph-crawler/internal/metrics"
	"github.com/JakeFAU/chess-graph-crawler/internal/publisher/memory"
)

const (
	defaultFrontierLimit = 100
	maxFrontierLimit     = 10000
)

// StoreReader is the read side of crawler.Store used by the handlers.
type StoreReader interface {
	Frontier(ctx context.Context, limit int) ([]string, error)
	Stats(ctx context.Context) (crawler.StoreStats, error)
	Ping(ctx context.Context) error
}

// FailureCounter reports how many usernames have been recorded as failed.
type FailureCounter interface {
	Count() (int, error)
}

// EventSource lists recently published events.
type EventSource interface {
	Messages() []memory.PublishedMessage
}

// Dependencies are the collaborators served by the API. Failures and Events
// are optional.
type Dependencies struct {
	Store    StoreReader
	Failures FailureCounter
	Events   EventSource
}

// Options tune the middleware chain.
type Options struct {
	APIKey         string
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the store.
type Server struct {
	router chi.Router
	deps   Dependencies
	logger *zap.Logger
}

type statsResponse struct {
	crawler.StoreStats
	Failures int `json:"failures"`
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	metrics.Init()
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Get("/stats", s.stats)
		r.Get("/frontier", s.frontier)
		r.Get("/events", s.events)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	st, err := s.deps.Store.Stats(r.Context())
	if err != nil {
		s.logger.Error("load stats", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp := statsResponse{StoreStats: st}
	if s.deps.Failures != nil {
		n, err := s.deps.Failures.Count()
		if err != nil {
			s.logger.Error("count failures", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to read failure log")
			return
		}
		resp.Failures = n
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) frontier(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	limit := defaultFrontierLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxFrontierLimit {
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxFrontierLimit))
			return
		}
		limit = n
	}
	usernames, err := s.deps.Store.Frontier(r.Context(), limit)
	if err != nil {
		s.logger.Error("load frontier", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load frontier")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"usernames": usernames, "count": len(usernames)})
}

func (s *Server) events(w http.ResponseWriter, _ *http.Request) {
	events := []memory.PublishedMessage{}
	if s.deps.Events != nil {
		events = s.deps.Events.Messages()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Debug("request completed",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
