// Package api provides the HTTP server for the Solana news cache.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/RobinCoderZhao/solana-news/internal/cache"
	"github.com/RobinCoderZhao/solana-news/internal/history"
	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/internal/refresher"
)

// Refresher runs one refresh cycle. *refresher.Refresher implements it.
type Refresher interface {
	Refresh(ctx context.Context) (refresher.Outcome, error)
	Running() bool
}

// History lists archived snapshots. *history.Store implements it.
type History interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id int64) (news.Snapshot, error)
}

// Server holds the dependencies for the API.
type Server struct {
	store       *cache.Store
	refresher   Refresher
	history     History
	metrics     http.Handler
	secret      []byte
	corsOrigins []string
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the history endpoints.
func WithHistory(h History) Option { return func(s *Server) { s.history = h } }

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// WithCORSOrigins restricts cross-origin access. No origins allows any.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API Server instance.
func NewServer(store *cache.Store, ref Refresher, secret string, opts ...Option) *Server {
	s := &Server{
		store:     store,
		refresher: ref,
		secret:    []byte(secret),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler for the API, wrapped in the
// request id, logging and CORS middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /solana-news", s.handleGetNews())
	// The misspelled path is what deployed clients call.
	mux.HandleFunc("POST /refresh-solan-news", s.handleRefresh())

	mux.HandleFunc("GET /solana-news/history", s.handleHistory())
	mux.HandleFunc("GET /solana-news/history/{id}", s.handleHistorySnapshot())

	mux.HandleFunc("GET /healthz", s.handleHealth())
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return s.requestID(s.logRequests(s.cors(mux)))
}

// --- Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
