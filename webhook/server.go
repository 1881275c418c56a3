package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerHandle is a running HTTP listener owned by a Manager. Close is
// the only terminal operation and is invoked at most once.
type ServerHandle interface {
	// Start binds the listen address. The address is accepting
	// connections when Start returns.
	Start() error

	// Close stops accepting new connections and drains in-flight
	// requests before releasing the port.
	Close(ctx context.Context) error

	// Addr reports the bound address, valid after Start.
	Addr() string
}

// ServerFactory builds the listener for a webhook deployment. The
// handler receives Telegram's deliveries on the effective path.
type ServerFactory func(cfg Config, handler http.Handler) ServerHandle

// Server is the built-in webhook listener: a chi router serving the
// update endpoint, a /health liveness probe, and optionally the
// delivery metrics.
type Server struct {
	addr    string
	path    string
	drain   time.Duration
	logger  *slog.Logger
	handler http.Handler
	metrics *Metrics

	server *http.Server
	ln     net.Listener
}

// NewServer builds the default server for cfg, routing POSTs on the
// effective path to handler. metrics may be nil to skip the /metrics
// endpoint; a nil logger selects slog.Default(). cfg.Port zero binds an
// ephemeral port, which tests rely on.
func NewServer(cfg Config, handler http.Handler, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = 5 * time.Second
	}
	return &Server{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		path:    cfg.routePath(),
		drain:   drain,
		logger:  logger,
		handler: handler,
		metrics: metrics,
	}
}

// Start binds the listen address and serves in the background. The
// bind happens synchronously: once Start returns nil the port accepts
// connections, which is what lets the Manager register the webhook only
// after the endpoint is live.
func (s *Server) Start() error {
	mux := chi.NewRouter()
	mux.Post(s.path, s.handler.ServeHTTP)
	mux.Get("/health", s.handleHealth())
	if s.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("webhook: listen on %s: %w", s.addr, err)
	}
	s.ln = ln

	go func() {
		s.logger.Info("webhook server listening", "addr", ln.Addr().String(), "path", s.path)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook serve error", "error", err)
		}
	}()

	return nil
}

// Close stops accepting new connections and waits for in-flight
// deliveries to finish, bounded by the drain timeout. A failed drain
// returns *ServerCloseError; the port may then still be held.
func (s *Server) Close(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.drain)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return &ServerCloseError{Err: err}
	}
	return nil
}

// Addr reports the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// handleHealth returns an http.HandlerFunc for GET /health.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
