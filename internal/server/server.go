package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/hashwatch/internal/api"
	"github.com/rickgao/hashwatch/internal/broadcast"
	"github.com/rickgao/hashwatch/internal/series"
)

// Config holds server settings.
type Config struct {
	Port         int
	PingInterval time.Duration // WebSocket keepalive (default: 30s)
	WriteTimeout time.Duration // WebSocket write deadline (default: 10s)
}

// Deps are the components the handlers read from.
type Deps struct {
	Store   *series.Store
	Hub     *broadcast.Hub
	State   func() string                   // optional
	Reset   func(ctx context.Context) error // optional
	Latency func() api.LatencyStats         // optional
	Metrics prometheus.Gatherer             // optional, served on /metrics
}

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	deps     Deps
	logger   *slog.Logger
	mux      *http.ServeMux
	server   *http.Server
	upgrader websocket.Upgrader
}

// New creates a Server with its routes registered.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		mux:    mux,
		server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /series", s.handleSeries)
	s.mux.HandleFunc("GET /latest", s.handleLatest)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("POST /reset", s.handleReset)
	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens until Shutdown is called. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for handlers to finish.
// Open WebSocket streams end when the hub is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
