// Package server implements the admin HTTP server: health probes, version,
// Prometheus metrics and bridge handle diagnostics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apperrors "github.com/3leaps/nimbusbridge/internal/errors"
	"github.com/3leaps/nimbusbridge/internal/server/handlers"
	"github.com/3leaps/nimbusbridge/internal/server/middleware"
	"github.com/3leaps/nimbusbridge/pkg/bridge"
)

// Default timeouts applied when WithTimeouts is not used.
const (
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
)

// Server is the admin HTTP server.
type Server struct {
	host string
	port int

	logger   *zap.Logger
	bridge   *bridge.Bridge
	gatherer prometheus.Gatherer
	pprof    bool

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

// New creates a server bound to host:port. Port 0 picks a free port on Start.
func New(host string, port int) *Server {
	return &Server{
		host:         host,
		port:         port,
		logger:       zap.NewNop(),
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		idleTimeout:  DefaultIdleTimeout,
	}
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(logger *zap.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithBridge exposes b on /debug/handles.
func (s *Server) WithBridge(b *bridge.Bridge) *Server {
	s.bridge = b
	return s
}

// WithMetrics serves g on /metrics.
func (s *Server) WithMetrics(g prometheus.Gatherer) *Server {
	s.gatherer = g
	return s
}

// WithPprof mounts the net/http/pprof handlers under /debug.
func (s *Server) WithPprof(enabled bool) *Server {
	s.pprof = enabled
	return s
}

// WithTimeouts overrides the HTTP server timeouts. Zero keeps the default.
func (s *Server) WithTimeouts(read, write, idle time.Duration) *Server {
	if read > 0 {
		s.readTimeout = read
	}
	if write > 0 {
		s.writeTimeout = write
	}
	if idle > 0 {
		s.idleTimeout = idle
	}
	return s
}

// Port returns the configured port, or the bound port once Start has
// listened on port 0.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.port
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recovery)

	r.NotFound(apperrors.NotFoundHandler)
	r.MethodNotAllowed(apperrors.MethodNotAllowedHandler)

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.bridge != nil {
		r.Get("/debug/handles", handlers.HandlesHandler(s.bridge))
	}
	if s.pprof {
		r.Mount("/debug", chimw.Profiler())
	}
	return r
}

// Start listens and serves until Shutdown. It returns once the listener is
// bound; serve errors are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return errors.New("server already started")
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  s.idleTimeout,
	}
	s.httpSrv = srv
	s.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("admin server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown gracefully stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
