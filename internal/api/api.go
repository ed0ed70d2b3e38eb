// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/api/health"
	"github.com/good-yellow-bee/alertd/internal/monitor"
	"github.com/good-yellow-bee/alertd/internal/security"
	"github.com/good-yellow-bee/alertd/pkg/config"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address string
	// RateLimitPerIP is the sustained requests per second allowed per client
	// IP. Zero uses the default, a negative value disables limiting.
	RateLimitPerIP float64
	// RateLimitBurst is the per-IP burst size.
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// TLS serves HTTPS when a certificate is configured.
	TLS     security.ServerTLSConfig
	Verbose bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 50
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 100
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	service       *monitor.Service
	logger        *zap.Logger
	server        *http.Server
	healthHandler *health.Handler

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new API server.
func New(cfg *Config, svc *monitor.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if svc == nil {
		return nil, fmt.Errorf("service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		service:       svc,
		logger:        logger,
		healthHandler: health.NewHandler(svc, config.Version),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.TLS.Enabled() {
		tlsConfig, err := security.LoadServerTLS(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("load TLS config: %w", err)
		}
		s.server.TLSConfig = tlsConfig
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening",
			zap.String("address", ln.Addr().String()),
			zap.Bool("tls", s.server.TLSConfig != nil))
		var err error
		if s.server.TLSConfig != nil {
			err = s.server.ServeTLS(ln, "", "")
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the bound address once Run is listening, otherwise the
// configured one.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
