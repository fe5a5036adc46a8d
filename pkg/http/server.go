package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	applogger "FinSignal/pkg/logger"
	"FinSignal/pkg/http/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORS            bool
	MetricsPath     string
	SlowThreshold   time.Duration
	Middlewares     []echo.MiddlewareFunc
	Logger          *applogger.Logger
}

// Server wraps Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	log    *applogger.Logger
}

// NewServer creates a new HTTP server with Echo. Every handler registers its
// own routes; /healthz and the metrics endpoint are always present.
func NewServer(handlers []Handler, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8000,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORS:            true,
		MetricsPath:     "/metrics",
		SlowThreshold:   time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = applogger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(log))
	e.Use(middleware.RequestLogging(log))
	e.Use(middleware.Metrics(log, cfg.SlowThreshold))
	if cfg.CORS {
		e.Use(middleware.CORS(middleware.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
	for _, m := range cfg.Middlewares {
		e.Use(m)
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsPath != "" {
		e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))
	}
	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}

	return &Server{echo: e, config: cfg, log: log}
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	go func() {
		s.log.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", applogger.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithHost sets server host.
func WithHost(host string) ServerOption {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

// WithPort sets server port.
func WithPort(port int) ServerOption {
	return func(c *ServerConfig) {
		c.Port = port
	}
}

// WithTimeouts sets read/write/shutdown timeouts.
func WithTimeouts(read, write, shutdown time.Duration) ServerOption {
	return func(c *ServerConfig) {
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.ShutdownTimeout = shutdown
	}
}

// WithCORS enables/disables CORS.
func WithCORS(enabled bool) ServerOption {
	return func(c *ServerConfig) {
		c.CORS = enabled
	}
}

// WithMetricsPath mounts the Prometheus handler; empty disables it.
func WithMetricsPath(path string) ServerOption {
	return func(c *ServerConfig) {
		c.MetricsPath = path
	}
}

// WithMiddleware appends middleware after the built-in chain.
func WithMiddleware(m ...echo.MiddlewareFunc) ServerOption {
	return func(c *ServerConfig) {
		c.Middlewares = append(c.Middlewares, m...)
	}
}

func WithLogger(l *applogger.Logger) ServerOption {
	return func(c *ServerConfig) {
		c.Logger = l
	}
}
