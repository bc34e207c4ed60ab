// Package server implements closetd, the reference messaging backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/campuscloset/closetmail/internal/db"
	"github.com/campuscloset/closetmail/internal/logging"
)

// Config holds server tunables.
type Config struct {
	// SendRPS and SendBurst size the per-user send limiter.
	SendRPS   float64
	SendBurst int

	// MaxPageSize caps the size query parameter.
	MaxPageSize int
}

// DefaultConfig returns the default server tunables.
func DefaultConfig() Config {
	return Config{SendRPS: 1, SendBurst: 5, MaxPageSize: 200}
}

// Server is the closetd HTTP service.
type Server struct {
	router   *gin.Engine
	messages *db.MessageRepository
	limiter  *limiterPool
	metrics  *metrics
	registry *prometheus.Registry
	cfg      Config
	log      zerolog.Logger
}

// NewServer creates the service around a message repository.
func NewServer(messages *db.MessageRepository, cfg Config) *Server {
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = DefaultConfig().MaxPageSize
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := gin.New()
	s := &Server{
		router:   r,
		messages: messages,
		limiter:  newLimiterPool(cfg.SendRPS, cfg.SendBurst),
		metrics:  newMetrics(registry),
		registry: registry,
		cfg:      cfg,
		log:      logging.Component("server"),
	}

	r.Use(s.requestID(), s.recovery(), s.accessLog(), s.instrument())
	r.NoRoute(func(c *gin.Context) { abortError(c, http.StatusNotFound, "no route for "+c.Request.URL.Path) })
	s.registerRoutes()
	return s
}

// Engine returns the gin engine.
func (s *Server) Engine() *gin.Engine { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("closetd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("closetd shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
