// Package api exposes request validation, rendering and the outbox over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"msgkit/internal/bus"
	"msgkit/internal/config"
	"msgkit/internal/dispatch"
	"msgkit/internal/domain"
	"msgkit/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes = 1 << 20 // 1MB

// OutboxReader is the read side of the outbox used by the API.
type OutboxReader interface {
	Get(ctx context.Context, id string) (*domain.OutboxRecord, error)
	List(ctx context.Context, status domain.OutboxStatus, limit int) ([]domain.OutboxRecord, error)
	Counts(ctx context.Context) (map[domain.OutboxStatus]int, error)
}

type Options struct {
	Host         string
	Port         int
	APIKey       string // empty disables auth
	MaxBodyBytes int64
	MetricsPath  string // empty disables /metrics
	Defaults     config.DefaultsConfig
	Events       *bus.EventBus // nil disables /v1/events
	Logger       *slog.Logger
}

// OptionsFromConfig maps the api, metrics and defaults sections onto Options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	opts := Options{
		Host:         cfg.API.Host,
		Port:         cfg.API.Port,
		APIKey:       cfg.API.APIKey,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		Defaults:     cfg.Defaults,
		Logger:       logger,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	return opts
}

type Server struct {
	opts       Options
	dispatcher *dispatch.Dispatcher
	outbox     OutboxReader
	metrics    *metrics.RequestMetrics
	logger     *slog.Logger
	server     *http.Server
}

// NewServer wires the handlers. outbox and m may be nil.
func NewServer(opts Options, d *dispatch.Dispatcher, outbox OutboxReader, m *metrics.RequestMetrics) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{opts: opts, dispatcher: d, outbox: outbox, metrics: m, logger: opts.Logger}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil && s.opts.MetricsPath != "" {
		r.Get(s.opts.MetricsPath, s.metrics.Collector().Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(requireAPIKey(s.opts.APIKey))
		r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))

		r.Post("/requests/validate", s.handleValidate)
		r.Post("/requests/render", s.handleRender)
		r.Post("/requests", s.handleSubmit)
		r.Get("/outbox", s.handleListOutbox)
		r.Get("/outbox/{id}", s.handleGetOutbox)
		if s.opts.Events != nil {
			r.Get("/events", s.handleEvents)
		}
	})
	return r
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("API server started", "addr", s.server.Addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
