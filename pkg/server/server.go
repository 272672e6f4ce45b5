// Package server wires the relay's components together and runs the
// HTTP listener with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"helios-ai/relay/pkg/catalog"
	"helios-ai/relay/pkg/config"
	"helios-ai/relay/pkg/gateway"
	"helios-ai/relay/pkg/limits/ratelimit"
	"helios-ai/relay/pkg/pricing"
	"helios-ai/relay/pkg/proxy/handlers"
	"helios-ai/relay/pkg/proxy/middleware"
	"helios-ai/relay/pkg/session"
	"helios-ai/relay/pkg/telemetry/metrics"
	"helios-ai/relay/pkg/upstream"
)

// Server owns every long-lived component: the upstream client, the
// catalog, the gateway, the session manager, the admission limiter, and
// the HTTP listener.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	httpServer   *http.Server
	registry     *catalog.Registry
	calculator   *pricing.Calculator
	priceWatcher *pricing.Watcher
	manager      *session.Manager
	limiter      *ratelimit.OriginLimiter
	collector    *metrics.Collector

	stopStats    chan struct{}
	shutdownOnce sync.Once
}

// New assembles a server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := upstream.NewClient(upstream.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		APIKey:     cfg.Upstream.APIKey,
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
	})

	registry := catalog.NewRegistry(client, cfg.Catalog.Freshness)
	calculator := pricing.NewCalculator(nil)

	var priceWatcher *pricing.Watcher
	if cfg.Pricing.TablePath != "" {
		w, err := pricing.NewWatcher(cfg.Pricing.TablePath, calculator, logger)
		if err != nil {
			return nil, fmt.Errorf("pricing table: %w", err)
		}
		priceWatcher = w
	}

	gw := gateway.New(registry, client, calculator)

	limiter := ratelimit.NewOriginLimiter(cfg.Limits.ConnectionsPerWindow, cfg.Limits.Window)

	manager := session.NewManager(session.Config{
		HeartbeatInterval: cfg.Sessions.HeartbeatInterval,
		IdleTimeout:       cfg.Sessions.IdleTimeout,
		RemovalGrace:      cfg.Sessions.RemovalGrace,
	}, gw, limiter, logger)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
		registry.SetRefreshHook(collector.RecordCatalogRefresh)
	}

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		calculator:   calculator,
		priceWatcher: priceWatcher,
		manager:      manager,
		limiter:      limiter,
		collector:    collector,
		stopStats:    make(chan struct{}),
	}

	if collector != nil {
		go s.mirrorSessionStats()
	}

	s.httpServer = &http.Server{
		Addr:        cfg.Server.ListenAddress,
		Handler:     s.routes(gw),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays at the configured value, which defaults to
		// zero: SSE and websocket responses have no bounded duration.
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// routes builds the handler tree behind the middleware chain.
func (s *Server) routes(gw *gateway.Gateway) http.Handler {
	mux := http.NewServeMux()

	chat := middleware.RateLimit(s.limiter)(handlers.NewChatHandler(gw, s.collector, s.logger))
	mux.Handle("/v1/chat/completions", chat)
	mux.Handle("/v1/models", handlers.NewModelsHandler(s.registry))
	mux.Handle("/v1/models/", handlers.NewModelsHandler(s.registry))
	mux.Handle("/ws", handlers.NewWebSocketHandler(s.manager, s.logger))
	mux.Handle("/health", handlers.NewHealthHandler(s.manager, s.registry))

	if s.collector != nil {
		mux.Handle("/metrics", s.collector.Handler())
	}

	var h http.Handler = mux
	h = middleware.AccessLog(s.logger)(h)
	h = middleware.CORS(middleware.DefaultCORSConfig())(h)
	h = middleware.Recovery(h)
	h = middleware.RequestID(h)
	return h
}

// Run starts the listener and blocks until ctx is cancelled or the
// listener fails, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening", "address", s.cfg.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown requested")
		return s.Shutdown()
	case err := <-errCh:
		if err != nil {
			s.teardown()
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	}
}

// Shutdown drains the listener within the configured budget, then
// tears down the background components.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		err = s.httpServer.Shutdown(ctx)
		s.teardown()
	})
	return err
}

// mirrorSessionStats copies the session manager's counters onto the
// Prometheus gauges periodically. The message counter is mirrored as a
// delta since the previous poll.
func (s *Server) mirrorSessionStats() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var lastMessages int64
	for {
		select {
		case <-s.stopStats:
			return
		case <-ticker.C:
			stats := s.manager.Stats()
			s.collector.UpdateSessions(stats.Active, stats.Peak)
			s.collector.AddSessionMessages(stats.Messages - lastMessages)
			lastMessages = stats.Messages
		}
	}
}

// teardown stops every background component deterministically.
func (s *Server) teardown() {
	close(s.stopStats)
	s.manager.Close()
	s.limiter.Close()
	if s.priceWatcher != nil {
		if err := s.priceWatcher.Close(); err != nil {
			s.logger.Warn("pricing watcher close", "error", err)
		}
	}
	s.logger.Info("relay stopped")
}
