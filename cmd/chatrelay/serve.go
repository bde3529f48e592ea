package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/health"
	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/core/relay"
	"github.com/dmitrymomot/chatrelay/core/server"
	"github.com/dmitrymomot/chatrelay/core/session"
	"github.com/dmitrymomot/chatrelay/core/transport"
	"github.com/dmitrymomot/chatrelay/middleware"
	"github.com/dmitrymomot/chatrelay/pkg/ratelimiter"
)

func newLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{logger.WithContextExtractors(middleware.RequestIDExtractor)}
	if cfg.AppEnv == "production" {
		opts = append(opts, logger.WithProduction(cfg.AppName))
	} else {
		opts = append(opts, logger.WithDevelopment(cfg.AppName))
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelString(cfg.LogLevel))
	}
	return logger.New(opts...)
}

// serve runs the relay until ctx is cancelled, then shuts down in order:
// HTTP server, sessions, engine, journal, store.
func serve(ctx context.Context, cfg Config, log *slog.Logger) error {
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.close(); err != nil {
			log.Error("close store", logger.Component("store"), logger.Error(err))
		}
	}()

	journal := relay.NewJournal(be.store,
		relay.WithJournalLogger(log),
		relay.WithQueueSize(cfg.Relay.PersistQueue),
		relay.WithPersistTimeout(cfg.Relay.PersistTimeout),
		relay.WithShutdownTimeout(cfg.Relay.ShutdownTimeout),
	)
	engine := relay.New(cfg.Relay, relay.WithLogger(log), relay.WithJournal(journal))

	seedCtx, cancelSeed := context.WithTimeout(ctx, cfg.Relay.SeedTimeout)
	err = engine.Seed(seedCtx, be.store)
	cancelSeed()
	if err != nil {
		// The relay still works without persisted history.
		log.Warn("history not seeded", logger.Component("relay"), logger.Error(err))
	}

	// The journal outlives the request-serving context so it can drain
	// messages accepted during shutdown.
	journalCtx, stopJournal := context.WithCancel(context.WithoutCancel(ctx))
	journalDone := make(chan error, 1)
	go func() { journalDone <- journal.Run(journalCtx)() }()

	managerOpts := []session.Option{
		session.WithConfig(cfg.Session),
		session.WithLogger(log),
	}
	if cfg.Auth.Enabled() {
		verifier, err := auth.NewFromConfig(cfg.Auth)
		if err != nil {
			stopJournal()
			return err
		}
		managerOpts = append(managerOpts, session.WithVerifier(verifier))
		log.Info("token authentication enabled", logger.Component("auth"))
	}

	var limiterStore *ratelimiter.MemoryStore
	if cfg.Session.RateLimit.Capacity > 0 {
		limiterStore = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
		bucket, err := ratelimiter.NewBucket(limiterStore, cfg.Session.RateLimit)
		if err != nil {
			stopJournal()
			return err
		}
		managerOpts = append(managerOpts, session.WithRateLimiter(bucket))
	}
	manager := session.NewManager(engine, managerOpts...)

	g, gctx := errgroup.WithContext(ctx)

	srv, err := server.NewFromConfig(cfg.Server,
		server.WithLogger(log),
		server.WithBaseContext(func(net.Listener) context.Context { return gctx }),
		server.WithOnShutdown(func() {
			_ = manager.Shutdown(context.Background())
		}),
	)
	if err != nil {
		stopJournal()
		return err
	}

	g.Go(srv.Run(gctx, routes(cfg, log, engine, manager, limiterStore, be)))
	if limiterStore != nil {
		g.Go(limiterStore.Run(gctx))
	}
	if be.run != nil {
		g.Go(be.run(gctx))
	}

	runErr := g.Wait()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := manager.Shutdown(drainCtx); err != nil {
		log.Warn("sessions did not drain", logger.Component("session"), logger.Error(err))
	}
	cancelDrain()

	if err := engine.Close(); err != nil {
		log.Error("close engine", logger.Component("relay"), logger.Error(err))
	}
	stopJournal()
	if err := <-journalDone; err != nil {
		log.Error("journal stopped with error", logger.Component("journal"), logger.Error(err))
	}

	stats := journal.Stats()
	log.Info("relay stopped",
		slog.Uint64("persisted", stats.Persisted),
		slog.Uint64("persist_failed", stats.Failed),
		slog.Uint64("persist_dropped", stats.Dropped))
	return runErr
}

// statsResponse is served at GET /stats.
type statsResponse struct {
	Relay       relay.Stats                   `json:"relay"`
	Sessions    session.Stats                 `json:"sessions"`
	RateLimiter *ratelimiter.MemoryStoreStats `json:"rate_limiter,omitempty"`
	Uptime      string                        `json:"uptime"`
}

func routes(
	cfg Config,
	log *slog.Logger,
	engine *relay.Engine,
	manager *session.Manager,
	limiterStore *ratelimiter.MemoryStore,
	be *backend,
) http.Handler {
	started := time.Now()

	var checks []func(context.Context) error
	if be.check != nil {
		checks = append(checks, be.check)
	}

	wsOpts := append(cfg.Transport.Options(),
		transport.WithErrorHandler(func(ctx context.Context, err error) {
			if !transport.IsExpectedClose(err) {
				log.WarnContext(ctx, "websocket session ended", logger.Component("transport"), logger.Error(err))
			}
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", transport.Handler(manager.Serve, wsOpts...))
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(log, checks...))
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		resp := statsResponse{
			Relay:    engine.Stats(),
			Sessions: manager.Stats(),
			Uptime:   time.Since(started).Round(time.Second).String(),
		}
		if limiterStore != nil {
			st := limiterStore.Stats()
			resp.RateLimiter = &st
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.ErrorContext(r.Context(), "encode stats", logger.Error(err))
		}
	})

	var h http.Handler = mux
	h = middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger: log,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/health/live" },
	})(h)
	h = middleware.RequestID()(h)
	return h
}
