package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/config"
	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/integration/database/badger"
	"github.com/dmitrymomot/chatrelay/integration/database/pg"
	"github.com/dmitrymomot/chatrelay/integration/database/redis"
	"github.com/dmitrymomot/chatrelay/integration/database/sqlite"
)

// backend is an opened message store with its lifecycle hooks.
type backend struct {
	store chat.Store
	// check is the readiness probe; nil for the memory driver.
	check func(context.Context) error
	// run is an optional background task for the errgroup.
	run   func(context.Context) func() error
	close func() error
}

func openBackend(ctx context.Context, cfg Config, log *slog.Logger) (*backend, error) {
	log = log.With(logger.Component("store"), slog.String("driver", cfg.StoreDriver))

	switch cfg.StoreDriver {
	case driverMemory:
		return &backend{store: chat.NopStore{}, close: func() error { return nil }}, nil

	case driverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		store := sqlite.NewMessageStore(db)
		return &backend{store: store, check: sqlite.Healthcheck(db), close: store.Close}, nil

	case driverPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		store := pg.NewMessageStore(pool)
		return &backend{store: store, check: pg.Healthcheck(pool), close: store.Close}, nil

	case driverRedis:
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, err
		}
		store := redis.NewMessageStore(client, redisCfg)
		return &backend{store: store, check: redis.Healthcheck(client), close: store.Close}, nil

	case driverBadger:
		db, err := badger.Open(cfg.Badger, log)
		if err != nil {
			return nil, err
		}
		store, err := badger.NewMessageStore(db, cfg.Badger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{
			store: store,
			check: badger.Healthcheck(db),
			run: func(ctx context.Context) func() error {
				return badger.RunGC(ctx, db, cfg.Badger.GCInterval, log)
			},
			close: store.Close,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownDriver, cfg.StoreDriver)
}
