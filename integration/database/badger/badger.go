package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dmitrymomot/chatrelay/core/logger"
)

// Open opens the database described by cfg. Badger's own log output is routed
// to log at matching levels.
func Open(cfg Config, log *slog.Logger) (*badger.DB, error) {
	if log == nil {
		log = logger.Discard()
	}

	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case strings.TrimSpace(cfg.Dir) == "":
		return nil, ErrEmptyDir
	default:
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(slogAdapter{log: log.With(logger.Component("badger"))})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpen, err)
	}
	return db, nil
}

// Healthcheck returns a readiness probe for db.
func Healthcheck(db *badger.DB) func(context.Context) error {
	return func(context.Context) error {
		if db.IsClosed() {
			return errors.Join(ErrHealthcheckFailed, badger.ErrDBClosed)
		}
		return nil
	}
}

// RunGC returns a function that reclaims value log space every interval until
// ctx is cancelled. It is a no-op for in-memory databases.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration, log *slog.Logger) func() error {
	return func() error {
		if db.Opts().InMemory || interval <= 0 {
			<-ctx.Done()
			return nil
		}
		if log == nil {
			log = logger.Discard()
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				// Each successful pass may leave more to collect.
				for {
					err := db.RunValueLogGC(0.5)
					if err == nil {
						continue
					}
					if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
						log.WarnContext(ctx, "value log gc failed",
							logger.Component("badger"),
							logger.Error(err))
					}
					break
				}
			}
		}
	}
}

type slogAdapter struct {
	log *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Warningf(format string, args ...any) {
	a.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Debugf(format string, args ...any) {
	a.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
