package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/logger"
)

// Journal persists accepted messages in acceptance order on a single writer
// goroutine. Enqueue never blocks: a full queue drops the write and counts
// it. Persist failures are logged and counted; memory stays authoritative.
type Journal struct {
	store           chat.Store
	queue           chan chat.Message
	persistTimeout  time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu      sync.RWMutex
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	persisted atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// JournalStats provides persistence counters.
type JournalStats struct {
	Persisted uint64 `json:"persisted"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
	Pending   int    `json:"pending"`
	IsRunning bool   `json:"running"`
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithJournalLogger sets the journal logger.
func WithJournalLogger(l *slog.Logger) JournalOption {
	return func(j *Journal) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithQueueSize sets how many accepted messages may wait for persistence.
func WithQueueSize(n int) JournalOption {
	return func(j *Journal) {
		if n > 0 {
			j.queue = make(chan chat.Message, n)
		}
	}
}

// WithPersistTimeout bounds each Store.Persist call.
func WithPersistTimeout(d time.Duration) JournalOption {
	return func(j *Journal) {
		if d > 0 {
			j.persistTimeout = d
		}
	}
}

// WithShutdownTimeout bounds how long Stop waits for the queue to drain.
func WithShutdownTimeout(d time.Duration) JournalOption {
	return func(j *Journal) {
		if d > 0 {
			j.shutdownTimeout = d
		}
	}
}

// NewJournal creates a journal writing to store.
func NewJournal(store chat.Store, opts ...JournalOption) *Journal {
	def := DefaultConfig()
	j := &Journal{
		store:           store,
		queue:           make(chan chat.Message, def.PersistQueue),
		persistTimeout:  def.PersistTimeout,
		shutdownTimeout: def.ShutdownTimeout,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.logger = j.logger.With(logger.Component("journal"))
	return j
}

// Enqueue schedules msg for persistence. It returns ErrJournalFull when the
// queue is full and ErrJournalClosed after Stop.
func (j *Journal) Enqueue(msg chat.Message) error {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		j.dropped.Add(1)
		return ErrJournalClosed
	}

	select {
	case j.queue <- msg:
		return nil
	default:
		j.dropped.Add(1)
		j.logger.Warn("persist queue full, message not stored",
			logger.MessageID(msg.ID),
			logger.Error(ErrJournalFull))
		return ErrJournalFull
	}
}

// Start persists queued messages until ctx is cancelled or Stop is called,
// then drains whatever is still queued. Blocking; use Run with errgroup.
func (j *Journal) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.cancel != nil || j.closed {
		j.mu.Unlock()
		return ErrJournalAlreadyStarted
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})
	done := j.done
	j.mu.Unlock()

	defer close(done)
	j.running.Store(true)
	defer j.running.Store(false)

	j.logger.InfoContext(ctx, "journal started", logger.Count("queue_size", cap(j.queue)))

	for {
		select {
		case <-ctx.Done():
			j.drain()
			return ctx.Err()
		case msg := <-j.queue:
			j.persist(ctx, msg)
		}
	}
}

// Stop cancels Start and waits for the drain to finish, bounded by the
// shutdown timeout.
func (j *Journal) Stop() error {
	j.mu.Lock()
	if j.cancel == nil {
		j.mu.Unlock()
		return ErrJournalNotStarted
	}
	cancel, done := j.cancel, j.done
	j.cancel = nil
	j.mu.Unlock()

	cancel()

	timer := time.NewTimer(j.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		j.logger.Info("journal stopped cleanly", logger.Count("persisted", int(j.persisted.Load())))
		return nil
	case <-timer.C:
		j.logger.Warn("journal shutdown timeout exceeded", logger.Duration(j.shutdownTimeout))
		return fmt.Errorf("shutdown timeout exceeded after %s", j.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: it starts the journal and stops it
// gracefully when ctx is cancelled.
func (j *Journal) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- j.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			_ = j.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// Stats returns journal counters.
func (j *Journal) Stats() JournalStats {
	return JournalStats{
		Persisted: j.persisted.Load(),
		Failed:    j.failed.Load(),
		Dropped:   j.dropped.Load(),
		Pending:   len(j.queue),
		IsRunning: j.running.Load(),
	}
}

// drain closes the queue to new writes and persists what is left.
func (j *Journal) drain() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()

	ctx := context.Background()
	for {
		select {
		case msg := <-j.queue:
			j.persist(ctx, msg)
		default:
			return
		}
	}
}

func (j *Journal) persist(ctx context.Context, msg chat.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), j.persistTimeout)
	defer cancel()

	start := time.Now()
	if err := j.store.Persist(ctx, msg); err != nil {
		j.failed.Add(1)
		j.logger.ErrorContext(ctx, "persist failed",
			logger.MessageID(msg.ID),
			logger.Author(msg.Author),
			logger.Elapsed(start),
			logger.Error(err))
		return
	}
	j.persisted.Add(1)
}
