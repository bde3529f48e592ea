package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/history"
	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/pkg/broadcast"
)

// Engine owns the history ring and the broadcast hub and funnels every
// mutation of either through one critical section. Accepting a message
// (append + publish) and joining (snapshot + subscribe) are mutually
// exclusive, so a joiner sees every message exactly once: in the replayed
// snapshot or on its subscription.
type Engine struct {
	mu        sync.Mutex
	closed    bool
	validator *chat.Validator
	history   *history.Ring
	hub       *broadcast.MemoryBroadcaster[chat.Message]
	journal   *Journal
	logger    *slog.Logger
	cfg       Config

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// Stats is a snapshot of engine counters, served by the stats endpoint.
type Stats struct {
	History      int             `json:"history"`
	HistoryLimit int             `json:"history_limit"`
	Accepted     uint64          `json:"accepted"`
	Rejected     uint64          `json:"rejected"`
	Hub          broadcast.Stats `json:"hub"`
	Journal      *JournalStats   `json:"journal,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithValidator replaces the default message validator.
func WithValidator(v *chat.Validator) Option {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// WithJournal enables persistence of accepted messages.
func WithJournal(j *Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// New creates an engine. Zero or negative limits fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = def.ChannelCapacity
	}
	if cfg.SeedTimeout <= 0 {
		cfg.SeedTimeout = def.SeedTimeout
	}

	e := &Engine{
		validator: chat.NewValidator(),
		history:   history.New(cfg.HistoryLimit),
		hub:       broadcast.NewMemoryBroadcaster[chat.Message](cfg.ChannelCapacity),
		logger:    logger.Discard(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logger.Component("relay"))
	return e
}

// Seed loads the most recent persisted messages into the history ring.
// It is meant to run once before any session joins.
func (e *Engine) Seed(ctx context.Context, store chat.Store) error {
	if store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.SeedTimeout)
	defer cancel()

	msgs, err := store.LoadHistory(ctx, e.cfg.HistoryLimit)
	if err != nil {
		return errors.Join(ErrSeed, err)
	}

	e.mu.Lock()
	e.history.Seed(msgs)
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "history seeded", logger.Count("messages", len(msgs)))
	return nil
}

// Decode parses a raw client frame into drafts without validating them.
func (e *Engine) Decode(raw []byte) ([]chat.Draft, error) {
	drafts, err := e.validator.Decode(raw)
	if err != nil {
		e.rejected.Add(1)
	}
	return drafts, err
}

// Accept validates a draft and, on success, appends it to history, publishes
// it to every subscriber and hands it to the journal, in that order and
// atomically with respect to Join. Validation failures leave no trace.
func (e *Engine) Accept(ctx context.Context, d chat.Draft) (chat.Message, error) {
	msg, err := e.validator.Validate(d)
	if err != nil {
		e.rejected.Add(1)
		return chat.Message{}, err
	}

	if err := e.commit(ctx, msg); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

func (e *Engine) commit(ctx context.Context, msg chat.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}

	e.history.Append(msg)
	// The hub only fails once closed, which e.closed already guards.
	if err := e.hub.Broadcast(context.WithoutCancel(ctx), broadcast.Message[chat.Message]{Data: msg}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	e.accepted.Add(1)

	if e.journal != nil {
		_ = e.journal.Enqueue(msg)
	}
	return nil
}

// Join returns the current history snapshot together with a hub
// subscription opened in the same critical section as every Accept.
// The subscription ends when ctx is done or it is closed.
func (e *Engine) Join(ctx context.Context) ([]chat.Message, broadcast.Subscriber[chat.Message], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, nil, ErrEngineClosed
	}
	return e.history.Snapshot(), e.hub.Subscribe(ctx), nil
}

// History returns a copy of the retained messages, oldest first.
func (e *Engine) History() []chat.Message {
	return e.history.Snapshot()
}

// Stats reports engine counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		History:      e.history.Len(),
		HistoryLimit: e.history.Limit(),
		Accepted:     e.accepted.Load(),
		Rejected:     e.rejected.Load(),
		Hub:          e.hub.Stats(),
	}
	if e.journal != nil {
		js := e.journal.Stats()
		s.Journal = &js
	}
	return s
}

// Close stops accepting messages and closes every subscription.
// The journal is stopped separately through its own lifecycle.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	return e.hub.Close()
}
