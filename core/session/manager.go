package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/pkg/ratelimiter"
)

// Manager creates a Session for every upgraded connection and owns the
// registry they share.
type Manager struct {
	engine   Engine
	registry *Registry
	verifier auth.Verifier
	limiter  ratelimiter.RateLimiter
	cfg      Config
	logger   *slog.Logger
}

// Stats summarises live sessions.
type Stats struct {
	Sessions int            `json:"sessions"`
	ByState  map[string]int `json:"by_state,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig sets session tunables. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

// WithVerifier enables the token handshake: the first frame of every
// connection must carry a token accepted by v.
func WithVerifier(v auth.Verifier) Option {
	return func(m *Manager) {
		m.verifier = v
	}
}

// WithRateLimiter limits inbound messages per session.
func WithRateLimiter(l ratelimiter.RateLimiter) Option {
	return func(m *Manager) {
		m.limiter = l
	}
}

// WithRegistry shares an existing registry.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithLogger sets the base logger for sessions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a manager serving sessions against engine.
func NewManager(engine Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:   engine,
		registry: NewRegistry(),
		cfg:      DefaultConfig(),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cfg = m.cfg.withDefaults()
	m.logger = m.logger.With(logger.Component("session"))
	return m
}

// Serve runs a session on conn until it ends. It matches transport.ServeFunc.
func (m *Manager) Serve(ctx context.Context, conn *websocket.Conn) error {
	return m.ServeConn(ctx, conn)
}

// ServeConn runs a session on any Conn implementation.
func (m *Manager) ServeConn(ctx context.Context, conn Conn) error {
	return newSession(conn, m).Run(ctx)
}

// Registry returns the shared session registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Stats reports live session counts.
func (m *Manager) Stats() Stats {
	return Stats{
		Sessions: m.registry.Len(),
		ByState:  m.registry.CountByState(),
	}
}

// Shutdown sends a going-away close frame to every session, then waits until
// they have all unregistered or ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	n := m.registry.CloseAll(websocket.CloseGoingAway, "server shutting down")
	m.logger.InfoContext(ctx, "sessions closed for shutdown", logger.Count("sessions", n))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for m.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			m.logger.WarnContext(ctx, "sessions still open after shutdown",
				logger.Count("sessions", m.registry.Len()))
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
