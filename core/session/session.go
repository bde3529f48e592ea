package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/logger"
	"github.com/dmitrymomot/chatrelay/core/transport"
	"github.com/dmitrymomot/chatrelay/pkg/async"
	"github.com/dmitrymomot/chatrelay/pkg/broadcast"
	"github.com/dmitrymomot/chatrelay/pkg/ratelimiter"
)

// errStopped is the cancel cause set by the session itself.
var errStopped = errors.New("session stopped")

// Conn is the subset of *websocket.Conn a session drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	RemoteAddr() net.Addr
}

// Engine is the shared chat state a session joins and feeds.
type Engine interface {
	Join(ctx context.Context) ([]chat.Message, broadcast.Subscriber[chat.Message], error)
	Decode(raw []byte) ([]chat.Draft, error)
	Accept(ctx context.Context, d chat.Draft) (chat.Message, error)
}

type resetter interface {
	Reset(ctx context.Context, key string) error
}

// Session bridges one client connection to the engine with an inbound and an
// outbound loop. Whichever loop ends first cancels the other; cleanup runs
// exactly once.
type Session struct {
	id       string
	conn     Conn
	engine   Engine
	registry *Registry
	verifier auth.Verifier
	limiter  ratelimiter.RateLimiter
	cfg      Config
	logger   *slog.Logger // set once in newSession; read from every goroutine

	state       atomic.Int32
	identity    atomic.Pointer[auth.Identity]
	connectedAt time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	sub    broadcast.Subscriber[chat.Message]

	closeOnce sync.Once

	received atomic.Uint64
	accepted atomic.Uint64
	rejected atomic.Uint64
	sent     atomic.Uint64
	lagged   atomic.Uint64
}

func newSession(conn Conn, m *Manager) *Session {
	id := uuid.NewString()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Session{
		id:          id,
		conn:        conn,
		engine:      m.engine,
		registry:    m.registry,
		verifier:    m.verifier,
		limiter:     m.limiter,
		cfg:         m.cfg,
		connectedAt: time.Now(),
		logger: m.logger.With(
			logger.SessionID(id),
			logger.RemoteAddr(remote),
		),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Identity returns the verified caller, or nil on unauthenticated sessions.
func (s *Session) Identity() *auth.Identity { return s.identity.Load() }

// advance moves the state forward; it never moves back.
func (s *Session) advance(to State) bool {
	for {
		cur := s.state.Load()
		if State(cur) >= to {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(to)) {
			s.logger.Debug("session state changed", logger.State(to.String()))
			return true
		}
	}
}

// Run drives the session until the connection ends or ctx is cancelled.
// It returns nil on an orderly close.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	s.mu.Lock()
	s.cancel = func() { cancel(errStopped) }
	s.mu.Unlock()

	if err := s.registry.Register(s); err != nil {
		return err
	}
	defer s.close()

	s.conn.SetReadLimit(s.cfg.ReadLimit)
	s.conn.SetPingHandler(s.handlePing)
	s.conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	if err := s.connect(ctx); err != nil {
		return err
	}
	if !s.advance(Active) {
		return ErrSessionClosed
	}
	s.logger.InfoContext(ctx, "session active")

	inbound := async.Exec(ctx, s.conn, s.readLoop)
	outbound := async.Exec(ctx, s.subscription(), s.writeLoop)

	winner, err := async.ExecAny(inbound, outbound)
	s.advance(Closing)
	s.stopLoops()
	_ = async.ExecAll(inbound, outbound)

	if err != nil {
		loop := "inbound"
		if winner == 1 {
			loop = "outbound"
		}
		s.logger.WarnContext(ctx, "session terminated", slog.String("loop", loop), logger.Error(err))
	}
	return err
}

// connect authenticates if required, then replays history and subscribes.
func (s *Session) connect(ctx context.Context) error {
	if s.verifier != nil {
		if err := s.authenticate(ctx); err != nil {
			s.writeClose(websocket.ClosePolicyViolation, "authentication failed")
			return err
		}
	}
	s.extendReadDeadline()

	snapshot, sub, err := s.engine.Join(ctx)
	if err != nil {
		s.writeClose(websocket.CloseTryAgainLater, "relay unavailable")
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}
	frame, err := chat.EncodeHistory(snapshot)
	if err != nil {
		return err
	}
	if err := s.write(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}
	s.logger.DebugContext(ctx, "history replayed", logger.Count("messages", len(snapshot)))
	return nil
}

func (s *Session) authenticate(ctx context.Context) error {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout))

	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("%w: %w: %w", auth.ErrAuth, ErrTransportRead, err)
	}

	token, err := auth.TokenFromFrame(raw)
	if err != nil {
		return err
	}
	id, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		return err
	}

	s.identity.Store(&id)
	s.logger.InfoContext(ctx, "session authenticated",
		logger.Author(id.Username),
		logger.ID("subject", id.Subject))
	return nil
}

func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || transport.IsExpectedClose(err) {
				return nil
			}
			return fmt.Errorf("%w: %w", ErrTransportRead, err)
		}
		s.extendReadDeadline()

		if mt != websocket.TextMessage {
			s.logger.DebugContext(ctx, "non-text frame ignored")
			continue
		}
		s.handleFrame(ctx, raw)
	}
}

// handleFrame admits every message of a frame. Rejections are logged and
// never reported to the client.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	drafts, err := s.engine.Decode(raw)
	if err != nil {
		s.rejected.Add(1)
		s.logger.DebugContext(ctx, "frame rejected", logger.Error(err))
		return
	}
	if len(drafts) == 0 {
		return
	}
	s.received.Add(uint64(len(drafts)))

	if s.limiter != nil {
		res, err := s.limiter.AllowN(ctx, s.id, len(drafts))
		if err != nil {
			s.logger.WarnContext(ctx, "rate limiter unavailable", logger.Error(err))
		} else if !res.Allowed() {
			s.rejected.Add(uint64(len(drafts)))
			s.logger.WarnContext(ctx, "frame dropped",
				logger.Error(ratelimiter.ErrRateLimitExceeded),
				logger.Count("messages", len(drafts)),
				logger.Duration(res.RetryAfter()))
			return
		}
	}

	identity := s.identity.Load()
	for _, d := range drafts {
		if identity != nil {
			d.Name = identity.Username
		}
		msg, err := s.engine.Accept(ctx, d)
		if err != nil {
			s.rejected.Add(1)
			s.logger.DebugContext(ctx, "message rejected", logger.Error(err))
			continue
		}
		s.accepted.Add(1)
		s.logger.DebugContext(ctx, "message accepted",
			logger.MessageID(msg.ID),
			logger.Author(msg.Author))
	}
}

func (s *Session) writeLoop(ctx context.Context, sub broadcast.Subscriber[chat.Message]) error {
	if sub == nil {
		return ErrSessionClosed
	}

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	messages := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			// Cancelled from outside the session: the server is going away.
			if !errors.Is(context.Cause(ctx), errStopped) {
				s.writeClose(websocket.CloseGoingAway, "server shutting down")
			}
			return nil

		case m, ok := <-messages:
			if !ok {
				if ctx.Err() == nil {
					s.writeClose(websocket.CloseGoingAway, "relay shutting down")
				}
				return nil
			}
			if n := sub.Lagged(); n > 0 {
				s.lagged.Add(n)
				s.logger.WarnContext(ctx, "subscriber lagging, messages dropped", logger.Count("dropped", int(n)))
			}

			frame, err := json.Marshal(m.Data)
			if err != nil {
				s.logger.ErrorContext(ctx, "encode message", logger.Error(err))
				continue
			}
			if err := s.write(websocket.TextMessage, frame); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: %w", ErrTransportWrite, err)
			}
			s.sent.Add(1)

		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: ping: %w", ErrTransportWrite, err)
			}
		}
	}
}

// handlePing answers a client ping through the registry so the pong goes to
// this connection only.
func (s *Session) handlePing(payload string) error {
	s.extendReadDeadline()
	err := s.registry.Pong(s.id, []byte(payload))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func (s *Session) pong(payload []byte) error {
	err := s.conn.WriteControl(websocket.PongMessage, payload, time.Now().Add(s.cfg.WriteTimeout))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nil
	}
	return err
}

func (s *Session) write(mt int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(mt, data)
}

func (s *Session) writeClose(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
}

func (s *Session) extendReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
}

// username is the verified author, empty on unauthenticated sessions.
func (s *Session) username() string {
	if id := s.identity.Load(); id != nil {
		return id.Username
	}
	return ""
}

func (s *Session) subscription() broadcast.Subscriber[chat.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// stopLoops cancels the session context, unblocks a pending read and closes
// the subscription so a pending receive returns.
func (s *Session) stopLoops() {
	s.mu.Lock()
	cancel, sub := s.cancel, s.sub
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	_ = s.conn.SetReadDeadline(time.Now())
	if sub != nil {
		_ = sub.Close()
	}
}

// Shutdown sends a close frame and stops the session. Used on server
// shutdown; the session unregisters itself when Run returns.
func (s *Session) Shutdown(code int, reason string) {
	if s.State() >= Closing {
		return
	}
	s.writeClose(code, reason)
	s.advance(Closing)
	s.stopLoops()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.advance(Closing)
		s.stopLoops()
		s.registry.Unregister(s.id)

		if r, ok := s.limiter.(resetter); ok {
			_ = r.Reset(context.Background(), s.id)
		}

		s.advance(Closed)
		s.logger.Info("session closed",
			logger.Author(s.username()),
			logger.Elapsed(s.connectedAt),
			logger.Group("messages",
				slog.Uint64("received", s.received.Load()),
				slog.Uint64("accepted", s.accepted.Load()),
				slog.Uint64("rejected", s.rejected.Load()),
				slog.Uint64("sent", s.sent.Load()),
				slog.Uint64("lagged", s.lagged.Load()),
			))
	})
}
