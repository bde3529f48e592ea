package transport

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// ServeFunc owns an upgraded connection until it returns.
type ServeFunc func(ctx context.Context, conn *websocket.Conn) error

type config struct {
	upgrader       websocket.Upgrader
	responseHeader http.Header
	onConnect      func(context.Context, *websocket.Conn) error
	onDisconnect   func(context.Context, *websocket.Conn)
	onError        func(context.Context, error)
}

// Option configures the upgrade handler.
type Option func(*config)

func WithReadBuffer(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.upgrader.ReadBufferSize = size
		}
	}
}

func WithWriteBuffer(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.upgrader.WriteBufferSize = size
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.upgrader.HandshakeTimeout = timeout
	}
}

func WithCompression(enabled bool) Option {
	return func(c *config) {
		c.upgrader.EnableCompression = enabled
	}
}

func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(c *config) {
		c.upgrader.CheckOrigin = fn
	}
}

// WithAllowedOrigins accepts the listed Origin values. "*" accepts any.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) {
		if slices.Contains(origins, "*") {
			c.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		c.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.ContainsFunc(origins, func(o string) bool {
				return strings.EqualFold(o, origin)
			})
		}
	}
}

func WithAllowAnyOrigin() Option {
	return WithAllowedOrigins("*")
}

func WithSubprotocols(protocols ...string) Option {
	return func(c *config) {
		c.upgrader.Subprotocols = protocols
	}
}

func WithUpgradeHeaders(header http.Header) Option {
	return func(c *config) {
		c.responseHeader = header
	}
}

// WithOnConnect runs after the upgrade; an error closes the connection
// before serve is called.
func WithOnConnect(fn func(context.Context, *websocket.Conn) error) Option {
	return func(c *config) {
		c.onConnect = fn
	}
}

func WithOnDisconnect(fn func(context.Context, *websocket.Conn)) Option {
	return func(c *config) {
		c.onDisconnect = fn
	}
}

// WithErrorHandler receives upgrade failures and errors returned by serve.
func WithErrorHandler(fn func(context.Context, error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

// Handler upgrades the request and passes the connection to serve. The
// connection is closed when serve returns.
func Handler(serve ServeFunc, opts ...Option) http.Handler {
	cfg := &config{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Upgrade has already written an HTTP error response on failure.
		conn, err := cfg.upgrader.Upgrade(w, r, upgradeHeader(w.Header(), cfg.responseHeader))
		if err != nil {
			cfg.reportError(ctx, err)
			return
		}
		defer func() {
			_ = conn.Close()
			if cfg.onDisconnect != nil {
				cfg.onDisconnect(ctx, conn)
			}
		}()

		if cfg.onConnect != nil {
			if err := cfg.onConnect(ctx, conn); err != nil {
				cfg.reportError(ctx, err)
				return
			}
		}

		if err := serve(ctx, conn); err != nil {
			cfg.reportError(ctx, err)
		}
	})
}

// upgradeHeader merges headers set by upstream middleware into the configured
// upgrade headers. The upgrader writes the 101 response itself and ignores
// w.Header(). Configured values win; Sec-Websocket-* stays with the upgrader.
func upgradeHeader(written, configured http.Header) http.Header {
	h := configured.Clone()
	if h == nil {
		h = make(http.Header, len(written))
	}
	for k, v := range written {
		if strings.HasPrefix(k, "Sec-Websocket-") {
			continue
		}
		if _, ok := h[k]; !ok {
			h[k] = slices.Clone(v)
		}
	}
	return h
}

func (c *config) reportError(ctx context.Context, err error) {
	if c.onError != nil {
		c.onError(ctx, err)
	}
}

// IsExpectedClose reports whether err is an orderly close from the peer.
func IsExpectedClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}
