// Package transport upgrades HTTP requests to WebSocket connections and hands
// them to a serve function.
//
//	mux.Handle("GET /ws", transport.Handler(sessions.Serve,
//		transport.WithAllowedOrigins("https://chat.example.com"),
//		transport.WithErrorHandler(func(ctx context.Context, err error) {
//			log.WarnContext(ctx, "websocket error", logger.Error(err))
//		}),
//	))
//
// The connection is closed when serve returns; the handler itself never
// writes chat frames.
package transport
