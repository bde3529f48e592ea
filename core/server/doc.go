// Package server wraps http.Server with graceful shutdown and functional
// options.
//
// The relay's websocket sessions are hijacked connections, which
// http.Server.Shutdown neither tracks nor waits for. WithOnShutdown registers
// hooks that close them, and WithBaseContext lets upgraded handlers observe
// the server's lifetime.
//
//	srv, err := server.NewFromConfig(cfg,
//		server.WithLogger(log),
//		server.WithOnShutdown(func() { _ = sessions.Shutdown(ctx) }),
//	)
//	if err != nil {
//		return err
//	}
//	g.Go(srv.Run(ctx, mux))
//
// Configuration:
//
//	SERVER_ADDR=:8080
//	SERVER_READ_TIMEOUT=15s
//	SERVER_WRITE_TIMEOUT=15s
//	SERVER_IDLE_TIMEOUT=60s
//	SERVER_SHUTDOWN_TIMEOUT=30s
//	SERVER_MAX_HEADER_BYTES=1048576
//	SERVER_TLS_CERT_FILE=
//	SERVER_TLS_KEY_FILE=
package server
