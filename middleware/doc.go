// Package middleware provides net/http middleware for the relay's HTTP
// surface.
//
// RequestID tags each request with an identifier, stores it in the request
// context and echoes it in the X-Request-ID header. RequestIDExtractor plugs
// the identifier into loggers built with logger.WithContextExtractors.
//
// Logging writes one access log record per request. Websocket upgrades are
// logged once the handler returns, with event=upgraded instead of a status
// code.
//
//	var h http.Handler = mux
//	h = middleware.Logging(log)(h)
//	h = middleware.RequestID()(h)
package middleware
