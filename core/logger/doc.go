// Package logger provides structured logging utilities built on Go's standard slog package.
//
// # Basic Usage
//
//	import "github.com/dmitrymomot/chatrelay/core/logger"
//
//	// Development: text format, debug level, stdout
//	log := logger.New(logger.WithDevelopment("chatrelay"))
//
//	// Production: JSON format, info level, stdout
//	log := logger.New(logger.WithProduction("chatrelay"))
//
//	log.Info("server starting",
//		logger.Component("server"),
//		logger.Event("startup"),
//	)
//
// # Context-Aware Logging
//
// Extractors registered with WithContextValue or WithContextExtractors run for
// every *Context call and append their attribute to the record:
//
//	log := logger.New(
//		logger.WithProduction("chatrelay"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "upgrade accepted")
//
// # Attribute Helpers
//
// Helpers return an empty slog.Attr for zero inputs, which slog drops, so calls
// such as log.Warn("persist failed", logger.Error(err)) need no nil checks.
package logger
