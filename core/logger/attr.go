package logger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Helpers return an empty Attr for zero values; slog drops those, so
// log.Info("msg", logger.Error(err)) needs no nil check.

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration logs d under "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed logs the time since start under "elapsed".
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// Count logs n under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// ID logs an arbitrary identifier under key.
func ID(key string, value any) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.Any(key, value)
}

// ============================================================================
// Chat
// ============================================================================

// SessionID identifies a client connection.
func SessionID(id string) slog.Attr { return nonEmpty("session_id", id) }

// MessageID identifies an accepted message.
func MessageID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return slog.Attr{}
	}
	return slog.String("message_id", id.String())
}

// Author is the display name attached to a message or session.
func Author(name string) slog.Attr { return nonEmpty("author", name) }

// State is a session lifecycle state.
func State(state string) slog.Attr { return nonEmpty("state", state) }

// Component names the subsystem emitting the record.
func Component(name string) slog.Attr { return slog.String("component", name) }

// Event names a discrete occurrence such as "upgraded".
func Event(name string) slog.Attr { return slog.String("event", name) }

// ============================================================================
// HTTP
// ============================================================================

func RequestID(id string) slog.Attr    { return nonEmpty("request_id", id) }
func RemoteAddr(addr string) slog.Attr { return nonEmpty("remote_addr", addr) }
func Method(method string) slog.Attr   { return slog.String("method", method) }
func Path(path string) slog.Attr       { return slog.String("path", path) }
func StatusCode(code int) slog.Attr    { return slog.Int("status_code", code) }

func nonEmpty(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}
