package transport

import "time"

// Config holds upgrade settings.
type Config struct {
	ReadBufferSize    int           `env:"WS_READ_BUFFER" envDefault:"1024"`
	WriteBufferSize   int           `env:"WS_WRITE_BUFFER" envDefault:"1024"`
	HandshakeTimeout  time.Duration `env:"WS_HANDSHAKE_TIMEOUT" envDefault:"10s"`
	AllowedOrigins    []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	EnableCompression bool          `env:"WS_COMPRESSION" envDefault:"false"`
}

// Options converts cfg into handler options. An empty origin list keeps the
// same-origin check of the upgrader; "*" allows any origin.
func (c Config) Options() []Option {
	opts := []Option{
		WithReadBuffer(c.ReadBufferSize),
		WithWriteBuffer(c.WriteBufferSize),
		WithHandshakeTimeout(c.HandshakeTimeout),
		WithCompression(c.EnableCompression),
	}
	if len(c.AllowedOrigins) > 0 {
		opts = append(opts, WithAllowedOrigins(c.AllowedOrigins...))
	}
	return opts
}
