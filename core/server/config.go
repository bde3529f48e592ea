package server

import (
	"crypto/tls"
	"errors"
	"time"
)

// Config is the environment-driven server configuration. Timeouts apply to
// plain HTTP requests only; upgraded websocket connections manage their own
// deadlines.
type Config struct {
	Addr            string        `env:"SERVER_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxHeaderBytes  int           `env:"SERVER_MAX_HEADER_BYTES" envDefault:"1048576"`

	// HTTPS is served only when both files are set.
	TLSCertFile string `env:"SERVER_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"SERVER_TLS_KEY_FILE"`
}

// DefaultConfig mirrors the envDefault values.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		MaxHeaderBytes:  DefaultMaxHeaderBytes,
	}
}

// NewFromConfig builds a Server from cfg. Explicit opts win over cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Addr == "" {
		return nil, ErrMissingAddress
	}

	tlsCfg, err := cfg.loadTLS()
	if err != nil {
		return nil, err
	}

	base := cfg.options()
	if tlsCfg != nil {
		base = append(base, WithTLS(tlsCfg))
	}
	return New(cfg.Addr, append(base, opts...)...), nil
}

func (c Config) options() []Option {
	var opts []Option
	set := func(d time.Duration, with func(time.Duration) Option) {
		if d > 0 {
			opts = append(opts, with(d))
		}
	}
	set(c.ReadTimeout, WithReadTimeout)
	set(c.WriteTimeout, WithWriteTimeout)
	set(c.IdleTimeout, WithIdleTimeout)
	set(c.ShutdownTimeout, WithShutdownTimeout)
	if c.MaxHeaderBytes > 0 {
		opts = append(opts, WithMaxHeaderBytes(c.MaxHeaderBytes))
	}
	return opts
}

func (c Config) loadTLS() (*tls.Config, error) {
	if c.TLSCertFile == "" || c.TLSKeyFile == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
	if err != nil {
		return nil, errors.Join(ErrFailedLoadCert, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
