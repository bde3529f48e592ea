package session

import (
	"time"

	"github.com/dmitrymomot/chatrelay/pkg/ratelimiter"
)

// Config holds per-connection tunables.
type Config struct {
	ReadLimit    int64         `env:"SESSION_READ_LIMIT" envDefault:"65536"`
	WriteTimeout time.Duration `env:"SESSION_WRITE_TIMEOUT" envDefault:"10s"`
	PingInterval time.Duration `env:"SESSION_PING_INTERVAL" envDefault:"30s"`
	PongWait     time.Duration `env:"SESSION_PONG_WAIT" envDefault:"60s"`
	AuthTimeout  time.Duration `env:"SESSION_AUTH_TIMEOUT" envDefault:"10s"`

	// RateLimit bounds inbound messages per session. Capacity 0 disables it.
	RateLimit ratelimiter.Config `envPrefix:"SESSION_RATE_"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ReadLimit:    64 << 10,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		AuthTimeout:  10 * time.Second,
		RateLimit: ratelimiter.Config{
			Capacity:       20,
			RefillRate:     5,
			RefillInterval: time.Second,
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReadLimit <= 0 {
		c.ReadLimit = def.ReadLimit
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = def.AuthTimeout
	}
	return c
}
