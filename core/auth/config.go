package auth

import "time"

// Config enables token authentication when Secret is set.
type Config struct {
	Secret string        `env:"JWT_SECRET"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"chatrelay"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Enabled reports whether a signing secret is configured.
func (c Config) Enabled() bool {
	return c.Secret != ""
}
