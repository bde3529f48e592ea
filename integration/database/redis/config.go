package redis

import "time"

// Config holds Redis connection settings and the message list layout.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	MessagesKey    string        `env:"REDIS_MESSAGES_KEY" envDefault:"chat:messages"`
	// MessagesRetain caps the list; older entries are trimmed on every write.
	MessagesRetain int64 `env:"REDIS_MESSAGES_RETAIN" envDefault:"1000"`
}
