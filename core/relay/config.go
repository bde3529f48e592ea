package relay

import "time"

// Config holds relay tunables. HISTORY_LIMIT and CHANNEL_CAPACITY bound the
// replay window and each subscriber's delivery buffer.
type Config struct {
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"30"`
	ChannelCapacity int           `env:"CHANNEL_CAPACITY" envDefault:"50"`
	PersistQueue    int           `env:"PERSIST_QUEUE_SIZE" envDefault:"256"`
	PersistTimeout  time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	SeedTimeout     time.Duration `env:"HISTORY_SEED_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"PERSIST_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:    30,
		ChannelCapacity: 50,
		PersistQueue:    256,
		PersistTimeout:  5 * time.Second,
		SeedTimeout:     10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}
