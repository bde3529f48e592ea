package badger

import "time"

// Config describes the embedded badger database.
type Config struct {
	Dir      string `env:"BADGER_DIR" envDefault:"data/badger"`
	InMemory bool   `env:"BADGER_IN_MEMORY" envDefault:"false"`
	// Retention is the TTL of stored messages. Zero keeps them forever.
	Retention  time.Duration `env:"BADGER_RETENTION" envDefault:"0s"`
	GCInterval time.Duration `env:"BADGER_GC_INTERVAL" envDefault:"10m"`
}
