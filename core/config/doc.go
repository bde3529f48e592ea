// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file on first use and uses the caarlos0/env library
// for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/chatrelay/core/config"
//
//	type RelayConfig struct {
//		HistoryLimit    int `env:"HISTORY_LIMIT" envDefault:"30"`
//		ChannelCapacity int `env:"CHANNEL_CAPACITY" envDefault:"50"`
//	}
//
//	func main() {
//		var cfg RelayConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime.
// Different types are cached independently. Call Reset in tests that need to
// observe environment changes.
package config
