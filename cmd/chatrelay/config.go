package main

import (
	"github.com/dmitrymomot/chatrelay/core/auth"
	"github.com/dmitrymomot/chatrelay/core/relay"
	"github.com/dmitrymomot/chatrelay/core/server"
	"github.com/dmitrymomot/chatrelay/core/session"
	"github.com/dmitrymomot/chatrelay/core/transport"
	"github.com/dmitrymomot/chatrelay/integration/database/badger"
	"github.com/dmitrymomot/chatrelay/integration/database/sqlite"
)

// Store drivers accepted by STORE_DRIVER.
const (
	driverMemory   = "memory"
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverRedis    = "redis"
	driverBadger   = "badger"
)

// Config is the process configuration. Postgres and Redis settings carry
// required fields, so they are loaded separately once their driver is chosen.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"chatrelay"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`

	Server    server.Config
	Relay     relay.Config
	Session   session.Config
	Transport transport.Config
	Auth      auth.Config
	SQLite    sqlite.Config
	Badger    badger.Config
}
