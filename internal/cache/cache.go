// Package cache opens the shared key value store that holds token revocation
// state and rate limit counters.
//
// memory keeps everything in the process and is only correct for a single
// instance. redis, postgres and mysql share the state between instances.
package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/gofiber/storage/mysql/v2"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/gofiber/storage/redis/v3"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/db/dsn"
)

const (
	// DriverMemory keeps entries in process.
	DriverMemory = "memory"
	// DriverRedis uses a redis server.
	DriverRedis = "redis"
	// DriverPostgres uses a postgres table.
	DriverPostgres = "postgres"
	// DriverMySQL uses a mysql table.
	DriverMySQL = "mysql"

	defaultTable = "usuarios_cache"
)

// ErrUnknownDriver is returned for a driver other than memory, redis, postgres or mysql.
var ErrUnknownDriver = errors.New("unknown cache driver")

// New opens the store selected by cfg.Cache.Driver.
// The sql drivers fall back to the connection of cfg.DB when no ConnectionURI is configured.
func New(cfg *config.Config) (store fiber.Storage, err error) {
	// the storage constructors panic when the backend is unreachable
	defer func() {
		if r := recover(); r != nil {
			store = nil
			err = fmt.Errorf("open %s cache: %v", cfg.Cache.Driver, r) //nolint:err113
		}
	}()

	c := cfg.Cache

	table := c.SQL.Table
	if table == "" {
		table = defaultTable
	}

	switch c.Driver {
	case DriverMemory, "":
		store = memory.New(memory.Config{GCInterval: sweep(c.SweepInterval)})
	case DriverRedis:
		store = redis.New(redis.Config{
			Host:     c.Redis.Host,
			Port:     c.Redis.Port,
			Username: c.Redis.Username,
			Password: c.Redis.Password,
			Database: c.Redis.Database,
			URL:      c.Redis.URL,
		})
	case DriverPostgres:
		uri := c.SQL.ConnectionURI
		if uri == "" {
			uri = dsn.Postgres(cfg.DB)
		}

		store = postgres.New(postgres.Config{
			ConnectionURI: uri,
			Table:         table,
			GCInterval:    sweep(c.SweepInterval),
		})
	case DriverMySQL:
		uri := c.SQL.ConnectionURI
		if uri == "" {
			uri = dsn.MySQL(cfg.DB)
		}

		store = mysql.New(mysql.Config{
			ConnectionURI: uri,
			Table:         table,
			GCInterval:    sweep(c.SweepInterval),
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}

	log.Info().Str("driver", c.Driver).Dur("sweep", sweep(c.SweepInterval)).Msg("cache opened")

	return store, nil
}

func sweep(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}

	return d
}
