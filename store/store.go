package store

import (
	"errors"
	"fmt"

	"github.com/wizenheimer/banter"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Backend is a Store that holds resources.
type Backend interface {
	banter.Store
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver    string
	Namespace string
	Path      string      // sqlite
	Redis     RedisConfig // redis
}

// Open creates the backend named by cfg.Driver.
func Open(cfg Config) (Backend, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return memoryBackend{banter.NewMemoryStore()}, nil
	case DriverSQLite:
		return OpenSQLite(cfg.Path, cfg.Namespace)
	case DriverRedis:
		redisCfg := cfg.Redis
		if redisCfg.Namespace == "" {
			redisCfg.Namespace = cfg.Namespace
		}
		return NewRedis(redisCfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

type memoryBackend struct {
	*banter.MemoryStore
}

func (memoryBackend) Close() error { return nil }
