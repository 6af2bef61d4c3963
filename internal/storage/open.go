package storage

import (
	"context"
	"fmt"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/session"
)

// Store is a session.Store that owns a connection.
type Store interface {
	session.Store
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// Open connects to the backend named by cfg.Driver. PostgreSQL migrations
// are expected to have been applied already.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		s, err := OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
