package main

import (
	"context"
	"database/sql"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/velmie/tracker"
	"github.com/velmie/tracker/mysql"
	"github.com/velmie/tracker/pebblestore"
	"github.com/velmie/tracker/redisstore"
	"github.com/velmie/tracker/sqlite"
)

const (
	backendMemory = "memory"
	backendPebble = "pebble"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
	backendMySQL  = "mysql"
)

// backend is an opened storage plus the handles the commands need beyond tracker.Storage.
type backend struct {
	tracker.Storage
	sqlite *sqlite.Store
	mysql  *mysql.Store
	db     *sql.DB
	close  func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}

	return b.close()
}

func openBackend(ctx context.Context, cfg StorageConfig) (*backend, error) {
	switch cfg.Backend {
	case backendMemory:
		return &backend{Storage: tracker.NewMemoryStorage()}, nil
	case backendPebble:
		store, err := pebblestore.Open(pebblestore.Options{DataDir: cfg.Path, Fsync: pebblestore.FsyncModeAlways})
		if err != nil {
			return nil, err
		}
		return &backend{Storage: store, close: store.Close}, nil
	case backendSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &backend{Storage: store, sqlite: store, close: store.Close}, nil
	case backendRedis:
		var opts []redisstore.Option
		if cfg.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.TTL))
		}
		store, err := redisstore.NewFromURL(ctx, cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		return &backend{Storage: store, close: store.Close}, nil
	case backendMySQL:
		return openMySQL(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func openMySQL(ctx context.Context, cfg StorageConfig) (*backend, error) {
	dsn, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store, err := mysql.NewStore(db, mysql.WithTable(cfg.Table))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &backend{Storage: store, mysql: store, db: db, close: db.Close}, nil
}
