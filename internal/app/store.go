// Package app assembles the process-wide pieces both binaries share.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/blob"
	"github.com/geocoder89/taskhub/internal/repo/memory"
	"github.com/geocoder89/taskhub/internal/repo/postgres"
	"github.com/geocoder89/taskhub/internal/repo/sqlite"
	"github.com/geocoder89/taskhub/internal/security"
)

// OpenStore builds the backend named by cfg.StoreMode, migrating SQL schemas
// first, and wraps it with tracing and, when prom is set, metrics.
func OpenStore(ctx context.Context, cfg config.Config, prom *observability.Prom) (repo.Store, error) {
	var (
		store repo.Store
		err   error
	)

	switch cfg.StoreMode {
	case config.StoreSQLite:
		store, err = openSQLite(ctx, cfg)
	case config.StorePostgres:
		store, err = openPostgres(ctx, cfg)
	case config.StoreBlob:
		store, err = blob.New(ctx, blob.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.BlobPrefix,
		})
	case config.StoreMemory:
		store = memory.NewStore()
	default:
		err = fmt.Errorf("unknown store mode %q", cfg.StoreMode)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreMode, err)
	}

	slog.Default().InfoContext(ctx, "store ready", "mode", cfg.StoreMode)

	return repo.Instrument(store, cfg.StoreMode, prom), nil
}

func openSQLite(ctx context.Context, cfg config.Config) (repo.Store, error) {
	conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(conn), nil
}

func openPostgres(ctx context.Context, cfg config.Config) (repo.Store, error) {
	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		return nil, err
	}

	if err := db.MigratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.NewStore(pool), nil
}

// Seed creates the demo accounts configured in cfg.Demo.
func Seed(ctx context.Context, cfg config.Config, store repo.Store) error {
	return db.SeedDemo(ctx, store, security.NewHasher(cfg.BcryptCost), []db.DemoAccount{
		{Username: "admin", Email: cfg.Demo.AdminEmail, Password: cfg.Demo.AdminPassword, Role: user.RoleAdmin},
		{Username: "demo", Email: cfg.Demo.UserEmail, Password: cfg.Demo.UserPassword, Role: user.RoleUser},
	})
}
