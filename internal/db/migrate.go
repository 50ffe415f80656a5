package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// MigrateSQLite brings the SQLite schema up to date.
func MigrateSQLite(ctx context.Context, conn *sql.DB) error {
	return migrate(ctx, goose.DialectSQLite3, conn, "migrations/sqlite")
}

// MigratePostgres runs the Postgres migrations through a database/sql view of the pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	conn := stdlib.OpenDBFromPool(pool)
	defer conn.Close()

	return migrate(ctx, goose.DialectPostgres, conn, "migrations/postgres")
}

func migrate(ctx context.Context, dialect goose.Dialect, conn *sql.DB, dir string) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(dialect, conn, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	for _, r := range results {
		slog.Info("migration applied", "dialect", string(dialect), "version", r.Source.Version, "duration_ms", r.Duration.Milliseconds())
	}
	return nil
}
