package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/repo/repotest"
)

var _ repo.Store = (*Store)(nil)

// Runs only against a disposable database: every subtest truncates both tables.
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.MigratePostgres(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repotest.Run(t, func(t *testing.T) repo.Store {
		if _, err := pool.Exec(context.Background(), `TRUNCATE tasks, users`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return &nopCloseStore{NewStore(pool)}
	})
}

// nopCloseStore keeps the shared pool open across subtests.
type nopCloseStore struct{ *Store }

func (nopCloseStore) Close() error { return nil }
