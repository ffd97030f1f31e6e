//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/projects-sync/internal/adapter/postgres"
)

// SetupTestDB connects to the test database and applies the migrations.
// It skips the test if TEST_DATABASE_URL is not set. Every call shares the
// same database, so callers isolate by unique owner/repository names.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect to test DB: %v", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("migrate test DB: %v", err)
	}

	t.Cleanup(func() { pool.Close() })
	return pool
}
