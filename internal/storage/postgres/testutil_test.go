package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"stellar-sentinel/internal/domain"
	"stellar-sentinel/internal/storage"
	"stellar-sentinel/internal/storage/migrations"
	"stellar-sentinel/internal/storage/postgres"
)

// setupTestDB creates a PostgreSQL container, applies the embedded
// migrations, and returns a connected pool. Returns a cleanup function that
// must be called after tests complete.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("test"),
		pgcontainer.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to run migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// seedAccount creates a minimal account row.
func seedAccount(t *testing.T, s *storage.Stores, address string) *domain.Account {
	t.Helper()
	account, _, err := s.Accounts.GetOrCreate(context.Background(), address, "test", time.Now().UTC())
	require.NoError(t, err, "failed to seed account %s", address)
	return account
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
