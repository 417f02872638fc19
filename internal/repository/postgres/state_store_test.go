package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vivero-po/internal/config"
	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/state"
)

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "vivero", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vivero sslmode=disable", DSN(cfg))
}

func TestDriverName(t *testing.T) {
	tests := map[string]string{
		"":         "pgx",
		"pgx":      "pgx",
		"postgres": "postgres",
		"pq":       "postgres",
	}
	for in, want := range tests {
		assert.Equal(t, want, DriverName(&config.DatabaseConfig{Driver: in}), in)
	}
}

// Runs against a real database when POSTGRES_TEST_HOST is set.
func TestStateStoreRoundTrip(t *testing.T) {
	host := os.Getenv("POSTGRES_TEST_HOST")
	if host == "" {
		t.Skip("POSTGRES_TEST_HOST not set")
	}

	db, err := NewDB(&config.DatabaseConfig{
		Host:     host,
		Port:     envOr("POSTGRES_TEST_PORT", "5432"),
		User:     envOr("POSTGRES_TEST_USER", "postgres"),
		Password: envOr("POSTGRES_TEST_PASSWORD", "postgres"),
		DBName:   envOr("POSTGRES_TEST_DB", "vivero_po_test"),
		SSLMode:  "disable",
	})
	require.NoError(t, err)

	ctx := context.Background()
	store, err := NewStateStore(ctx, db)
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	snap := state.NewSnapshot()
	snap.LastWeek = 15
	snap.UpdatedAt = now
	snap.Articles["8000000001"] = domain.ArticleState{Code: "8000000001", Stock: 12.5, LastWeek: 15, LastOrder: 4, TotalOrdered: 9, UpdatedAt: now}
	snap.Executions = append(snap.Executions, domain.ExecutionRecord{ID: "run-1", Week: 15, StartedAt: now, Success: true})
	require.NoError(t, store.Save(ctx, snap))

	require.NoError(t, store.AppendExecution(ctx, domain.ExecutionRecord{ID: "run-2", Week: 17, StartedAt: now.Add(time.Minute), Error: "week 17 is out of order"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, loaded.LastWeek)
	assert.Equal(t, 12.5, loaded.Articles["8000000001"].Stock)
	require.Len(t, loaded.Executions, 2)
	assert.Equal(t, "run-1", loaded.Executions[0].ID)
	assert.False(t, loaded.Executions[1].Success)

	require.NoError(t, store.Reset(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Articles)
	assert.Empty(t, loaded.Executions)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
