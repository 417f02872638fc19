package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "state", "state.json"))
			require.NoError(t, err)
			return s
		},
		"bolt": func() Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, time.April, 8, 6, 0, 0, 0, time.UTC)

	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			defer store.Close()

			empty, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty.Articles)
			assert.Equal(t, 0, empty.LastWeek)

			snap := NewSnapshot()
			snap.LastWeek = 15
			snap.UpdatedAt = base
			snap.Articles["8000000001"] = domain.ArticleState{Code: "8000000001", Stock: 12.5, LastWeek: 15, LastOrder: 4}
			snap.Executions = []domain.ExecutionRecord{
				{ID: "b", Week: 15, StartedAt: base.Add(time.Hour), Success: true,
					Sections: map[domain.Section]domain.SectionTotals{domain.SectionNursery: {Articles: 1, Units: 4, Amount: 20}}},
				{ID: "a", Week: 14, StartedAt: base, Success: true},
			}
			require.NoError(t, store.Save(ctx, snap))

			require.NoError(t, store.AppendExecution(ctx, domain.ExecutionRecord{
				ID: "c", Week: 16, StartedAt: base.Add(2 * time.Hour), Success: false, Error: "missing target",
			}))

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 15, got.LastWeek)
			assert.True(t, base.Equal(got.UpdatedAt))
			require.Contains(t, got.Articles, "8000000001")
			assert.Equal(t, 12.5, got.Articles["8000000001"].Stock)
			assert.Equal(t, 4, got.Articles["8000000001"].LastOrder)

			require.Len(t, got.Executions, 3)
			assert.Equal(t, "a", got.Executions[0].ID)
			assert.Equal(t, "b", got.Executions[1].ID)
			assert.Equal(t, "c", got.Executions[2].ID)
			assert.Equal(t, 4, got.Executions[1].Sections[domain.SectionNursery].Units)
			assert.Equal(t, "missing target", got.Executions[2].Error)

			// a second save replaces articles and does not duplicate history
			got.Articles = map[string]domain.ArticleState{"9000000001": {Code: "9000000001", Stock: 1}}
			require.NoError(t, store.Save(ctx, got))
			again, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, again.Articles, 1)
			assert.Contains(t, again.Articles, "9000000001")
			assert.Len(t, again.Executions, 3)

			require.NoError(t, store.Reset(ctx))
			cleared, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, cleared.Articles)
			assert.Empty(t, cleared.Executions)
			assert.Equal(t, 0, cleared.LastWeek)
		})
	}
}

func TestFileStoreFallsBackToBackup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	first := NewSnapshot()
	first.LastWeek = 7
	require.NoError(t, store.Save(ctx, first))

	second := NewSnapshot()
	second.LastWeek = 8
	require.NoError(t, store.Save(ctx, second))

	_, err = os.Stat(path + ".backup")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got.LastWeek)

	require.NoError(t, os.WriteFile(path+".backup", []byte("also broken"), 0644))
	_, err = store.Load(ctx)
	assert.Error(t, err)
}

func TestFileStoreResetDropsBackup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	for _, week := range []int{7, 8} {
		snap := NewSnapshot()
		snap.LastWeek = week
		require.NoError(t, store.Save(ctx, snap))
	}
	require.NoError(t, store.Reset(ctx))

	_, err = os.Stat(path + ".backup")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = store.Load(ctx)
	assert.Error(t, err, "cleared state is not restored from an old backup")

	require.NoError(t, store.Reset(ctx), "nothing to remove the second time")
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	snap.Articles["X"] = domain.ArticleState{Code: "X", Stock: 3}

	again, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Articles)
}
