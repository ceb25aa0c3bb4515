package store

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupListingDB(t *testing.T) *RunRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// In-memory SQLite is per-connection; a second pooled connection
	// would see an empty database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRunRepository(db, zerolog.Nop())
	require.NoError(t, repo.Migrate())
	return repo
}

func TestListRecentNewestFirst(t *testing.T) {
	repo := setupListingDB(t)
	base := time.Date(2026, 8, 18, 17, 30, 0, 0, time.UTC)

	for i, id := range []string{"run-mon", "run-tue", "run-wed"} {
		require.NoError(t, repo.Record(Run{
			ID:        id,
			Pipeline:  "daily",
			AsOf:      base.AddDate(0, 0, i).Format("2006-01-02"),
			CreatedAt: base.AddDate(0, 0, i),
			Status:    StatusCompleted,
		}, nil))
	}

	runs, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-wed", runs[0].ID)
	assert.Equal(t, "run-tue", runs[1].ID)
	assert.Equal(t, "run-mon", runs[2].ID)
	assert.Equal(t, base.AddDate(0, 0, 2), runs[0].CreatedAt)
}

func TestListRecentLimit(t *testing.T) {
	repo := setupListingDB(t)
	base := time.Date(2026, 8, 18, 17, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(Run{
			ID:        NewRunID(),
			Pipeline:  "daily",
			AsOf:      "2026-08-18",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    StatusCompleted,
		}, nil))
	}

	runs, err := repo.ListRecent(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestListRecentEmpty(t *testing.T) {
	repo := setupListingDB(t)

	runs, err := repo.ListRecent(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
