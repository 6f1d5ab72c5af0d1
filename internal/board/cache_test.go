package board

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclinic/kioskboard/internal/api"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	c, err := NewCache(filepath.Join(t.TempDir(), "snapshot.db"), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestCacheLoadEmpty(t *testing.T) {
	c := newTestCache(t)

	snap, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestCacheSaveLoadRoundtrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	want := Snapshot{
		enc("A", "IN_ROOM", 3, "R. Okafor", "J. Lin"),
		enc("B", "WAITING", 0),
	}
	want[1].LocationRaw = "TBD"

	require.NoError(t, c.Save(ctx, want))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].ID)
	assert.Equal(t, "IN_ROOM", got[0].Status)
	assert.Equal(t, 3, got[0].Location)
	assert.Equal(t, []string{"R. Okafor", "J. Lin"}, got[0].Staff)
	assert.True(t, want[0].ArrivedAt.Equal(got[0].ArrivedAt))

	assert.Equal(t, "B", got[1].ID)
	assert.Equal(t, "TBD", got[1].LocationRaw)
	assert.True(t, got[1].Unassigned())
	assert.Empty(t, got[1].Staff)
}

func TestCacheSavePreservesOrder(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// Saved in display order, which is not identity order.
	want := Snapshot{enc("z", "WAITING", 1), enc("a", "WAITING", 2), enc("m", "WAITING", 3)}
	require.NoError(t, c.Save(ctx, want))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "z", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "m", got[2].ID)
}

func TestCacheSaveReplacesPrevious(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, Snapshot{enc("A", "WAITING", 1), enc("B", "WAITING", 2)}))
	require.NoError(t, c.Save(ctx, Snapshot{enc("C", "IN_ROOM", 4)}))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].ID)
}

func TestCacheSaveEmptyClearsAll(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, Snapshot{enc("A", "WAITING", 1)}))
	require.NoError(t, c.Save(ctx, nil))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheSchedulerPrimePublishesCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, Snapshot{enc("A", "WAITING", 2), enc("B", "IN_ROOM", 1)}))

	publish, updates := collectUpdates()
	s := NewScheduler(&SchedulerConfig{
		Fetcher: &scriptedFetcher{script: []fetchResult{{recs: nil}}},
		Cache:   c,
		Publish: publish,
		Logger:  quietLogger(),
	})

	s.Prime(ctx)

	u := awaitUpdate(t, updates)
	assert.Equal(t, []string{"B", "A"}, visibleIDs(u))
	assert.True(t, u.Changes.Empty())
}

func TestCacheZeroArrivalSurvives(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	rec := api.Encounter{ID: "A", Status: "WAITING", Location: 1}
	require.NoError(t, c.Save(ctx, Snapshot{rec}))

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].ArrivedAt.IsZero())
}

func TestCacheReopenedDatabaseKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.db")
	ctx := context.Background()

	first, err := NewCache(path, quietLogger())
	require.NoError(t, err)

	saved := Snapshot{enc("A", "WAITING", 1)}
	saved[0].ArrivedAt = time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC)
	require.NoError(t, first.Save(ctx, saved))
	require.NoError(t, first.Close())

	second, err := NewCache(path, quietLogger())
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].ID)
	assert.True(t, saved[0].ArrivedAt.Equal(got[0].ArrivedAt))
}
