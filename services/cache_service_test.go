package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagerboardAPI/internal/types/leaderboard"
)

func TestCacheServiceWithoutPool(t *testing.T) {
	cache := NewCacheService(nil)
	ctx := context.Background()

	// a disabled cache is a permanent miss and never panics
	snap, ok := cache.Get(ctx, "clash")
	assert.Nil(t, snap)
	assert.False(t, ok)

	cache.Put(ctx, "clash", &leaderboard.Snapshot{SiteID: "clash"})
	cache.Invalidate(ctx, "clash")
	assert.NoError(t, cache.InitSchema(ctx))

	snap, ok = cache.Get(ctx, "clash")
	assert.Nil(t, snap)
	assert.False(t, ok)
}

// setupCacheDB connects to TEST_DATABASE_URL, skipping when none is
// configured so the suite stays runnable without Postgres.
func setupCacheDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres cache tests")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(context.Background()))

	t.Cleanup(func() {
		pool.Exec(context.Background(), "DELETE FROM leaderboard_cache WHERE site_id LIKE 'test-%'")
		pool.Close()
	})
	return pool
}

func TestCacheServiceRoundTrip(t *testing.T) {
	pool := setupCacheDB(t)
	cache := NewCacheService(pool)
	ctx := context.Background()

	require.NoError(t, cache.InitSchema(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)
	snap := &leaderboard.Snapshot{
		SiteID:      "test-clash",
		SiteName:    "Clash.gg",
		Users:       []leaderboard.Entry{{Rank: 1, Username: "Al*******", Wagered: 1500.25, Prize: 380}},
		PrizePool:   700,
		Currency:    "gems",
		Status:      leaderboard.StatusActive,
		LastUpdated: now,
	}

	cache.Put(ctx, "test-clash", snap)

	got, ok := cache.Get(ctx, "test-clash")
	require.True(t, ok)
	assert.Equal(t, snap.Users, got.Users)
	assert.Equal(t, snap.Currency, got.Currency)
	// the record's own timestamp is returned, not a recomputed one
	assert.WithinDuration(t, now, got.LastUpdated, time.Millisecond)
}

func TestCacheServiceUpsertReplacesRow(t *testing.T) {
	pool := setupCacheDB(t)
	cache := NewCacheService(pool)
	ctx := context.Background()

	require.NoError(t, cache.InitSchema(ctx))

	first := &leaderboard.Snapshot{SiteID: "test-bsite", Status: leaderboard.StatusActive, LastUpdated: time.Now().UTC()}
	cache.Put(ctx, "test-bsite", first)

	second := &leaderboard.Snapshot{SiteID: "test-bsite", Status: leaderboard.StatusMaintenance, LastUpdated: time.Now().UTC()}
	cache.Put(ctx, "test-bsite", second)

	got, ok := cache.Get(ctx, "test-bsite")
	require.True(t, ok)
	assert.Equal(t, leaderboard.StatusMaintenance, got.Status)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM leaderboard_cache WHERE site_id = 'test-bsite'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCacheServiceStaleRowIsAMiss(t *testing.T) {
	pool := setupCacheDB(t)
	cache := NewCacheService(pool)
	ctx := context.Background()

	require.NoError(t, cache.InitSchema(ctx))

	old := &leaderboard.Snapshot{
		SiteID:      "test-skinfans",
		Status:      leaderboard.StatusActive,
		LastUpdated: time.Now().UTC().Add(-CacheFreshness - time.Minute),
	}
	cache.Put(ctx, "test-skinfans", old)

	_, ok := cache.Get(ctx, "test-skinfans")
	assert.False(t, ok)
}

func TestCacheServiceInvalidate(t *testing.T) {
	pool := setupCacheDB(t)
	cache := NewCacheService(pool)
	ctx := context.Background()

	require.NoError(t, cache.InitSchema(ctx))

	cache.Put(ctx, "test-csbattle", &leaderboard.Snapshot{
		SiteID:      "test-csbattle",
		Status:      leaderboard.StatusActive,
		LastUpdated: time.Now().UTC(),
	})

	cache.Invalidate(ctx, "test-csbattle")

	_, ok := cache.Get(ctx, "test-csbattle")
	assert.False(t, ok)

	// invalidating an absent row is a no-op
	cache.Invalidate(ctx, "test-csbattle")
}
