package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wagerboardAPI/internal/types/leaderboard"
)

// CacheFreshness is how long a cached snapshot is served before the next
// request triggers a live fetch. There is no expiry sweep; staleness is
// checked lazily at read time and stale rows are simply overwritten.
const CacheFreshness = 5 * time.Minute

// SnapshotCache is the freshness cache the facade talks to. Implementations
// must degrade gracefully: a broken or absent store behaves as a permanent
// miss on Get and a no-op on Put/Invalidate.
type SnapshotCache interface {
	Get(ctx context.Context, siteID string) (*leaderboard.Snapshot, bool)
	Put(ctx context.Context, siteID string, snap *leaderboard.Snapshot)
	Invalidate(ctx context.Context, siteID string)
}

// CacheService keeps one row per site in Postgres, upserted on every fresh
// fetch. A nil pool disables caching entirely without disabling the API.
type CacheService struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

func NewCacheService(db *pgxpool.Pool) *CacheService {
	return &CacheService{
		db:  db,
		ttl: CacheFreshness,
	}
}

// InitSchema creates the cache table if it does not exist yet.
func (s *CacheService) InitSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS leaderboard_cache (
			site_id      TEXT PRIMARY KEY,
			data         JSONB NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)`)
	return err
}

// Get returns the cached snapshot for a site if one exists and is still
// fresh. The snapshot's last_updated is taken from the cache record, not
// recomputed. Store errors count as a miss.
func (s *CacheService) Get(ctx context.Context, siteID string) (*leaderboard.Snapshot, bool) {
	if s.db == nil {
		return nil, false
	}

	var data []byte
	var lastUpdated time.Time

	query := `SELECT data, last_updated FROM leaderboard_cache WHERE site_id = $1`
	err := s.db.QueryRow(ctx, query, siteID).Scan(&data, &lastUpdated)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("Cache read for %s failed: %v", siteID, err)
		}
		return nil, false
	}

	if time.Since(lastUpdated) >= s.ttl {
		// stale rows stay in place; the next Put overwrites them
		return nil, false
	}

	var snap leaderboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("Cache payload for %s is corrupt: %v", siteID, err)
		return nil, false
	}

	snap.LastUpdated = lastUpdated.UTC()
	return &snap, true
}

// Put upserts the snapshot for a site, last write wins. Errors are logged
// and swallowed: a failed cache write must not fail the request.
func (s *CacheService) Put(ctx context.Context, siteID string, snap *leaderboard.Snapshot) {
	if s.db == nil {
		return
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.Printf("Failed to encode %s snapshot for cache: %v", siteID, err)
		return
	}

	query := `
		INSERT INTO leaderboard_cache (site_id, data, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (site_id)
		DO UPDATE SET data = EXCLUDED.data, last_updated = EXCLUDED.last_updated`

	if _, err := s.db.Exec(ctx, query, siteID, data, snap.LastUpdated); err != nil {
		log.Printf("Cache write for %s failed: %v", siteID, err)
	}
}

// Invalidate drops the cached row for a site; a no-op when absent.
func (s *CacheService) Invalidate(ctx context.Context, siteID string) {
	if s.db == nil {
		return
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM leaderboard_cache WHERE site_id = $1`, siteID); err != nil {
		log.Printf("Cache invalidation for %s failed: %v", siteID, err)
	}
}
