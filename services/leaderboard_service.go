package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"wagerboardAPI/internal/sites"
	"wagerboardAPI/internal/types/leaderboard"
)

// ErrUnknownSite is returned for site ids outside the registry. Handlers map
// it to a 404.
var ErrUnknownSite = errors.New("unknown site")

var (
	upstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_upstream_fetches_total",
			Help: "Live fetches against partner APIs, by site and snapshot status",
		},
		[]string{"site", "status"},
	)
	upstreamFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leaderboard_upstream_fetch_duration_seconds",
			Help:    "Duration of live fetches against partner APIs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"site"},
	)
)

// InitMetrics registers the service metrics. Call this once from main.go.
func InitMetrics() {
	prometheus.MustRegister(upstreamFetches)
	prometheus.MustRegister(upstreamFetchDuration)
}

// LeaderboardService is the aggregation facade: it answers every leaderboard
// request from the cache when fresh, or from the matching site fetcher with
// a write-through otherwise.
type LeaderboardService struct {
	registry *sites.Registry
	cache    SnapshotCache
	now      func() time.Time
}

// NewLeaderboardService wires the facade. cache may be nil, which disables
// caching and makes every request a live fetch.
func NewLeaderboardService(registry *sites.Registry, cache SnapshotCache) *LeaderboardService {
	return &LeaderboardService{
		registry: registry,
		cache:    cache,
		now:      time.Now,
	}
}

// ValidSiteIDs lists every registered site id in sorted order.
func (s *LeaderboardService) ValidSiteIDs() []string {
	return s.registry.IDs()
}

// Resolve returns the snapshot for one site, cached or freshly fetched.
// Fetcher failures never surface as errors here; they arrive as snapshots
// with an error status. The only error is ErrUnknownSite.
func (s *LeaderboardService) Resolve(ctx context.Context, siteID string) (leaderboard.Snapshot, error) {
	fetcher, err := s.registry.Get(siteID)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSite, siteID)
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, siteID); ok {
			return *cached, nil
		}
	}

	start := time.Now()
	snap := fetcher.Fetch(ctx)
	upstreamFetches.WithLabelValues(siteID, snap.Status).Inc()
	upstreamFetchDuration.WithLabelValues(siteID).Observe(time.Since(start).Seconds())

	snap.LastUpdated = s.now().UTC()
	if s.cache != nil {
		s.cache.Put(ctx, siteID, &snap)
	}
	return snap, nil
}

// ResolveAll resolves every registered site sequentially. A failure in one
// site never aborts the aggregate: the failing key carries a FailureRecord
// instead of a snapshot.
func (s *LeaderboardService) ResolveAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{})
	for _, siteID := range s.registry.IDs() {
		results[siteID] = s.resolveGuarded(ctx, siteID)
	}
	return results
}

// resolveGuarded is the per-site boundary of ResolveAll: it converts errors
// and even panics into a FailureRecord so partial results always come back.
func (s *LeaderboardService) resolveGuarded(ctx context.Context, siteID string) (result interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic resolving %s leaderboard: %v", siteID, r)
			result = leaderboard.FailureRecord{
				SiteID: siteID,
				Error:  fmt.Sprint(r),
				Status: leaderboard.StatusError,
			}
		}
	}()

	snap, err := s.Resolve(ctx, siteID)
	if err != nil {
		log.Printf("Error resolving %s leaderboard: %v", siteID, err)
		return leaderboard.FailureRecord{
			SiteID: siteID,
			Error:  err.Error(),
			Status: leaderboard.StatusError,
		}
	}
	return snap
}

// ForceRefresh invalidates the cached snapshot and resolves live. The site
// id is validated before the cache is touched.
func (s *LeaderboardService) ForceRefresh(ctx context.Context, siteID string) (leaderboard.Snapshot, error) {
	if _, err := s.registry.Get(siteID); err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownSite, siteID)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, siteID)
	}
	return s.Resolve(ctx, siteID)
}
