package sites

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
)

// requestTimeout bounds every outbound call to a partner API. There are no
// retries: one failed call produces one error-status snapshot.
const requestTimeout = 30 * time.Second

// maskVisibleChars is how many leading characters of a username stay visible
// on sites that require masking.
const maskVisibleChars = 2

// Fetcher is implemented by one adapter per partner site.
//
// Fetch never returns an error: every failure (transport, bad status, parse)
// is folded into a snapshot with status "error" and the site's static prize
// pool, currency and prize tiers preserved, so consumers can always render a
// complete card.
type Fetcher interface {
	SiteID() string
	SiteName() string
	Fetch(ctx context.Context) leaderboard.Snapshot
}

// Registry maps site ids to their fetchers.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
	}
}

func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[f.SiteID()] = f
}

func (r *Registry) Get(siteID string) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fetchers[siteID]
	if !ok {
		return nil, fmt.Errorf("unknown site: %s", siteID)
	}
	return f, nil
}

// IDs returns all registered site ids in sorted order, so aggregate
// responses and error messages are stable.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.fetchers))
	for id := range r.fetchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
	}
}

// emptySnapshot builds the static shell for a site: no entries, but prize
// pool, currency and tiers populated from config.
func emptySnapshot(cfg config.SiteConfig, status, message string) leaderboard.Snapshot {
	return leaderboard.Snapshot{
		SiteID:    cfg.SiteID,
		SiteName:  cfg.SiteName,
		Users:     []leaderboard.Entry{},
		PrizePool: cfg.PrizePool,
		Currency:  cfg.Currency,
		Prizes:    cfg.Prizes,
		Status:    status,
		Message:   message,
	}
}

// prizeForPlace looks up the configured prize for a 1-based place, 0 when no
// tier matches.
func prizeForPlace(tiers []leaderboard.PrizeTier, place int) float64 {
	for _, t := range tiers {
		if t.Place == place {
			return t.Amount
		}
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
