package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
	"wagerboardAPI/utils"
)

// ClashFetcher pulls the monthly wager race from Clash.gg. The endpoint is
// parameterized by the first day of the current UTC month and entries come
// back unranked, so ranking is assigned here after sorting by wager.
type ClashFetcher struct {
	cfg    config.SiteConfig
	client *http.Client
	now    func() time.Time
}

func NewClashFetcher(cfg config.SiteConfig) *ClashFetcher {
	return &ClashFetcher{
		cfg:    cfg,
		client: newHTTPClient(),
		now:    time.Now,
	}
}

func (f *ClashFetcher) SiteID() string   { return f.cfg.SiteID }
func (f *ClashFetcher) SiteName() string { return f.cfg.SiteName }

type clashEntry struct {
	Name    string  `json:"name"`
	Avatar  string  `json:"avatar"`
	Wagered float64 `json:"wagered"`
}

func (f *ClashFetcher) Fetch(ctx context.Context) leaderboard.Snapshot {
	now := f.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	url := fmt.Sprintf("%s/%s", f.cfg.BaseURL, monthStart.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return f.failure(err)
	}
	req.Header.Set("Authorization", "Bearer "+f.cfg.AuthToken)
	req.Header.Set("Cookie", f.cfg.Cookie)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return f.failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return f.failure(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var raw []clashEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return f.failure(fmt.Errorf("failed to decode response: %w", err))
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].Wagered > raw[j].Wagered })
	if len(raw) > leaderboard.MaxEntries {
		raw = raw[:leaderboard.MaxEntries]
	}

	users := make([]leaderboard.Entry, 0, len(raw))
	for i, u := range raw {
		users = append(users, leaderboard.Entry{
			Rank:     i + 1,
			Username: utils.MaskUsername(u.Name, maskVisibleChars),
			Avatar:   u.Avatar,
			Wagered:  round2(u.Wagered),
			Prize:    prizeForPlace(f.cfg.Prizes, i+1),
		})
	}

	// Last instant of the current UTC month; AddDate normalizes the
	// December -> January rollover.
	endOfMonth := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	snap := emptySnapshot(f.cfg, leaderboard.StatusActive, "")
	snap.Users = users
	snap.CountdownEnd = &endOfMonth
	return snap
}

func (f *ClashFetcher) failure(err error) leaderboard.Snapshot {
	log.Printf("Error fetching Clash.gg data: %v", err)
	return emptySnapshot(f.cfg, leaderboard.StatusError,
		fmt.Sprintf("Failed to fetch Clash.gg data: %v", err))
}
