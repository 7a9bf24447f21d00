package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
	"wagerboardAPI/utils"
)

// csbattleDateLayout is the format CSBattle uses for both the query window
// and the configured public end date.
const csbattleDateLayout = "2006-01-02 15:04:05"

// CSBattleFetcher queries the CSBattle affiliate leaderboard over a date
// window. The fetch window (from/to query params) is intentionally narrower
// than the publicly displayed competition end date.
type CSBattleFetcher struct {
	cfg    config.SiteConfig
	client *http.Client
}

func NewCSBattleFetcher(cfg config.SiteConfig) *CSBattleFetcher {
	return &CSBattleFetcher{
		cfg:    cfg,
		client: newHTTPClient(),
	}
}

func (f *CSBattleFetcher) SiteID() string   { return f.cfg.SiteID }
func (f *CSBattleFetcher) SiteName() string { return f.cfg.SiteName }

type csbattleUser struct {
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Wager    float64 `json:"wager"`
}

func (f *CSBattleFetcher) Fetch(ctx context.Context) leaderboard.Snapshot {
	if f.cfg.AffiliateID == "" {
		return emptySnapshot(f.cfg, leaderboard.StatusNotConfigured, "CSBattle API not configured.")
	}

	endpoint := fmt.Sprintf("%s/%s", f.cfg.URL, f.cfg.AffiliateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return f.failure(err)
	}

	query := url.Values{}
	query.Set("from", f.cfg.StartDate)
	query.Set("to", f.cfg.FetchEndDate)
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return f.failure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return f.failure(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.failure(err)
	}

	raw, err := decodeCSBattleUsers(body)
	if err != nil {
		return f.failure(err)
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].Wager > raw[j].Wager })
	if len(raw) > leaderboard.MaxEntries {
		raw = raw[:leaderboard.MaxEntries]
	}

	users := make([]leaderboard.Entry, 0, len(raw))
	for i, u := range raw {
		users = append(users, leaderboard.Entry{
			Rank:     i + 1,
			Username: utils.SanitizeUsername(u.Username),
			Avatar:   u.Avatar,
			Wagered:  round2(u.Wager),
			Prize:    prizeForPlace(f.cfg.Prizes, i+1),
		})
	}

	snap := emptySnapshot(f.cfg, leaderboard.StatusActive, "")
	snap.Users = users

	// The countdown shows the configured competition end, not the fetch
	// window. A bad date just means no countdown.
	if end, err := time.ParseInLocation(csbattleDateLayout, f.cfg.EndDate, time.UTC); err == nil {
		snap.CountdownEnd = &end
	}
	return snap
}

// decodeCSBattleUsers accepts both response shapes CSBattle has been seen to
// serve: a bare JSON array and an object wrapping it in a "users" field.
func decodeCSBattleUsers(body []byte) ([]csbattleUser, error) {
	var list []csbattleUser
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Users []csbattleUser `json:"users"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return wrapped.Users, nil
}

func (f *CSBattleFetcher) failure(err error) leaderboard.Snapshot {
	log.Printf("Error fetching CSBattle data: %v", err)
	return emptySnapshot(f.cfg, leaderboard.StatusError, err.Error())
}
