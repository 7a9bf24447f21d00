package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
	"wagerboardAPI/utils"
)

const bsiteUnavailableMsg = "B.site is temporarily unavailable. Please try again later."
const bsiteMaintenanceMsg = "B.site is currently under maintenance. Please check back later."

// BsiteFetcher connects to the B.site leaderboard with an API key. Unlike
// the other sites, B.site ranks entries itself and ships its own
// place -> winnings map, so neither ranking nor the static tier table is
// applied here.
type BsiteFetcher struct {
	cfg    config.SiteConfig
	client *http.Client
}

func NewBsiteFetcher(cfg config.SiteConfig) *BsiteFetcher {
	return &BsiteFetcher{
		cfg:    cfg,
		client: newHTTPClient(),
	}
}

func (f *BsiteFetcher) SiteID() string   { return f.cfg.SiteID }
func (f *BsiteFetcher) SiteName() string { return f.cfg.SiteName }

type bsiteWager struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Wager    float64 `json:"wager"`
}

type bsiteResponse struct {
	Maintenance bool         `json:"maintenance"`
	Msg         string       `json:"msg"`
	Error       bool         `json:"error"`
	Wagers      []bsiteWager `json:"wagers"`
	Leaderboard struct {
		LeaderboardRewards []struct {
			Place    int     `json:"place"`
			Winnings float64 `json:"winnings"`
		} `json:"leaderboardRewards"`
		Config struct {
			Value float64 `json:"value"`
		} `json:"config"`
	} `json:"leaderboard"`
	CurrentEntry struct {
		End    json.RawMessage `json:"end"`
		Status string          `json:"status"`
	} `json:"currentEntry"`
}

func (f *BsiteFetcher) Fetch(ctx context.Context) leaderboard.Snapshot {
	payload, err := json.Marshal(map[string]string{"apiKey": f.cfg.APIKey})
	if err != nil {
		return f.failure(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return f.failure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "b.site")

	resp, err := f.client.Do(req)
	if err != nil {
		return f.failure(err)
	}
	defer resp.Body.Close()

	// The body is decoded before the status check: B.site reports
	// maintenance with a non-200 status and a JSON body.
	var data bsiteResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return f.failure(fmt.Errorf("failed to decode response: %w", err))
	}

	if data.Maintenance {
		msg := data.Msg
		if msg == "" {
			msg = bsiteMaintenanceMsg
		}
		return emptySnapshot(f.cfg, leaderboard.StatusMaintenance, msg)
	}

	if resp.StatusCode != http.StatusOK {
		return f.failure(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if data.Error {
		return f.failure(errors.New("API returned an error"))
	}

	prizeLookup := make(map[int]float64, len(data.Leaderboard.LeaderboardRewards))
	for _, r := range data.Leaderboard.LeaderboardRewards {
		prizeLookup[r.Place] = r.Winnings
	}

	wagers := data.Wagers
	if len(wagers) > leaderboard.MaxEntries {
		wagers = wagers[:leaderboard.MaxEntries]
	}

	users := make([]leaderboard.Entry, 0, len(wagers))
	for _, w := range wagers {
		users = append(users, leaderboard.Entry{
			Rank:     w.Rank,
			Username: utils.SanitizeUsername(w.Username),
			Avatar:   w.Avatar,
			Wagered:  round2(w.Wager),
			Prize:    prizeLookup[w.Rank],
		})
	}

	status := data.CurrentEntry.Status
	if status == "" {
		status = leaderboard.StatusActive
	}

	snap := emptySnapshot(f.cfg, status, "")
	snap.Users = users
	if data.Leaderboard.Config.Value != 0 {
		snap.PrizePool = data.Leaderboard.Config.Value
	}
	if end, ok := parseEpochMillis(data.CurrentEntry.End); ok {
		snap.CountdownEnd = &end
	}
	return snap
}

// failure deliberately returns a fixed message instead of the underlying
// error text, so upstream failure detail never leaks to API consumers.
func (f *BsiteFetcher) failure(err error) leaderboard.Snapshot {
	log.Printf("Error fetching B.site data: %v", err)
	return emptySnapshot(f.cfg, leaderboard.StatusError, bsiteUnavailableMsg)
}

// parseEpochMillis reads a millisecond epoch that B.site serves either as a
// number or a numeric string. Anything unparseable means no countdown.
func parseEpochMillis(raw json.RawMessage) (time.Time, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
