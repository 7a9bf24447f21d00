package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
	"wagerboardAPI/utils"
)

// SkinfansFetcher pulls the current race payout from Skin.fans. Each place
// carries its own authoritative payout, so the static tier table is never
// consulted for this site.
type SkinfansFetcher struct {
	cfg    config.SiteConfig
	client *http.Client
}

func NewSkinfansFetcher(cfg config.SiteConfig) *SkinfansFetcher {
	return &SkinfansFetcher{
		cfg:    cfg,
		client: newHTTPClient(),
	}
}

func (f *SkinfansFetcher) SiteID() string   { return f.cfg.SiteID }
func (f *SkinfansFetcher) SiteName() string { return f.cfg.SiteName }

// flexFloat tolerates Skin.fans serving money fields as either JSON numbers
// or numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type skinfansUser struct {
	Name    string    `json:"name"`
	Avatar  string    `json:"avatar"`
	Wagered flexFloat `json:"wagered"`
}

type skinfansPlace struct {
	Payout flexFloat     `json:"payout"`
	User   *skinfansUser `json:"user"`
}

type skinfansRace struct {
	Places []skinfansPlace `json:"places"`
	EndsAt int64           `json:"ends_at"`
	Payout flexFloat       `json:"payout"`
	Active bool            `json:"active"`
}

type skinfansData struct {
	Race skinfansRace `json:"race"`
}

type skinfansEnvelope struct {
	Response *struct {
		Data skinfansData `json:"data"`
	} `json:"response"`
}

func (f *SkinfansFetcher) Fetch(ctx context.Context) leaderboard.Snapshot {
	if f.cfg.Token == "" {
		return emptySnapshot(f.cfg, leaderboard.StatusNotConfigured, "Skin.fans API not configured.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return f.failure(err)
	}

	query := url.Values{}
	query.Set("token", f.cfg.Token)
	query.Set("v", "1")
	req.URL.RawQuery = query.Encode()

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

	data, err := decodeSkinfansData(body)
	if err != nil {
		return f.failure(err)
	}
	race := data.Race

	places := race.Places
	if len(places) > leaderboard.MaxEntries {
		places = places[:leaderboard.MaxEntries]
	}

	users := make([]leaderboard.Entry, 0, len(places))
	for _, place := range places {
		// A place without a user is skipped and does not consume a
		// rank slot.
		if place.User == nil {
			continue
		}
		users = append(users, leaderboard.Entry{
			Rank:     len(users) + 1,
			Username: utils.MaskUsername(place.User.Name, maskVisibleChars),
			Avatar:   place.User.Avatar,
			Wagered:  round2(float64(place.User.Wagered)),
			Prize:    float64(place.Payout),
		})
	}

	status := leaderboard.StatusEnded
	if race.Active {
		status = leaderboard.StatusActive
	}

	snap := emptySnapshot(f.cfg, status, "")
	snap.Users = users
	if race.Payout != 0 {
		snap.PrizePool = float64(race.Payout)
	}
	if race.EndsAt > 0 {
		end := time.Unix(race.EndsAt, 0).UTC()
		snap.CountdownEnd = &end
	}
	return snap
}

// decodeSkinfansData unwraps the usual response.data envelope, falling back
// to the document itself when the envelope is missing.
func decodeSkinfansData(body []byte) (skinfansData, error) {
	var envelope skinfansEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Response != nil {
		return envelope.Response.Data, nil
	}

	var data skinfansData
	if err := json.Unmarshal(body, &data); err != nil {
		return skinfansData{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return data, nil
}

func (f *SkinfansFetcher) failure(err error) leaderboard.Snapshot {
	log.Printf("Error fetching Skin.fans data: %v", err)
	return emptySnapshot(f.cfg, leaderboard.StatusError, err.Error())
}
