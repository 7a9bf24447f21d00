package sites

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wagerboardAPI/internal/config"
	"wagerboardAPI/internal/types/leaderboard"
)

func bsiteTestConfig(url string) config.SiteConfig {
	return config.SiteConfig{
		SiteID:    config.SiteBsite,
		SiteName:  "B.site",
		URL:       url,
		APIKey:    "6959ede1-4887-4b50-9cad-6cb4d5517770",
		PrizePool: 800,
		Currency:  "usd",
		Prizes: []leaderboard.PrizeTier{
			{Place: 1, Amount: 400},
			{Place: 2, Amount: 200},
		},
	}
}

func TestBsiteFetchTrustsProviderRanks(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		json.Unmarshal(body, &req)
		gotKey = req["apiKey"]

		json.NewEncoder(w).Encode(map[string]interface{}{
			"wagers": []map[string]interface{}{
				{"rank": 1, "username": "highroller", "avatar": "a.png", "wager": 5000.129},
				{"rank": 2, "username": "steady", "avatar": "b.png", "wager": 3000},
			},
			"leaderboard": map[string]interface{}{
				"leaderboardRewards": []map[string]interface{}{
					{"place": 1, "winnings": 450},
					{"place": 2, "winnings": 225},
				},
				"config": map[string]interface{}{"value": 900},
			},
			"currentEntry": map[string]interface{}{
				// millisecond epoch served as a string
				"end":    "1767225600000",
				"status": "active",
			},
		})
	}))
	defer server.Close()

	f := NewBsiteFetcher(bsiteTestConfig(server.URL))
	snap := f.Fetch(context.Background())

	assert.Equal(t, "6959ede1-4887-4b50-9cad-6cb4d5517770", gotKey)
	assert.Equal(t, leaderboard.StatusActive, snap.Status)
	require.Len(t, snap.Users, 2)

	// provider ranks and provider reward map are trusted, not recomputed
	assert.Equal(t, 1, snap.Users[0].Rank)
	assert.Equal(t, float64(450), snap.Users[0].Prize)
	assert.Equal(t, float64(225), snap.Users[1].Prize)

	// usernames are sanitized but not masked on this site
	assert.Equal(t, "highroller", snap.Users[0].Username)
	assert.Equal(t, 5000.13, snap.Users[0].Wagered)

	// the provider-reported pool overrides the static one
	assert.Equal(t, float64(900), snap.PrizePool)

	require.NotNil(t, snap.CountdownEnd)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), *snap.CountdownEnd)
}

func TestBsiteFetchMaintenanceTakesPrecedence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"maintenance": true,
			"error":       true,
			"msg":         "B.site is down for scheduled maintenance",
		})
	}))
	defer server.Close()

	f := NewBsiteFetcher(bsiteTestConfig(server.URL))
	snap := f.Fetch(context.Background())

	assert.Equal(t, leaderboard.StatusMaintenance, snap.Status)
	assert.Equal(t, "B.site is down for scheduled maintenance", snap.Message)
	assert.Empty(t, snap.Users)
	assert.Equal(t, float64(800), snap.PrizePool)
}

func TestBsiteFetchErrorFlagHidesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"error": true})
	}))
	defer server.Close()

	f := NewBsiteFetcher(bsiteTestConfig(server.URL))
	snap := f.Fetch(context.Background())

	assert.Equal(t, leaderboard.StatusError, snap.Status)
	// a fixed message, never the upstream error text
	assert.Equal(t, bsiteUnavailableMsg, snap.Message)
}

func TestBsiteFetchNonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer server.Close()

	f := NewBsiteFetcher(bsiteTestConfig(server.URL))
	snap := f.Fetch(context.Background())

	assert.Equal(t, leaderboard.StatusError, snap.Status)
	assert.Equal(t, bsiteUnavailableMsg, snap.Message)
}

func TestBsiteFetchUnparseableCountdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"wagers":       []map[string]interface{}{},
			"currentEntry": map[string]interface{}{"end": "soon"},
		})
	}))
	defer server.Close()

	f := NewBsiteFetcher(bsiteTestConfig(server.URL))
	snap := f.Fetch(context.Background())

	// a broken countdown field must not fail the whole request
	assert.Equal(t, leaderboard.StatusActive, snap.Status)
	assert.Nil(t, snap.CountdownEnd)
}
