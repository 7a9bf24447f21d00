package config

import (
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"

	"wagerboardAPI/internal/types/leaderboard"
)

// Site ids known to the aggregator.
const (
	SiteClash    = "clash"
	SiteBsite    = "bsite"
	SiteCSBattle = "csbattle"
	SiteSkinfans = "skinfans"
)

// SiteConfig is the static, per-provider configuration. Fields that do not
// apply to a provider are simply left empty (each adapter reads its own).
type SiteConfig struct {
	SiteID   string
	SiteName string

	// Clash.gg
	BaseURL   string
	AuthToken string
	Cookie    string

	// B.site
	URL    string
	APIKey string

	// CSBattle
	AffiliateID  string
	StartDate    string
	EndDate      string
	FetchEndDate string

	// Skin.fans
	Token string

	PrizePool float64
	Currency  string
	Prizes    []leaderboard.PrizeTier
}

// Config holds everything the process reads from the environment. Built once
// at startup and passed by value into constructors.
type Config struct {
	Port        string
	DatabaseURL string

	// Minutes between background cache warms; 0 disables the scheduler.
	WarmIntervalMinutes int

	Sites map[string]SiteConfig
}

// Load reads configuration from environment variables. Missing credentials
// are left empty: Clash/B.site requests will then fail upstream and surface
// as error-status snapshots, CSBattle/Skin.fans short-circuit to
// not_configured without a network call.
func Load() Config {
	cfg := Config{
		Port:        getEnvOrDefault("PORT", "3333"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Sites:       make(map[string]SiteConfig),
	}

	warmStr := getEnvOrDefault("CACHE_WARM_INTERVAL_MINUTES", "0")
	warm, err := strconv.Atoi(warmStr)
	if err != nil || warm < 0 {
		log.Printf("Invalid CACHE_WARM_INTERVAL_MINUTES %q, disabling cache warmer", warmStr)
		warm = 0
	}
	cfg.WarmIntervalMinutes = warm

	cfg.Sites[SiteClash] = SiteConfig{
		SiteID:    SiteClash,
		SiteName:  "Clash.gg",
		BaseURL:   getEnvOrDefault("CLASH_API_URL", "https://api.clash.gg/affiliates/detailed-summary/v2"),
		AuthToken: os.Getenv("CLASH_API_TOKEN"),
		Cookie:    os.Getenv("CLASH_API_COOKIE"),
		PrizePool: 700,
		Currency:  "gems",
		Prizes: []leaderboard.PrizeTier{
			{Place: 1, Amount: 380},
			{Place: 2, Amount: 160},
			{Place: 3, Amount: 80},
			{Place: 4, Amount: 50},
			{Place: 5, Amount: 15},
			{Place: 6, Amount: 10},
			{Place: 7, Amount: 5},
		},
	}

	cfg.Sites[SiteBsite] = SiteConfig{
		SiteID:    SiteBsite,
		SiteName:  "B.site",
		URL:       getEnvOrDefault("BSITE_API_URL", "https://api.b.site/leaderboard/connect-by-key"),
		APIKey:    os.Getenv("BSITE_API_KEY"),
		PrizePool: 800,
		Currency:  "usd",
		Prizes: []leaderboard.PrizeTier{
			{Place: 1, Amount: 400},
			{Place: 2, Amount: 200},
			{Place: 3, Amount: 100},
			{Place: 4, Amount: 50},
			{Place: 5, Amount: 30},
			{Place: 6, Amount: 15},
		},
	}

	cfg.Sites[SiteCSBattle] = SiteConfig{
		SiteID:       SiteCSBattle,
		SiteName:     "CSBattle",
		URL:          getEnvOrDefault("CSBATTLE_API_URL", "https://api.csbattle.com/leaderboards/affiliates"),
		AffiliateID:  validatedAffiliateID(os.Getenv("CSBATTLE_AFFILIATE_ID")),
		StartDate:    getEnvOrDefault("CSBATTLE_START_DATE", "2026-02-01 00:00:00"),
		EndDate:      getEnvOrDefault("CSBATTLE_END_DATE", "2026-02-18 20:30:00"),
		FetchEndDate: getEnvOrDefault("CSBATTLE_FETCH_END_DATE", "2026-02-05 23:59:59"),
		PrizePool:    600,
		Currency:     "coins",
		Prizes: []leaderboard.PrizeTier{
			{Place: 1, Amount: 300},
			{Place: 2, Amount: 150},
			{Place: 3, Amount: 80},
			{Place: 4, Amount: 40},
			{Place: 5, Amount: 20},
			{Place: 6, Amount: 10},
		},
	}

	cfg.Sites[SiteSkinfans] = SiteConfig{
		SiteID:    SiteSkinfans,
		SiteName:  "Skin.fans",
		URL:       getEnvOrDefault("SKINFANS_API_URL", "https://api.skin.fans/public/partnership.get-race"),
		Token:     os.Getenv("SKINFANS_TOKEN"),
		PrizePool: 500,
		Currency:  "coins",
		Prizes: []leaderboard.PrizeTier{
			{Place: 1, Amount: 300},
			{Place: 2, Amount: 120},
			{Place: 3, Amount: 50},
			{Place: 4, Amount: 20},
			{Place: 5, Amount: 10},
		},
	}

	return cfg
}

// validatedAffiliateID rejects malformed CSBattle affiliate ids up front.
// The upstream issues UUIDs, so anything else would only burn a doomed
// request; treat it the same as not configured.
func validatedAffiliateID(id string) string {
	if id == "" {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		log.Printf("CSBATTLE_AFFILIATE_ID %q is not a valid UUID, treating CSBattle as not configured", id)
		return ""
	}
	return id
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
