package leaderboard

import "time"

// Snapshot status values. A snapshot always carries one of these so the
// frontend can render a card even when a site is down.
const (
	StatusActive        = "active"
	StatusEnded         = "ended"
	StatusMaintenance   = "maintenance"
	StatusNotConfigured = "not_configured"
	StatusError         = "error"
)

// MaxEntries is the number of leaderboard places exposed per site.
const MaxEntries = 10

type PrizeTier struct {
	Place  int     `json:"place"`
	Amount float64 `json:"amount"`
}

type Entry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Avatar   string  `json:"avatar"`
	Wagered  float64 `json:"wagered"`
	Prize    float64 `json:"prize"`
}

// Snapshot is the normalized leaderboard for one site. CountdownEnd is a
// pointer on purpose: an unknown end date serializes as an explicit null.
type Snapshot struct {
	SiteID       string      `json:"site_id"`
	SiteName     string      `json:"site_name"`
	Users        []Entry     `json:"users"`
	PrizePool    float64     `json:"prize_pool"`
	Currency     string      `json:"currency"`
	Prizes       []PrizeTier `json:"prizes"`
	CountdownEnd *time.Time  `json:"countdown_end"`
	Status       string      `json:"status"`
	Message      string      `json:"message,omitempty"`
	LastUpdated  time.Time   `json:"last_updated"`
}

// FailureRecord is what ResolveAll emits for a site whose resolution failed
// outright, so the aggregate endpoint can always return all keys.
type FailureRecord struct {
	SiteID string `json:"site_id"`
	Error  string `json:"error"`
	Status string `json:"status"`
}
