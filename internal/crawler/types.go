package crawler

import (
	"strings"
	"time"
)

// Player is one row of the players table. It is written once and never updated.
type Player struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	PlayerID   int64  `json:"player_id"`
	Joined     int64  `json:"joined"`
	LastOnline int64  `json:"last_online"`
	Followers  int64  `json:"followers"`
}

// Side is one player's view of a game.
type Side struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
}

// Game is one row of the games table. White and Black usernames feed the frontier.
type Game struct {
	TimeControl string `json:"time_control"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	TimeClass   string `json:"time_class"`
	Rules       string `json:"rules"`
	White       Side   `json:"white"`
	Black       Side   `json:"black"`
}

// FetchResponse is the raw result of a single GET.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// PassStats summarizes one SELECT-FRONTIER / PROCESS-ENTITY pass.
type PassStats struct {
	PassID   string `json:"pass_id"`
	Selected int    `json:"selected"`
	Stored   int    `json:"stored"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Games    int    `json:"games"`
}

// StoreStats reports table sizes for the ops API and the stats command.
type StoreStats struct {
	Players  int64 `json:"players"`
	Games    int64 `json:"games"`
	Frontier int64 `json:"frontier"`
}

// NormalizeUsername maps a username onto its case-insensitive identity.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
