package odds

import (
	"context"
	"time"
)

// Markets requested from the odds feed.
const (
	MarketMoneyline = "h2h"
	MarketSpreads   = "spreads"
	MarketTotals    = "totals"
)

// Line is one bookmaker price for one outcome of one market of one game.
type Line struct {
	FetchedAt    time.Time  `json:"fetched_at"`
	GameID       string     `json:"game_id"`
	CommenceTime time.Time  `json:"commence_time"`
	HomeTeam     string     `json:"home_team"`
	AwayTeam     string     `json:"away_team"`
	Bookmaker    string     `json:"bookmaker"`
	Market       string     `json:"market"`
	OutcomeName  string     `json:"outcome_name"`
	Price        float64    `json:"price"`
	Point        *float64   `json:"point,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
}

// Quota reports the provider's request accounting for the last call.
type Quota struct {
	Used      int `json:"requests_last"`
	Remaining int `json:"requests_remaining"`
}

// Snapshot is the flattened result of one fetch.
type Snapshot struct {
	Sport     string    `json:"sport"`
	FetchedAt time.Time `json:"fetched_at"`
	Lines     []Line    `json:"lines"`
	Skipped   int       `json:"skipped"`
	Quota     Quota     `json:"quota"`
}

func (s Snapshot) Empty() bool {
	return len(s.Lines) == 0
}

// Games counts distinct game ids.
func (s Snapshot) Games() int {
	seen := make(map[string]struct{}, len(s.Lines))
	for _, l := range s.Lines {
		seen[l.GameID] = struct{}{}
	}
	return len(seen)
}

// Store persists snapshots.
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) (string, error)
}

// Source fetches current lines for one sport key.
type Source interface {
	FetchOdds(ctx context.Context, sport string) (Snapshot, error)
}
