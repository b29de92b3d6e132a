package model

import (
	"time"

	"github.com/google/uuid"
)

// MatchSession carries one operator reconciliation run between steps:
// roster and cache snapshots plus the live results.
type MatchSession struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Roster    Roster        `json:"roster"`
	Cache     TheaterCache  `json:"cache"`
	Results   []MatchResult `json:"results"`
	Options   Options       `json:"-"`
}

func NewSession(roster Roster, cache TheaterCache, opts Options, now time.Time) *MatchSession {
	if cache.Markets == nil {
		cache.Markets = map[string]CacheMarket{}
	}
	return &MatchSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Roster:    roster,
		Cache:     cache,
		Options:   opts.WithDefaults(),
	}
}

// Find returns the index of the result for (market, originalName), or -1.
func (s *MatchSession) Find(market, originalName string) int {
	for i := range s.Results {
		if s.Results[i].Market == market && s.Results[i].OriginalName == originalName {
			return i
		}
	}
	return -1
}

// Upsert replaces results for the markets present in rs, keeping the rest.
func (s *MatchSession) Upsert(rs []MatchResult) {
	touched := map[string]bool{}
	for _, r := range rs {
		touched[r.Market] = true
	}
	kept := s.Results[:0:0]
	for _, r := range s.Results {
		if !touched[r.Market] {
			kept = append(kept, r)
		}
	}
	s.Results = append(kept, rs...)
}

// MarketResults returns the results of one market in roster order.
func (s *MatchSession) MarketResults(market string) []MatchResult {
	var out []MatchResult
	for _, r := range s.Results {
		if r.Market == market {
			out = append(out, r)
		}
	}
	return out
}
