package model

import "strings"

// Theater status values as stored in markets.json.
const (
	StatusActive            = "active"
	StatusPermanentlyClosed = "permanently_closed"
)

// Theater is one canonical roster entry.
type Theater struct {
	Name          string `json:"name"`
	Zip           string `json:"zip"`
	Company       string `json:"company,omitempty"`
	Status        string `json:"status,omitempty"`          // active | permanently_closed
	NotOnFandango bool   `json:"not_on_fandango,omitempty"` // known to be absent from the ticketing site
	URL           string `json:"url,omitempty"`             // theater website when NotOnFandango
}

// Closed reports whether the roster marks the theater as permanently closed.
func (t Theater) Closed() bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), StatusPermanentlyClosed)
}

// Candidate is a listing returned by a live search call.
type Candidate struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Candidates maps listing name to listing. Keys are unique per search call.
type Candidates map[string]Candidate

// MatchType names the formula that produced the accepted score.
type MatchType string

const (
	MatchPerfect  MatchType = "Perfect"
	MatchOriginal MatchType = "Original"
	MatchStripped MatchType = "Stripped"
	MatchManual   MatchType = "Manual"
	MatchNone     MatchType = "none"
)

// Options tune the matcher. Zero values fall back to the defaults below.
type Options struct {
	Threshold       int    // loose threshold for phases 2 and 3
	StrictThreshold int    // phase 1 market-ZIP threshold
	Date            string // showtime date passed to ZIP searches (YYYY-MM-DD)
	Concurrency     int    // parallel searches within a phase
}

const (
	DefaultThreshold       = 80
	DefaultStrictThreshold = 98
	DefaultConcurrency     = 6
)

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.StrictThreshold <= 0 {
		o.StrictThreshold = DefaultStrictThreshold
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}
