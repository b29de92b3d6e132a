package model

import (
	"encoding/json"
	"fmt"
)

// Outcome is the terminal state of one theater's matching attempt.
type Outcome int

const (
	OutcomeNoMatch Outcome = iota
	OutcomeMatched
	OutcomeNotListed
	OutcomePermanentlyClosed
	OutcomeConfirmedClosed
)

// Sentinel strings written into matched_name for non-matched outcomes.
const (
	SentinelNoMatch           = "No match found"
	SentinelPermanentlyClosed = "Permanently Closed"
	SentinelConfirmedClosed   = "Confirmed Closed"
	SentinelNotListed         = "Not on Fandango"
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeNotListed:
		return "not_listed"
	case OutcomePermanentlyClosed:
		return "permanently_closed"
	case OutcomeConfirmedClosed:
		return "confirmed_closed"
	default:
		return "no_match"
	}
}

// IsClosed covers both closure outcomes.
func (o Outcome) IsClosed() bool {
	return o == OutcomePermanentlyClosed || o == OutcomeConfirmedClosed
}

// MatchResult is the live outcome for one roster theater. Later attempts
// overwrite earlier ones.
type MatchResult struct {
	Market       string
	OriginalName string
	Outcome      Outcome
	MatchedName  string // external listing name, only for OutcomeMatched
	MatchScore   int
	MatchType    MatchType
	MatchedURL   string // listing URL, or theater website for OutcomeNotListed
	Company      string
	ZipCode      string
}

// NoMatch builds the terminal unresolved result for t.
func NoMatch(market string, t Theater) MatchResult {
	return MatchResult{
		Market:       market,
		OriginalName: t.Name,
		Outcome:      OutcomeNoMatch,
		MatchType:    MatchNone,
		Company:      t.Company,
		ZipCode:      t.Zip,
	}
}

// DisplayName is matched_name as persisted: the listing name or a sentinel.
func (r MatchResult) DisplayName() string {
	switch r.Outcome {
	case OutcomeMatched:
		return r.MatchedName
	case OutcomeNotListed:
		return SentinelNotListed
	case OutcomePermanentlyClosed:
		return SentinelPermanentlyClosed
	case OutcomeConfirmedClosed:
		return SentinelConfirmedClosed
	default:
		return SentinelNoMatch
	}
}

type matchResultJSON struct {
	Market       string    `json:"market,omitempty"`
	OriginalName string    `json:"original_name"`
	MatchedName  string    `json:"matched_name"`
	MatchScore   int       `json:"match_score"`
	MatchType    MatchType `json:"match_type"`
	MatchedURL   string    `json:"matched_url"`
	Company      string    `json:"company"`
	ZipCode      string    `json:"zip_code"`
}

func (r MatchResult) MarshalJSON() ([]byte, error) {
	mt := r.MatchType
	if mt == "" {
		mt = MatchNone
	}
	return json.Marshal(matchResultJSON{
		Market:       r.Market,
		OriginalName: r.OriginalName,
		MatchedName:  r.DisplayName(),
		MatchScore:   r.MatchScore,
		MatchType:    mt,
		MatchedURL:   r.MatchedURL,
		Company:      r.Company,
		ZipCode:      r.ZipCode,
	})
}

func (r *MatchResult) UnmarshalJSON(b []byte) error {
	var raw matchResultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode match result: %w", err)
	}
	*r = MatchResult{
		Market:       raw.Market,
		OriginalName: raw.OriginalName,
		MatchScore:   raw.MatchScore,
		MatchType:    raw.MatchType,
		MatchedURL:   raw.MatchedURL,
		Company:      raw.Company,
		ZipCode:      raw.ZipCode,
	}
	switch raw.MatchedName {
	case SentinelNoMatch, "":
		r.Outcome = OutcomeNoMatch
	case SentinelNotListed:
		r.Outcome = OutcomeNotListed
	case SentinelPermanentlyClosed:
		r.Outcome = OutcomePermanentlyClosed
	case SentinelConfirmedClosed:
		r.Outcome = OutcomeConfirmedClosed
	default:
		r.Outcome = OutcomeMatched
		r.MatchedName = raw.MatchedName
	}
	return nil
}
