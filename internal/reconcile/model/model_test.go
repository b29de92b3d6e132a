package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchResultSentinels(t *testing.T) {
	results := []MatchResult{
		{Market: "M", OriginalName: "A", Outcome: OutcomeMatched, MatchedName: "A 8", MatchScore: 95, MatchType: MatchStripped, MatchedURL: "https://x/a-8"},
		{Market: "M", OriginalName: "B", Outcome: OutcomeNoMatch},
		{Market: "M", OriginalName: "C", Outcome: OutcomeNotListed, MatchedURL: "https://c.example.com"},
		{Market: "M", OriginalName: "D", Outcome: OutcomePermanentlyClosed, MatchType: MatchNone},
		{Market: "M", OriginalName: "E", Outcome: OutcomeConfirmedClosed, MatchType: MatchNone},
	}
	b, err := json.Marshal(results)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "A 8", raw[0]["matched_name"])
	assert.Equal(t, SentinelNoMatch, raw[1]["matched_name"])
	assert.Equal(t, "none", raw[1]["match_type"])
	assert.Equal(t, SentinelNotListed, raw[2]["matched_name"])
	assert.Equal(t, SentinelPermanentlyClosed, raw[3]["matched_name"])
	assert.Equal(t, SentinelConfirmedClosed, raw[4]["matched_name"])

	var back []MatchResult
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back, len(results))
	for i := range results {
		assert.Equal(t, results[i].Outcome, back[i].Outcome, results[i].OriginalName)
	}
	assert.Equal(t, "A 8", back[0].MatchedName)
	assert.Empty(t, back[2].MatchedName)
}

func TestRosterJSONShape(t *testing.T) {
	in := `{
  "AMC": {
    "East": {
      "Manhattan 10036": {"theaters": [{"name": "AMC Empire 25", "zip": "10036"}]},
      "Brooklyn 11201": {"theaters": [{"name": "AMC Dine-In Brooklyn", "zip": "11201", "status": "permanently_closed"}]}
    }
  },
  "Regal": {"Midwest": {"Springfield": {"theaters": []}}}
}`
	var r Roster
	require.NoError(t, json.Unmarshal([]byte(in), &r))

	assert.Equal(t, []MarketRef{
		{Company: "AMC", Region: "East", Market: "Brooklyn 11201"},
		{Company: "AMC", Region: "East", Market: "Manhattan 10036"},
		{Company: "Regal", Region: "Midwest", Market: "Springfield"},
	}, r.Markets())

	ref, ok := r.Find("Brooklyn 11201")
	require.True(t, ok)
	assert.True(t, r.Theaters(ref)[0].Closed())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
  "AMC": {"East": {
    "Brooklyn 11201": {"theaters": [{"name": "AMC Dine-In Brooklyn", "zip": "11201", "status": "permanently_closed"}]},
    "Manhattan 10036": {"theaters": [{"name": "AMC Empire 25", "zip": "10036"}]}
  }},
  "Regal": {"Midwest": {"Springfield": {"theaters": []}}}
}`, string(out))
}

func TestRosterCloneIsDeep(t *testing.T) {
	r := NewRoster()
	ref := MarketRef{Company: "AMC", Region: "East", Market: "Manhattan"}
	r.Put(ref, []Theater{{Name: "Empire 25"}})
	r.Companies["Empty Co"] = Company{Regions: map[string]Region{"Nowhere": {}}}

	c := r.Clone()
	c.Theaters(ref)[0].Name = "Changed"

	assert.Equal(t, "Empire 25", r.Theaters(ref)[0].Name)
	assert.Contains(t, c.Companies, "Empty Co")
	assert.Contains(t, c.Companies["Empty Co"].Regions, "Nowhere")
}

func TestCacheStampAndClone(t *testing.T) {
	c := NewTheaterCache()
	c.Markets["M"] = CacheMarket{Theaters: []CacheEntry{{Name: "A", URL: "https://x/a"}}}
	c.Stamp(time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("EST", -5*3600)))
	assert.Equal(t, "2026-03-01T13:00:00Z", c.Metadata.LastUpdated)

	cp := c.Clone()
	cp.Markets["M"].Theaters[0].Name = "B"
	assert.Equal(t, "A", c.Markets["M"].Theaters[0].Name)
}

func TestSessionUpsert(t *testing.T) {
	s := NewSession(NewRoster(), TheaterCache{}, Options{}, time.Now())
	require.NotEmpty(t, s.ID)
	require.NotNil(t, s.Cache.Markets)
	assert.Equal(t, DefaultThreshold, s.Options.Threshold)

	s.Upsert([]MatchResult{
		{Market: "A", OriginalName: "a1"},
		{Market: "B", OriginalName: "b1"},
	})
	s.Upsert([]MatchResult{
		{Market: "A", OriginalName: "a1", Outcome: OutcomeMatched, MatchedName: "A One"},
		{Market: "A", OriginalName: "a2"},
	})

	require.Len(t, s.Results, 3)
	assert.Equal(t, "B", s.Results[0].Market)
	assert.Equal(t, 1, s.Find("A", "a1"))
	assert.Equal(t, -1, s.Find("B", "a1"))
	assert.Len(t, s.MarketResults("A"), 2)
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{Threshold: 60}.WithDefaults()
	assert.Equal(t, 60, o.Threshold)
	assert.Equal(t, DefaultStrictThreshold, o.StrictThreshold)
	assert.Equal(t, DefaultConcurrency, o.Concurrency)
}
