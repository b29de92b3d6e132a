package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theater-recon/internal/reconcile/model"
)

func newTestEngine(f *fakeSearcher) *Engine {
	e := NewEngine(f, nil, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func TestMarketZIP(t *testing.T) {
	assert.Equal(t, "10036", marketZIP("Manhattan 10036"))
	assert.Equal(t, "62701", marketZIP("Springfield-62701 "))
	assert.Equal(t, "", marketZIP("Springfield"))
	assert.Equal(t, "", marketZIP("Area 123456"))
	assert.Equal(t, "12345", marketZIP("12345"))
}

func TestMatchMarketPerfectOnMarketZIP(t *testing.T) {
	f := newFakeSearcher()
	f.zips["10036"] = model.Candidates{
		"AMC Empire 25": {Name: "AMC Empire 25", URL: "https://x/amc-empire-25"},
	}
	e := newTestEngine(f)

	got := e.MatchMarket(context.Background(), "Manhattan 10036",
		[]model.Theater{{Name: "AMC Empire 25", Zip: "10036"}}, model.Options{})

	require.Len(t, got, 1)
	assert.Equal(t, model.OutcomeMatched, got[0].Outcome)
	assert.Equal(t, "AMC Empire 25", got[0].MatchedName)
	assert.Equal(t, "https://x/amc-empire-25", got[0].MatchedURL)
	assert.Equal(t, 100, got[0].MatchScore)
	assert.Equal(t, model.MatchPerfect, got[0].MatchType)
	assert.Equal(t, []string{"10036"}, f.zipCalls)
	assert.Equal(t, []string{"2026-03-01"}, f.dates)
	assert.Empty(t, f.nameCalls)
}

func TestMatchMarketStrictThenIndividualZIP(t *testing.T) {
	// the market ZIP lists the candidate, but the strict threshold rejects it;
	// the individual ZIP returns it again and the normal threshold accepts it
	f := newFakeSearcher()
	f.zips["62701"] = listing("Union Square Stadium 14 Luxury")
	f.zips["62704"] = listing("Union Square Stadium 14 Luxury")
	e := newTestEngine(f)

	got := e.MatchMarket(context.Background(), "Springfield 62701",
		[]model.Theater{{Name: "Regal Cinemas Union Square Stadium 14", Zip: "62704"}},
		model.Options{Threshold: 60, StrictThreshold: 98})

	require.Len(t, got, 1)
	assert.Equal(t, model.OutcomeMatched, got[0].Outcome)
	assert.Equal(t, "Union Square Stadium 14 Luxury", got[0].MatchedName)
	assert.Equal(t, model.MatchStripped, got[0].MatchType)
	assert.Equal(t, 90, got[0].MatchScore)
	assert.Equal(t, []string{"62701", "62704"}, f.zipCalls)
	assert.Empty(t, f.nameCalls)
}

func TestMatchMarketSubsetNameIsOriginal(t *testing.T) {
	f := newFakeSearcher()
	f.zips["62704"] = listing("Union Square Stadium 14")
	e := newTestEngine(f)

	got := e.MatchMarket(context.Background(), "Springfield",
		[]model.Theater{{Name: "Regal Cinemas Union Square Stadium 14", Zip: "62704"}},
		model.Options{Threshold: 60})

	require.Len(t, got, 1)
	assert.Equal(t, model.OutcomeMatched, got[0].Outcome)
	assert.Equal(t, model.MatchOriginal, got[0].MatchType)
	assert.Equal(t, 100, got[0].MatchScore)
}

func TestMatchMarketPhases(t *testing.T) {
	f := newFakeSearcher()
	f.zips["62701"] = listing("AMC Springfield 12")
	f.zips["62704"] = listing("Union Square 14 Luxury Theater")
	f.names["Harkins Camelview"] = listing("Harkins Camelview at Fashion Square 5")
	e := newTestEngine(f)

	theaters := []model.Theater{
		{Name: "AMC Springfield 12", Zip: "62701"},
		{Name: "Regal Cinemas Union Square Stadium 14 & IMAX", Zip: "62704"},
		{Name: "Tiny Town Cinema", Zip: "62701"},
		{Name: "Harkins Camelview", Zip: ""},
	}
	got := e.MatchMarket(context.Background(), "Springfield 62701", theaters, model.Options{Threshold: 60})

	require.Len(t, got, 4)
	for i, r := range got {
		assert.Equal(t, theaters[i].Name, r.OriginalName, "result order")
		assert.Equal(t, "Springfield 62701", r.Market)
	}

	assert.Equal(t, model.MatchPerfect, got[0].MatchType)

	assert.Equal(t, model.OutcomeMatched, got[1].Outcome)
	assert.Equal(t, "Union Square 14 Luxury Theater", got[1].MatchedName)
	assert.Equal(t, model.MatchStripped, got[1].MatchType)

	assert.Equal(t, model.OutcomeNoMatch, got[2].Outcome)
	assert.Equal(t, 0, got[2].MatchScore)
	assert.Equal(t, model.SentinelNoMatch, got[2].DisplayName())

	assert.Equal(t, model.OutcomeMatched, got[3].Outcome)
	assert.Equal(t, "Harkins Camelview at Fashion Square 5", got[3].MatchedName)
	assert.Equal(t, 100, got[3].MatchScore)

	// the market ZIP is searched once and never again in phase 2
	assert.Equal(t, []string{"62701", "62704"}, f.sortedZipCalls())
	// only unresolved theaters reach the name search
	assert.Equal(t, []string{"Harkins Camelview", "Tiny Town Cinema", "camelview", "tiny town"}, f.sortedNameCalls())
}

func TestMatchMarketSearchFailureIsIsolated(t *testing.T) {
	f := newFakeSearcher()
	f.zips["11111"] = listing("Cinema 8 North")
	f.zips["33333"] = listing("Cinema 8 South")
	f.zipErr["22222"] = errUpstream
	f.nameErr["Cinema 8 East"] = errUpstream
	e := newTestEngine(f)

	theaters := []model.Theater{
		{Name: "Cinema 8 North", Zip: "11111"},
		{Name: "Cinema 8 East", Zip: "22222"},
		{Name: "Cinema 8 South", Zip: "33333"},
	}
	got := e.MatchMarket(context.Background(), "Metro", theaters, model.Options{})

	require.Len(t, got, 3)
	assert.Equal(t, model.MatchPerfect, got[0].MatchType)
	assert.Equal(t, model.OutcomeNoMatch, got[1].Outcome)
	assert.Equal(t, model.MatchPerfect, got[2].MatchType)
	assert.Equal(t, []string{"11111", "22222", "33333"}, f.sortedZipCalls())
}

func TestMatchMarketSkipsClosedAndUnlisted(t *testing.T) {
	f := newFakeSearcher()
	e := newTestEngine(f)

	theaters := []model.Theater{
		{Name: "Old Drive-In", Zip: "62701", Status: "permanently_closed"},
		{Name: "Town Hall Cinema", Zip: "62701", NotOnFandango: true, URL: "https://townhall.example.com"},
	}
	got := e.MatchMarket(context.Background(), "Springfield 62701", theaters, model.Options{})

	require.Len(t, got, 2)
	assert.Equal(t, model.OutcomePermanentlyClosed, got[0].Outcome)
	assert.Equal(t, model.SentinelPermanentlyClosed, got[0].DisplayName())
	assert.Equal(t, model.OutcomeNotListed, got[1].Outcome)
	assert.Equal(t, "https://townhall.example.com", got[1].MatchedURL)
	assert.Empty(t, f.zipCalls)
	assert.Empty(t, f.nameCalls)
}

func TestMatchMarketNoCandidatesAnywhere(t *testing.T) {
	f := newFakeSearcher()
	e := newTestEngine(f)

	got := e.MatchMarket(context.Background(), "Springfield 62701",
		[]model.Theater{{Name: "Ghost Screen", Zip: "62701"}}, model.Options{})

	require.Len(t, got, 1)
	assert.Equal(t, model.OutcomeNoMatch, got[0].Outcome)
	assert.Equal(t, model.MatchNone, got[0].MatchType)
	assert.Equal(t, []model.MatchResult{got[0]}, Partition(got).NeedsRematch)
}

func TestMatchMarketUsesGivenDate(t *testing.T) {
	f := newFakeSearcher()
	e := newTestEngine(f)

	e.MatchMarket(context.Background(), "Manhattan 10036",
		[]model.Theater{{Name: "AMC Empire 25"}}, model.Options{Date: "2026-04-02"})

	assert.Equal(t, []string{"2026-04-02"}, f.dates)
}

func TestMatchRoster(t *testing.T) {
	roster := model.NewRoster()
	roster.Put(model.MarketRef{Company: "AMC", Region: "East", Market: "Manhattan 10036"},
		[]model.Theater{{Name: "Empire 25", Zip: "10036"}})
	roster.Put(model.MarketRef{Company: "Regal", Region: "Midwest", Market: "Springfield"},
		[]model.Theater{{Name: "Springfield 8", Zip: "62701"}})

	f := newFakeSearcher()
	f.zips["10036"] = listing("AMC Empire 25")
	f.zips["62701"] = listing("Regal Springfield 8", "AMC Springfield 8")
	e := newTestEngine(f)

	got, err := e.MatchRoster(context.Background(), roster, nil, model.Options{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	byMarket := map[string]model.MatchResult{}
	for _, r := range got {
		byMarket[r.Market] = r
	}
	assert.Equal(t, "AMC", byMarket["Manhattan 10036"].Company)
	assert.Equal(t, "AMC Empire 25", byMarket["Manhattan 10036"].MatchedName)
	// the roster company breaks the tie between the two listings
	assert.Equal(t, "Regal Springfield 8", byMarket["Springfield"].MatchedName)

	only, err := e.MatchRoster(context.Background(), roster, []string{"Springfield"}, model.Options{})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Springfield", only[0].Market)

	_, err = e.MatchRoster(context.Background(), roster, []string{"Nowhere"}, model.Options{})
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestMatchRosterCanceled(t *testing.T) {
	roster := model.NewRoster()
	roster.Put(model.MarketRef{Company: "AMC", Region: "East", Market: "Manhattan"},
		[]model.Theater{{Name: "Empire 25"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(newFakeSearcher()).MatchRoster(ctx, roster, nil, model.Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistinctZIPs(t *testing.T) {
	theaters := []model.Theater{
		{Zip: "62704"}, {Zip: "62701"}, {Zip: "62704-1234"}, {Zip: ""}, {Zip: "62702"},
	}
	assert.Equal(t, []string{"62702", "62704"}, distinctZIPs(theaters, []int{0, 1, 2, 3, 4}, "62701"))
	assert.Equal(t, []string{"62704"}, distinctZIPs(theaters, []int{0}, ""))
}

func TestNameQueries(t *testing.T) {
	assert.Equal(t, []string{"Tiny Town Cinema", "tiny town"}, nameQueries(" Tiny Town Cinema "))
	assert.Equal(t, []string{"camelview"}, nameQueries("camelview"))
	assert.Equal(t, []string{"AMC"}, nameQueries("AMC"))
	assert.Nil(t, nameQueries("  "))
}
