package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"theater-recon/internal/reconcile/model"
)

// ReviewQueue partitions the results an operator has to look at.
type ReviewQueue struct {
	NeedsRematch      []model.MatchResult `json:"needs_rematch"`
	PermanentlyClosed []model.MatchResult `json:"permanently_closed"`
	NotOnFandango     []model.MatchResult `json:"not_on_fandango"`
}

// Size is the number of queued results.
func (q ReviewQueue) Size() int {
	return len(q.NeedsRematch) + len(q.PermanentlyClosed) + len(q.NotOnFandango)
}

func Partition(results []model.MatchResult) ReviewQueue {
	q := ReviewQueue{
		NeedsRematch:      []model.MatchResult{},
		PermanentlyClosed: []model.MatchResult{},
		NotOnFandango:     []model.MatchResult{},
	}
	for _, r := range results {
		switch r.Outcome {
		case model.OutcomeNoMatch:
			q.NeedsRematch = append(q.NeedsRematch, r)
		case model.OutcomePermanentlyClosed, model.OutcomeConfirmedClosed:
			q.PermanentlyClosed = append(q.PermanentlyClosed, r)
		case model.OutcomeNotListed:
			q.NotOnFandango = append(q.NotOnFandango, r)
		}
	}
	return q
}

// Reviewer applies operator corrections to single results of a session.
// Nothing here runs unless an operator asks for it.
type Reviewer struct {
	engine *Engine
	domain string // ticketing site host, e.g. fandango.com
	log    zerolog.Logger
}

func NewReviewer(engine *Engine, domain string, logger zerolog.Logger) *Reviewer {
	return &Reviewer{engine: engine, domain: strings.ToLower(strings.TrimSpace(domain)), log: logger}
}

func lookup(s *model.MatchSession, market, original string) (*model.MatchResult, error) {
	i := s.Find(market, original)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s / %s", ErrResultNotFound, market, original)
	}
	return &s.Results[i], nil
}

// Rerun matches the theater again with an edited name and/or ZIP. Empty
// arguments keep the current values. The result keeps its roster name.
func (rv *Reviewer) Rerun(ctx context.Context, s *model.MatchSession, market, original, name, zip string) (model.MatchResult, error) {
	r, err := lookup(s, market, original)
	if err != nil {
		return model.MatchResult{}, err
	}
	t := model.Theater{Name: original, Zip: r.ZipCode, Company: r.Company}
	if n := strings.TrimSpace(name); n != "" {
		t.Name = n
	}
	if z := strings.TrimSpace(zip); z != "" {
		t.Zip = z
	}

	out := rv.engine.MatchMarket(ctx, market, []model.Theater{t}, s.Options)[0]
	out.OriginalName = original
	*r = out
	rv.log.Info().Str("market", market).Str("theater", original).Str("query", t.Name).
		Str("zip", t.Zip).Str("outcome", out.Outcome.String()).Int("score", out.MatchScore).Msg("review rerun")
	return out, nil
}

// ManualURL accepts an operator-supplied listing URL as a 100% match. A URL
// outside the ticketing domain is rejected and the result reverts to no match.
func (rv *Reviewer) ManualURL(s *model.MatchSession, market, original, rawURL, name string) (model.MatchResult, error) {
	r, err := lookup(s, market, original)
	if err != nil {
		return model.MatchResult{}, err
	}
	clean, err := ValidateListingURL(rawURL, rv.domain)
	if err != nil {
		*r = model.NoMatch(market, model.Theater{Name: original, Zip: r.ZipCode, Company: r.Company})
		rv.log.Warn().Err(err).Str("market", market).Str("theater", original).Msg("manual url rejected")
		return *r, err
	}
	matchedName := strings.TrimSpace(name)
	if matchedName == "" {
		matchedName = original
	}
	r.Outcome = model.OutcomeMatched
	r.MatchedName = matchedName
	r.MatchedURL = clean
	r.MatchScore = 100
	r.MatchType = model.MatchManual
	return *r, nil
}

// MarkNotOnFandango records that the theater has no listing; website may be empty.
func MarkNotOnFandango(s *model.MatchSession, market, original, website string) (model.MatchResult, error) {
	r, err := lookup(s, market, original)
	if err != nil {
		return model.MatchResult{}, err
	}
	r.Outcome = model.OutcomeNotListed
	r.MatchedName = ""
	r.MatchedURL = strings.TrimSpace(website)
	r.MatchScore = 0
	r.MatchType = model.MatchNone
	return *r, nil
}

// MarkClosed records an operator-confirmed closure.
func MarkClosed(s *model.MatchSession, market, original string) (model.MatchResult, error) {
	r, err := lookup(s, market, original)
	if err != nil {
		return model.MatchResult{}, err
	}
	r.Outcome = model.OutcomeConfirmedClosed
	r.MatchedName = ""
	r.MatchedURL = ""
	r.MatchScore = 0
	r.MatchType = model.MatchNone
	return *r, nil
}

// ValidateListingURL requires an absolute http(s) URL on domain or one of its subdomains.
func ValidateListingURL(raw, domain string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &InvalidURLError{URL: raw, Reason: "empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &InvalidURLError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidURLError{URL: raw, Reason: "scheme must be http or https"}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", &InvalidURLError{URL: raw, Reason: "missing host"}
	}
	if domain != "" && host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", &InvalidURLError{URL: raw, Reason: "not a " + domain + " url"}
	}
	return u.String(), nil
}
