package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"theater-recon/internal/reconcile/model"
	"theater-recon/internal/utils"
)

// Searcher is the live directory search on the ticketing site.
type Searcher interface {
	SearchByZIP(ctx context.Context, zip, date string) (model.Candidates, error)
	SearchByName(ctx context.Context, query string) (model.Candidates, error)
}

// market names such as "Manhattan 10036" carry the market ZIP as last token
var reMarketZIP = regexp.MustCompile(`(?:^|\D)(\d{5})$`)

func marketZIP(market string) string {
	if m := reMarketZIP.FindStringSubmatch(strings.TrimSpace(market)); m != nil {
		return m[1]
	}
	return ""
}

// Engine runs the three search phases per market.
type Engine struct {
	search Searcher
	scorer *Scorer
	log    zerolog.Logger
	now    func() time.Time
}

func NewEngine(search Searcher, scorer *Scorer, logger zerolog.Logger) *Engine {
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	return &Engine{search: search, scorer: scorer, log: logger, now: time.Now}
}

// Scorer exposes the engine's scorer for review re-runs.
func (e *Engine) Scorer() *Scorer { return e.scorer }

// MatchMarket returns one result per input theater, in input order.
//
// Phase 1 searches the market ZIP and accepts only strict matches. Phase 2
// searches the remaining theaters' own ZIPs, merges them into the shared pool
// and rescores with the normal threshold. Phase 3 searches each remaining
// theater by name. Search failures are logged and count as empty results.
func (e *Engine) MatchMarket(ctx context.Context, market string, theaters []model.Theater, opts model.Options) []model.MatchResult {
	opts = opts.WithDefaults()
	if opts.Date == "" {
		opts.Date = e.now().Format("2006-01-02")
	}
	log := e.log.With().Str("market", market).Logger()

	results := make([]model.MatchResult, len(theaters))
	var pending []int
	for i, t := range theaters {
		switch {
		case t.Closed():
			r := model.NoMatch(market, t)
			r.Outcome = model.OutcomePermanentlyClosed
			results[i] = r
		case t.NotOnFandango:
			r := model.NoMatch(market, t)
			r.Outcome = model.OutcomeNotListed
			r.MatchedURL = t.URL
			results[i] = r
		default:
			pending = append(pending, i)
		}
	}

	pool := model.Candidates{}
	mzip := marketZIP(market)

	// phase 1: market ZIP, strict
	if mzip != "" && len(pending) > 0 {
		mergeCandidates(pool, e.searchZIP(ctx, log, mzip, opts.Date))
		before := len(pending)
		pending = e.scorePending(market, theaters, pending, pool, opts.StrictThreshold, results)
		log.Info().Str("phase", "market_zip").Str("zip", mzip).Int("candidates", len(pool)).
			Int("resolved", before-len(pending)).Int("remaining", len(pending)).Msg("phase done")
	}

	// phase 2: individual ZIPs, normal threshold
	if len(pending) > 0 {
		zips := distinctZIPs(theaters, pending, mzip)
		for _, cands := range e.searchZIPs(ctx, log, zips, opts) {
			mergeCandidates(pool, cands)
		}
		if len(pool) > 0 {
			before := len(pending)
			pending = e.scorePending(market, theaters, pending, pool, opts.Threshold, results)
			log.Info().Str("phase", "individual_zip").Strs("zips", zips).Int("candidates", len(pool)).
				Int("resolved", before-len(pending)).Int("remaining", len(pending)).Msg("phase done")
		}
	}

	// phase 3: name search per theater, scored only against its own results
	if len(pending) > 0 {
		own := e.searchNames(ctx, log, theaters, pending, opts.Concurrency)
		resolved := 0
		for j, i := range pending {
			sc := e.scorer.Score(theaters[i], own[j], opts.Threshold)
			if sc.Candidate == nil {
				results[i] = model.NoMatch(market, theaters[i])
				continue
			}
			results[i] = matched(market, theaters[i], sc)
			resolved++
		}
		log.Info().Str("phase", "name_search").Int("searched", len(pending)).
			Int("resolved", resolved).Int("unmatched", len(pending)-resolved).Msg("phase done")
	}

	return results
}

// MatchRoster runs MatchMarket over the named markets, or every market when
// names is empty. Theaters without a company inherit the roster company.
func (e *Engine) MatchRoster(ctx context.Context, roster model.Roster, names []string, opts model.Options) ([]model.MatchResult, error) {
	var refs []model.MarketRef
	if len(names) == 0 {
		refs = roster.Markets()
	} else {
		for _, n := range names {
			ref, ok := roster.Find(n)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMarketNotFound, n)
			}
			refs = append(refs, ref)
		}
	}

	var out []model.MatchResult
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		src := roster.Theaters(ref)
		theaters := make([]model.Theater, len(src))
		for i, t := range src {
			if strings.TrimSpace(t.Company) == "" {
				t.Company = ref.Company
			}
			theaters[i] = t
		}
		out = append(out, e.MatchMarket(ctx, ref.Market, theaters, opts)...)
	}
	return out, nil
}

func (e *Engine) scorePending(market string, theaters []model.Theater, pending []int, pool model.Candidates, threshold int, results []model.MatchResult) []int {
	var left []int
	for _, i := range pending {
		sc := e.scorer.Score(theaters[i], pool, threshold)
		if sc.Candidate == nil {
			left = append(left, i)
			continue
		}
		results[i] = matched(market, theaters[i], sc)
	}
	return left
}

func (e *Engine) searchZIP(ctx context.Context, log zerolog.Logger, zip, date string) model.Candidates {
	cands, err := e.search.SearchByZIP(ctx, zip, date)
	if err != nil {
		log.Warn().Err(err).Str("zip", zip).Msg("zip search failed")
		return nil
	}
	return cands
}

// searchZIPs searches every ZIP concurrently; out[i] belongs to zips[i].
func (e *Engine) searchZIPs(ctx context.Context, log zerolog.Logger, zips []string, opts model.Options) []model.Candidates {
	out := make([]model.Candidates, len(zips))
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, z := range zips {
		g.Go(func() error {
			out[i] = e.searchZIP(ctx, log, z, opts.Date)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// searchNames runs the raw-name and normalized-name searches for each pending
// theater; out[j] holds the merged results for theaters[pending[j]].
func (e *Engine) searchNames(ctx context.Context, log zerolog.Logger, theaters []model.Theater, pending []int, limit int) []model.Candidates {
	out := make([]model.Candidates, len(pending))
	var g errgroup.Group
	g.SetLimit(limit)
	for j, i := range pending {
		t := theaters[i]
		g.Go(func() error {
			own := model.Candidates{}
			for _, q := range nameQueries(t.Name) {
				cands, err := e.search.SearchByName(ctx, q)
				if err != nil {
					log.Warn().Err(err).Str("query", q).Str("theater", t.Name).Msg("name search failed")
					continue
				}
				mergeCandidates(own, cands)
			}
			out[j] = own
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// nameQueries is the raw name plus its normalized form when that differs.
func nameQueries(name string) []string {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return nil
	}
	qs := []string{raw}
	if n := Normalize(raw); n != "" && n != strings.ToLower(raw) {
		qs = append(qs, n)
	}
	return qs
}

// distinctZIPs collects the pending theaters' ZIPs, minus the market ZIP, sorted.
func distinctZIPs(theaters []model.Theater, pending []int, exclude string) []string {
	seen := map[string]struct{}{}
	for _, i := range pending {
		z := utils.NormalizeZIP(theaters[i].Zip)
		if z == "" || z == exclude {
			continue
		}
		seen[z] = struct{}{}
	}
	zips := make([]string, 0, len(seen))
	for z := range seen {
		zips = append(zips, z)
	}
	sort.Strings(zips)
	return zips
}

// mergeCandidates adds src into dst; keys already present keep their first listing.
func mergeCandidates(dst, src model.Candidates) {
	for k, c := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = c
		}
	}
}

func matched(market string, t model.Theater, sc Score) model.MatchResult {
	return model.MatchResult{
		Market:       market,
		OriginalName: t.Name,
		Outcome:      model.OutcomeMatched,
		MatchedName:  sc.Candidate.Name,
		MatchScore:   sc.Reported(),
		MatchType:    sc.Type,
		MatchedURL:   sc.Candidate.URL,
		Company:      t.Company,
		ZipCode:      t.Zip,
	}
}
