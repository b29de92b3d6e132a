package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"theater-recon/internal/reconcile/model"
)

// ApplyMode selects how results land in the existing cache.
type ApplyMode string

const (
	// ModeFull rebuilds the cache from the processed markets only.
	ModeFull ApplyMode = "full"
	// ModeMerge replaces processed markets and keeps every other market.
	ModeMerge ApplyMode = "merge"
)

func ParseApplyMode(s string) (ApplyMode, error) {
	switch ApplyMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFull:
		return ModeFull, nil
	case ModeMerge, "":
		return ModeMerge, nil
	}
	return "", fmt.Errorf("unknown apply mode %q", s)
}

// Apply folds results into copies of roster and cache. Matched theaters are
// renamed in the roster to their listing name; unmatched theaters are left
// out of the cache. Inputs are not modified.
func Apply(roster model.Roster, cache model.TheaterCache, results []model.MatchResult, mode ApplyMode) (model.TheaterCache, model.Roster) {
	newRoster := roster.Clone()

	var newCache model.TheaterCache
	if mode == ModeFull {
		newCache = model.NewTheaterCache()
		newCache.Metadata = cache.Metadata
	} else {
		newCache = cache.Clone()
		if newCache.Markets == nil {
			newCache.Markets = map[string]model.CacheMarket{}
		}
	}

	var (
		order   []string
		renames []rename
	)
	built := map[string][]model.CacheEntry{}
	for _, r := range results {
		if _, ok := built[r.Market]; !ok {
			order = append(order, r.Market)
			built[r.Market] = []model.CacheEntry{}
		}
		if e, ok := cacheEntry(r); ok {
			built[r.Market] = append(built[r.Market], e)
		}
		if r.Outcome == model.OutcomeMatched && r.MatchedName != r.OriginalName {
			renames = append(renames, rename{market: r.Market, from: r.OriginalName, to: r.MatchedName})
		}
	}
	renameTheaters(&newRoster, renames)
	for _, m := range order {
		newCache.Markets[m] = model.CacheMarket{Theaters: built[m]}
	}
	return newCache, newRoster
}

func cacheEntry(r model.MatchResult) (model.CacheEntry, bool) {
	switch r.Outcome {
	case model.OutcomeMatched:
		return model.CacheEntry{Name: r.MatchedName, URL: r.MatchedURL, Company: r.Company}, true
	case model.OutcomeNotListed:
		return model.CacheEntry{Name: r.OriginalName, URL: r.MatchedURL, Company: r.Company, NotOnFandango: true}, true
	case model.OutcomePermanentlyClosed, model.OutcomeConfirmedClosed:
		return model.CacheEntry{Name: r.OriginalName + model.ClosedSuffix, URL: "N/A", Company: r.Company}, true
	}
	return model.CacheEntry{}, false
}

type rename struct {
	market, from, to string
}

// renameTheaters resolves every rename against the names the roster had
// before any of them ran, so chains such as A->B, B->C land on the right
// theaters. Each roster entry is renamed at most once.
func renameTheaters(roster *model.Roster, renames []rename) {
	if len(renames) == 0 {
		return
	}
	type slot struct {
		theaters []model.Theater
		byName   map[string][]int
	}
	slots := map[string][]*slot{}
	for _, ref := range roster.Markets() {
		s := &slot{theaters: roster.Theaters(ref), byName: map[string][]int{}}
		for i, t := range s.theaters {
			s.byName[t.Name] = append(s.byName[t.Name], i)
		}
		slots[ref.Market] = append(slots[ref.Market], s)
	}
	for _, rn := range renames {
		for _, s := range slots[rn.market] {
			idx := s.byName[rn.from]
			if len(idx) == 0 {
				continue
			}
			s.theaters[idx[0]].Name = rn.to
			s.byName[rn.from] = idx[1:]
			break
		}
	}
}

// FindDuplicates lists, per market, names carried by more than one theater.
func FindDuplicates(roster model.Roster) map[string][]string {
	out := map[string][]string{}
	for _, ref := range roster.Markets() {
		seen := map[string]int{}
		for _, t := range roster.Theaters(ref) {
			seen[strings.TrimSpace(t.Name)]++
		}
		var dups []string
		for n, c := range seen {
			if c > 1 {
				dups = append(dups, n)
			}
		}
		if len(dups) > 0 {
			sort.Strings(dups)
			out[ref.Market] = append(out[ref.Market], dups...)
		}
	}
	return out
}

// ValidateCache checks every entry has a url, a not-listed flag or the closed suffix.
func ValidateCache(cache model.TheaterCache) error {
	var bad []string
	for m, market := range cache.Markets {
		for _, e := range market.Theaters {
			if strings.TrimSpace(e.URL) == "" && !e.NotOnFandango && !strings.HasSuffix(e.Name, model.ClosedSuffix) {
				bad = append(bad, m+"/"+e.Name)
			}
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return &InvalidCacheError{Entries: bad}
	}
	return nil
}

// Store persists markets.json and theater_cache.json.
type Store interface {
	SaveRoster(model.Roster) error
	SaveCache(model.TheaterCache) error
}

// CacheRestorer is a Store that can undo its last cache write. Persist uses
// it to keep the two files in step when the roster write fails.
type CacheRestorer interface {
	RestoreCache() error
}

// Persist writes roster and cache after the duplicate gate and cache
// validation pass. Nothing is written when either check fails, and a failed
// roster write rolls the cache back when the store supports it.
func Persist(store Store, roster model.Roster, cache model.TheaterCache, now time.Time) error {
	if dups := FindDuplicates(roster); len(dups) > 0 {
		return &DuplicateNamesError{Duplicates: dups}
	}
	if err := ValidateCache(cache); err != nil {
		return err
	}
	cache.Stamp(now)
	if err := store.SaveCache(cache); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	if err := store.SaveRoster(roster); err != nil {
		if rs, ok := store.(CacheRestorer); ok {
			if rerr := rs.RestoreCache(); rerr != nil {
				return fmt.Errorf("save roster: %w (restore cache: %v)", err, rerr)
			}
		}
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
