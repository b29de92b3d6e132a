package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMarketNotFound = errors.New("market not found in roster")
	ErrResultNotFound = errors.New("match result not found")
)

// DuplicateNamesError blocks a persist when a market lists the same theater name twice.
type DuplicateNamesError struct {
	Duplicates map[string][]string // market -> duplicated names
}

func (e *DuplicateNamesError) Error() string {
	markets := make([]string, 0, len(e.Duplicates))
	for m := range e.Duplicates {
		markets = append(markets, m)
	}
	sort.Strings(markets)
	parts := make([]string, 0, len(markets))
	for _, m := range markets {
		parts = append(parts, fmt.Sprintf("%s: %s", m, strings.Join(e.Duplicates[m], ", ")))
	}
	return "duplicate theater names in roster (" + strings.Join(parts, "; ") + ")"
}

// InvalidURLError rejects an operator-supplied listing URL.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid listing url %q: %s", e.URL, e.Reason)
}

// InvalidCacheError reports cache entries that the scraper could not use.
type InvalidCacheError struct {
	Entries []string // "market/name"
}

func (e *InvalidCacheError) Error() string {
	return "cache entries without url or status: " + strings.Join(e.Entries, ", ")
}
