package service

import (
	"regexp"
	"sort"
	"strings"
)

// Chain names that chains prepend or append to a location's name.
var brandTerms = []string{
	"amc", "regal", "cinemark", "marcus", "by marcus", "movie tavern", "studio movie grill",
	"harkins", "b&b", "alamo drafthouse", "showcase", "emagine", "santikos", "cinepolis",
	"landmark", "malco", "cineplex", "dine-in",
}

// Premium formats and generic descriptors.
var amenityTerms = []string{
	"imax", "dolby", "dolby cinema", "xd", "rpx", "ultrascreen", "superscreen", "d-box", "dbox",
	"4dx", "screenx", "prime", "luxury", "cinema", "cinemas", "cine", "theatre", "theatres",
	"theater", "theaters", "movies", "megaplex", "multiplex", "stadium", "digital",
}

var (
	// one alternation, longest terms first so "movie tavern" wins over shorter overlaps
	reStripTerms = buildTermRegex(append(append([]string{}, brandTerms...), amenityTerms...))
	// commas, ampersands, hyphens, periods and whitespace runs collapse to one space
	reSeparators = regexp.MustCompile(`[\s,&.\-]+`)
	reAlnum      = regexp.MustCompile(`[\p{L}\p{N}]`)
)

func buildTermRegex(terms []string) *regexp.Regexp {
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	// \b is ASCII-only in RE2; letters such as "é" must count as word characters
	return regexp.MustCompile(`(^|[^\p{L}\p{N}])(?:` + strings.Join(quoted, "|") + `)($|[^\p{L}\p{N}])`)
}

// Normalize lower-cases a theater name and strips brand and amenity words.
// Only whole words are removed ("ximax" keeps its "imax"). The result may be
// empty when the name consists solely of stripped words.
func Normalize(name string) string {
	out := strings.ToLower(name)
	// collapsing separators can join words into a new term, so run to a fixed point
	for {
		next := strings.TrimSpace(reSeparators.ReplaceAllString(stripTerms(out), " "))
		if next == out {
			return out
		}
		out = next
	}
}

// stripTerms removes every term. Adjacent terms share one delimiter, which a
// single pass consumes, so repeat until nothing matches.
func stripTerms(s string) string {
	for {
		next := reStripTerms.ReplaceAllString(s, "${1} ${2}")
		if next == s {
			return s
		}
		s = next
	}
}

// comparable returns the normalized form, or the lower-cased original when
// normalization leaves no letters or digits to compare.
func comparable(name string) string {
	if n := Normalize(name); reAlnum.MatchString(n) {
		return n
	}
	return strings.ToLower(strings.TrimSpace(name))
}
