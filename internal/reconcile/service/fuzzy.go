package service

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

var reNonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Ratio is the indel similarity of a and b in 0..100:
// 2*LCS / (len(a)+len(b)), counted in runes.
func Ratio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 100
	}
	lcs := edlib.LCS(a, b)
	return int(math.Round(200 * float64(lcs) / float64(la+lb)))
}

// TokenSetRatio compares the word sets of a and b, ignoring order and
// repeats. If one set is contained in the other the score is 100.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(sect)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(sect, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(withA, withB)
	if base != "" {
		if s := Ratio(base, withA); s > best {
			best = s
		}
		if s := Ratio(base, withB); s > best {
			best = s
		}
	}
	return best
}

// tokenSet lower-cases s, turns punctuation into spaces and returns the distinct words.
func tokenSet(s string) map[string]struct{} {
	s = reNonAlnum.ReplaceAllString(strings.ToLower(s), " ")
	out := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		out[f] = struct{}{}
	}
	return out
}
