package utils

import (
	"regexp"
	"strings"
)

var rxDigits = regexp.MustCompile(`\d+`)

// NormalizeZIP turns spreadsheet ZIP cells into five digits: "2134" -> "02134",
// "10036.0" -> "10036", "10036-1234" -> "10036". Returns "" when no ZIP can be read.
func NormalizeZIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// remove NBSP/NNBSP carried over from exports
	s = strings.NewReplacer("\u00A0", "", "\u202F", "").Replace(s)
	// Excel numeric cells come back as "10036.0"
	if i := strings.IndexByte(s, '.'); i >= 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	d := rxDigits.FindString(s)
	switch {
	case d == "":
		return ""
	case len(d) > 5:
		if len(d) == 9 { // ZIP+4 written without a dash
			return d[:5]
		}
		return ""
	case len(d) < 3:
		return ""
	default:
		return strings.Repeat("0", 5-len(d)) + d
	}
}
