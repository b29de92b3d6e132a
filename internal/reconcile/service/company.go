package service

import (
	"regexp"
	"strings"

	"theater-recon/internal/reconcile/model"
)

// UnknownCompany is returned when no chain can be inferred.
const UnknownCompany = "Unknown"

// CompanyResolver infers the operating chain from a company field or a theater name.
type CompanyResolver interface {
	Company(s string) string
}

type chainRule struct {
	re      *regexp.Regexp
	company string
}

// ChainDirectory is the built-in resolver over well-known US chains.
type ChainDirectory struct {
	rules []chainRule
}

// keyword patterns in priority order; "movie tavern" is operated by Marcus
var defaultChains = [][2]string{
	{`amc`, "AMC"},
	{`regal`, "Regal"},
	{`cinemark|century theatres?|tinseltown`, "Cinemark"},
	{`marcus|movie tavern`, "Marcus"},
	{`harkins`, "Harkins"},
	{`b&b`, "B&B Theatres"},
	{`alamo drafthouse|alamo`, "Alamo Drafthouse"},
	{`studio movie grill|smg`, "Studio Movie Grill"},
	{`showcase`, "Showcase"},
	{`emagine`, "Emagine"},
	{`santikos`, "Santikos"},
	{`cinepolis|cinépolis`, "Cinepolis"},
	{`landmark`, "Landmark"},
	{`malco`, "Malco"},
	{`cineplex`, "Cineplex"},
}

func NewChainDirectory() *ChainDirectory {
	d := &ChainDirectory{}
	for _, c := range defaultChains {
		d.rules = append(d.rules, chainRule{
			re:      regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:` + c[0] + `)(?:$|[^\p{L}\p{N}])`),
			company: c[1],
		})
	}
	return d
}

func (d *ChainDirectory) Company(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownCompany
	}
	for _, r := range d.rules {
		if r.re.MatchString(s) {
			return r.company
		}
	}
	return UnknownCompany
}

// theaterCompany consults the explicit company field first, then the name.
func theaterCompany(res CompanyResolver, t model.Theater) string {
	if c := res.Company(t.Company); c != UnknownCompany {
		return c
	}
	return res.Company(t.Name)
}
