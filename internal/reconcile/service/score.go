package service

import (
	"math"
	"sort"
	"strings"

	"theater-recon/internal/reconcile/model"
)

const (
	companyBonus   = 10
	strippedWeight = 0.9
)

// Scorer ranks search candidates against one roster theater.
type Scorer struct {
	companies CompanyResolver
}

func NewScorer(companies CompanyResolver) *Scorer {
	if companies == nil {
		companies = NewChainDirectory()
	}
	return &Scorer{companies: companies}
}

// Score is the scorer's verdict. Candidate is nil when nothing cleared the threshold.
type Score struct {
	Candidate *model.Candidate
	Value     int // ranking score; may exceed 100 with the company bonus
	Type      model.MatchType
}

// Reported is Value clamped to 0..100.
func (s Score) Reported() int {
	if s.Value > 100 {
		return 100
	}
	if s.Value < 0 {
		return 0
	}
	return s.Value
}

// Score picks the best candidate for t. An exact case-insensitive name match
// returns immediately with 100/Perfect; otherwise the highest of the raw and
// normalized token-set scores wins, and only if it strictly exceeds threshold.
func (s *Scorer) Score(t model.Theater, cands model.Candidates, threshold int) Score {
	keys := make([]string, 0, len(cands))
	for k := range cands {
		keys = append(keys, k)
	}
	sort.Strings(keys) // iteration order decides ties

	name := strings.TrimSpace(t.Name)
	for _, k := range keys {
		c := cands[k]
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return Score{Candidate: &c, Value: 100, Type: model.MatchPerfect}
		}
	}

	theaterCo := theaterCompany(s.companies, t)
	normTheater := comparable(t.Name)

	var (
		best      *model.Candidate
		bestScore = math.MinInt
		bestType  = model.MatchNone
	)
	for _, k := range keys {
		c := cands[k]
		bonus := 0
		if co := s.companies.Company(c.Name); theaterCo != UnknownCompany && co == theaterCo {
			bonus = companyBonus
		}

		original := TokenSetRatio(t.Name, c.Name) + bonus
		if original > bestScore {
			cc := c
			best, bestScore, bestType = &cc, original, model.MatchOriginal
		}

		stripped := int(math.Round(strippedWeight*float64(TokenSetRatio(normTheater, comparable(c.Name))))) + bonus
		if stripped > bestScore {
			cc := c
			best, bestScore, bestType = &cc, stripped, model.MatchStripped
		}
	}

	if best == nil || bestScore <= threshold {
		return Score{Type: model.MatchNone}
	}
	return Score{Candidate: best, Value: bestScore, Type: bestType}
}
