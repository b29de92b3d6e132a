package model

import (
	"encoding/json"
	"sort"
)

// Roster is the canonical company → region → market → theaters tree
// persisted as markets.json.
type Roster struct {
	Companies map[string]Company
}

type Company struct {
	Regions map[string]Region
}

type Region struct {
	Markets map[string]Market
}

type Market struct {
	Theaters []Theater `json:"theaters"`
}

// MarketRef locates a market inside the roster.
type MarketRef struct {
	Company string
	Region  string
	Market  string
}

func NewRoster() Roster {
	return Roster{Companies: map[string]Company{}}
}

// Markets lists every market in company, region, market order.
func (r Roster) Markets() []MarketRef {
	var out []MarketRef
	for _, c := range sortedKeys(r.Companies) {
		comp := r.Companies[c]
		for _, rg := range sortedKeys(comp.Regions) {
			reg := comp.Regions[rg]
			for _, m := range sortedKeys(reg.Markets) {
				out = append(out, MarketRef{Company: c, Region: rg, Market: m})
			}
		}
	}
	return out
}

// Find returns the first market with the given name in Markets order.
func (r Roster) Find(market string) (MarketRef, bool) {
	for _, ref := range r.Markets() {
		if ref.Market == market {
			return ref, true
		}
	}
	return MarketRef{}, false
}

// Theaters returns the theaters of the referenced market.
func (r Roster) Theaters(ref MarketRef) []Theater {
	return r.Companies[ref.Company].Regions[ref.Region].Markets[ref.Market].Theaters
}

// Put stores theaters under ref, creating intermediate levels.
func (r *Roster) Put(ref MarketRef, theaters []Theater) {
	if r.Companies == nil {
		r.Companies = map[string]Company{}
	}
	comp, ok := r.Companies[ref.Company]
	if !ok || comp.Regions == nil {
		comp.Regions = map[string]Region{}
	}
	reg, ok := comp.Regions[ref.Region]
	if !ok || reg.Markets == nil {
		reg.Markets = map[string]Market{}
	}
	reg.Markets[ref.Market] = Market{Theaters: theaters}
	comp.Regions[ref.Region] = reg
	r.Companies[ref.Company] = comp
}

// Clone deep-copies the roster so the copy can be mutated freely.
func (r Roster) Clone() Roster {
	out := NewRoster()
	for _, ref := range r.Markets() {
		src := r.Theaters(ref)
		cp := make([]Theater, len(src))
		copy(cp, src)
		out.Put(ref, cp)
	}
	// companies or regions without markets survive the copy too
	for c, comp := range r.Companies {
		oc, ok := out.Companies[c]
		if !ok {
			oc = Company{Regions: map[string]Region{}}
		}
		for rg := range comp.Regions {
			if _, ok := oc.Regions[rg]; !ok {
				oc.Regions[rg] = Region{Markets: map[string]Market{}}
			}
		}
		out.Companies[c] = oc
	}
	return out
}

func (r Roster) MarshalJSON() ([]byte, error) {
	if r.Companies == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Companies)
}

func (r *Roster) UnmarshalJSON(b []byte) error {
	r.Companies = map[string]Company{}
	return json.Unmarshal(b, &r.Companies)
}

func (c Company) MarshalJSON() ([]byte, error) {
	if c.Regions == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Regions)
}

func (c *Company) UnmarshalJSON(b []byte) error {
	c.Regions = map[string]Region{}
	return json.Unmarshal(b, &c.Regions)
}

func (g Region) MarshalJSON() ([]byte, error) {
	if g.Markets == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g.Markets)
}

func (g *Region) UnmarshalJSON(b []byte) error {
	g.Markets = map[string]Market{}
	return json.Unmarshal(b, &g.Markets)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
