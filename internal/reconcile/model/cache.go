package model

import "time"

// ClosedSuffix marks closed theaters inside cache entry names.
const ClosedSuffix = " (Permanently Closed)"

// TheaterCache is theater_cache.json: the URL list consumed by the scraper.
type TheaterCache struct {
	Metadata CacheMetadata          `json:"metadata"`
	Markets  map[string]CacheMarket `json:"markets"`
}

type CacheMetadata struct {
	LastUpdated string `json:"last_updated"`
}

type CacheMarket struct {
	Theaters []CacheEntry `json:"theaters"`
}

type CacheEntry struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Company       string `json:"company,omitempty"`
	NotOnFandango bool   `json:"not_on_fandango,omitempty"`
}

func NewTheaterCache() TheaterCache {
	return TheaterCache{Markets: map[string]CacheMarket{}}
}

// Clone copies the cache including entry slices.
func (c TheaterCache) Clone() TheaterCache {
	out := TheaterCache{Metadata: c.Metadata, Markets: make(map[string]CacheMarket, len(c.Markets))}
	for k, m := range c.Markets {
		cp := make([]CacheEntry, len(m.Theaters))
		copy(cp, m.Theaters)
		out.Markets[k] = CacheMarket{Theaters: cp}
	}
	return out
}

// Stamp sets metadata.last_updated.
func (c *TheaterCache) Stamp(now time.Time) {
	c.Metadata.LastUpdated = now.UTC().Format(time.RFC3339)
}
