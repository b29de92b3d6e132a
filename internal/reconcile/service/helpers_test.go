package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"theater-recon/internal/reconcile/model"
)

// fakeSearcher serves canned results and records every call.
type fakeSearcher struct {
	mu        sync.Mutex
	zips      map[string]model.Candidates
	names     map[string]model.Candidates
	zipErr    map[string]error
	nameErr   map[string]error
	zipCalls  []string
	dates     []string
	nameCalls []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		zips:    map[string]model.Candidates{},
		names:   map[string]model.Candidates{},
		zipErr:  map[string]error{},
		nameErr: map[string]error{},
	}
}

var errUpstream = errors.New("upstream timeout")

func (f *fakeSearcher) SearchByZIP(_ context.Context, zip, date string) (model.Candidates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zipCalls = append(f.zipCalls, zip)
	f.dates = append(f.dates, date)
	if err := f.zipErr[zip]; err != nil {
		return nil, err
	}
	return copyCandidates(f.zips[zip]), nil
}

func (f *fakeSearcher) SearchByName(_ context.Context, query string) (model.Candidates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nameCalls = append(f.nameCalls, query)
	if err := f.nameErr[query]; err != nil {
		return nil, err
	}
	return copyCandidates(f.names[query]), nil
}

func (f *fakeSearcher) sortedZipCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.zipCalls...)
	sort.Strings(out)
	return out
}

func (f *fakeSearcher) sortedNameCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.nameCalls...)
	sort.Strings(out)
	return out
}

func copyCandidates(c model.Candidates) model.Candidates {
	out := model.Candidates{}
	for k, v := range c {
		out[k] = v
	}
	return out
}

func listing(names ...string) model.Candidates {
	out := model.Candidates{}
	for _, n := range names {
		out[n] = model.Candidate{Name: n, URL: "https://www.fandango.com/" + slug(n)}
	}
	return out
}

func slug(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b = append(b, r+'a'-'A')
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b = append(b, r)
		case len(b) > 0 && b[len(b)-1] != '-':
			b = append(b, '-')
		}
	}
	return string(b)
}

// memStore is an in-memory Store that can undo its last cache write.
type memStore struct {
	roster    *model.Roster
	cache     *model.TheaterCache
	prevCache *model.TheaterCache
	saves     int
	restores  int
	rosterErr error
}

func (m *memStore) SaveRoster(r model.Roster) error {
	if m.rosterErr != nil {
		return m.rosterErr
	}
	m.roster = &r
	m.saves++
	return nil
}

func (m *memStore) RestoreCache() error {
	m.cache = m.prevCache
	m.restores++
	return nil
}

func (m *memStore) SaveCache(c model.TheaterCache) error {
	m.prevCache = m.cache
	m.cache = &c
	m.saves++
	return nil
}
