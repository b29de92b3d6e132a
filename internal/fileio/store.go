package fileio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"theater-recon/internal/reconcile/model"
)

// Store keeps markets.json and theater_cache.json on disk. Every write
// copies the previous file to <file>.bak, writes a temp file and renames it
// under a <file>.lock file lock. The last cache write can be undone with
// RestoreCache.
type Store struct {
	rosterPath string
	cachePath  string
	log        zerolog.Logger
}

func NewStore(rosterPath, cachePath string, logger zerolog.Logger) *Store {
	return &Store{rosterPath: rosterPath, cachePath: cachePath, log: logger}
}

func (s *Store) RosterPath() string { return s.rosterPath }
func (s *Store) CachePath() string  { return s.cachePath }

// LoadRoster reads markets.json. A missing file yields an empty roster.
func (s *Store) LoadRoster() (model.Roster, error) {
	roster := model.NewRoster()
	found, err := readJSON(s.rosterPath, &roster)
	if err != nil {
		return model.Roster{}, fmt.Errorf("load roster: %w", err)
	}
	if !found {
		s.log.Debug().Str("path", s.rosterPath).Msg("roster file missing, starting empty")
	}
	return roster, nil
}

// LoadCache reads theater_cache.json. A missing file yields an empty cache.
func (s *Store) LoadCache() (model.TheaterCache, error) {
	cache := model.NewTheaterCache()
	found, err := readJSON(s.cachePath, &cache)
	if err != nil {
		return model.TheaterCache{}, fmt.Errorf("load cache: %w", err)
	}
	if cache.Markets == nil {
		cache.Markets = map[string]model.CacheMarket{}
	}
	if !found {
		s.log.Debug().Str("path", s.cachePath).Msg("cache file missing, starting empty")
	}
	return cache, nil
}

func (s *Store) SaveRoster(r model.Roster) error {
	if err := writeJSON(s.rosterPath, r); err != nil {
		return err
	}
	s.log.Info().Str("path", s.rosterPath).Int("markets", len(r.Markets())).Msg("roster saved")
	return nil
}

func (s *Store) SaveCache(c model.TheaterCache) error {
	if err := writeJSON(s.cachePath, c); err != nil {
		return err
	}
	s.log.Info().Str("path", s.cachePath).Int("markets", len(c.Markets)).Msg("cache saved")
	return nil
}

// RestoreCache undoes the last SaveCache: the .bak copy goes back in place,
// or the cache file is removed when the save created it.
func (s *Store) RestoreCache() error {
	if err := restore(s.cachePath); err != nil {
		return fmt.Errorf("restore cache: %w", err)
	}
	s.log.Warn().Str("path", s.cachePath).Msg("cache restored from backup")
	return nil
}

func restore(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	prev, err := os.ReadFile(path + ".bak")
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	case err != nil:
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, prev, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// EncodeJSON is the on-disk encoding: two-space indent, no HTML escaping,
// trailing newline.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	// .bak always mirrors the file as it was before this write; none if there was no file
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", prev, 0o644); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := os.Remove(path + ".bak"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale backup: %w", err)
		}
	} else {
		return fmt.Errorf("read previous %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
