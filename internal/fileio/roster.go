package fileio

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"theater-recon/internal/reconcile/model"
	"theater-recon/internal/utils"
)

// DefaultRegion groups rows whose sheet has no region column.
const DefaultRegion = "Default"

// roster column aliases in priority order, compared after normHeaderKey
var rosterColumns = map[string][]string{
	"company":         {"company", "circuit", "chain"},
	"region":          {"region", "division"},
	"market":          {"market", "dma"},
	"name":            {"name", "theater name", "theatre name", "theater", "theatre"},
	"zip":             {"zip", "zip code", "zipcode", "postal code"},
	"status":          {"status"},
	"not_on_fandango": {"not on fandango", "not_on_fandango", "not listed"},
	"url":             {"url", "website"},
}

var reHeaderJunk = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// normHeaderKey lower-cases a header and collapses punctuation to single spaces.
func normHeaderKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = reHeaderJunk.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// resolveColumns maps logical roster columns to the sheet's actual headers.
// When several headers alias one column the earliest alias wins, then the
// first header in sorted order.
func resolveColumns(rec map[string]string) map[string]string {
	headers := make([]string, 0, len(rec))
	for h := range rec {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	out := map[string]string{}
	for col, aliases := range rosterColumns {
		if h, ok := findHeader(headers, aliases); ok {
			out[col] = h
		}
	}
	return out
}

func findHeader(headers, aliases []string) (string, bool) {
	for _, a := range aliases {
		want := normHeaderKey(a)
		for _, h := range headers {
			if normHeaderKey(h) == want {
				return h, true
			}
		}
	}
	return "", false
}

// ReadRoster loads a roster from markets.json or a CSV/XLS/XLSX sheet with
// one theater per row.
func ReadRoster(r io.Reader, filename string) (model.Roster, error) {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		var roster model.Roster
		if err := json.NewDecoder(r).Decode(&roster); err != nil {
			return model.Roster{}, fmt.Errorf("decode roster json: %w", err)
		}
		return roster, nil
	}

	rows, err := ReadAnyMaps(r, filename, 1)
	if err != nil {
		return model.Roster{}, err
	}
	return RosterFromRows(rows)
}

// RosterFromRows builds a roster from sheet rows, keeping row order within markets.
func RosterFromRows(rows []map[string]string) (model.Roster, error) {
	roster := model.NewRoster()
	if len(rows) == 0 {
		return roster, nil
	}
	cols := resolveColumns(rows[0])
	for _, required := range []string{"company", "market", "name"} {
		if _, ok := cols[required]; !ok {
			return model.Roster{}, fmt.Errorf("roster sheet has no %q column", required)
		}
	}

	get := func(rec map[string]string, col string) string {
		if h, ok := cols[col]; ok {
			return strings.TrimSpace(rec[h])
		}
		return ""
	}

	for i, rec := range rows {
		name := get(rec, "name")
		if name == "" {
			continue
		}
		ref := model.MarketRef{Company: get(rec, "company"), Region: get(rec, "region"), Market: get(rec, "market")}
		if ref.Company == "" || ref.Market == "" {
			return model.Roster{}, fmt.Errorf("roster row %d (%s): company and market are required", i+2, name)
		}
		if ref.Region == "" {
			ref.Region = DefaultRegion
		}

		t := model.Theater{
			Name:          name,
			Zip:           utils.NormalizeZIP(get(rec, "zip")),
			Status:        parseStatus(get(rec, "status")),
			NotOnFandango: parseBool(get(rec, "not_on_fandango")),
			URL:           get(rec, "url"),
		}
		roster.Put(ref, append(roster.Theaters(ref), t))
	}
	return roster, nil
}

func parseStatus(s string) string {
	switch normHeaderKey(s) {
	case "permanently closed", "closed":
		return model.StatusPermanentlyClosed
	case "":
		return ""
	default:
		return model.StatusActive
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}
