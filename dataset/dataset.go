// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset loads the bundled list of known locations and filters it by
// distance to the current position.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/nearby/spatial"
)

// ErrNoCoordinates is returned for records without usable coordinates.
var ErrNoCoordinates = errors.New("dataset: record has no usable coordinates")

// Entry is a known location from the bundled dataset.
type Entry struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Address   string            `json:"address,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
}

// Point returns the entry location.
func (e Entry) Point() spatial.Point {
	return spatial.Point{Lat: e.Latitude, Lng: e.Longitude}
}

// Dataset is the immutable list of entries loaded at startup.
type Dataset struct {
	Source  string
	Entries []Entry
	Skipped int // records dropped because their coordinates did not parse
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}

	return len(d.Entries)
}

// parseCoord accepts "37.5665", " 37,5665 " and JSON numbers.
func parseCoord(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return 0, ErrNoCoordinates
		}

		return strconv.ParseFloat(s, 64)
	default:
		return 0, ErrNoCoordinates
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Columns names the record keys (or spreadsheet headers) holding each field.
type Columns struct {
	Name      []string
	Address   []string
	Latitude  []string
	Longitude []string
}

// DefaultColumns understands the cleaned JSON export as well as the public
// toilet data published by the Korean data portal.
var DefaultColumns = Columns{
	Name:      []string{"name", "화장실명"},
	Address:   []string{"address", "소재지도로명주소", "소재지지번주소"},
	Latitude:  []string{"latitude", "lat", "WGS84위도", "위도"},
	Longitude: []string{"longitude", "lng", "lon", "WGS84경도", "경도"},
}

func lookup(rec map[string]any, keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return k, v, true
		}
	}

	return "", nil, false
}

// newEntry builds an entry out of a generic record.
func newEntry(rec map[string]any, cols Columns) (Entry, error) {
	latKey, latVal, ok := lookup(rec, cols.Latitude)
	if !ok {
		return Entry{}, ErrNoCoordinates
	}

	lngKey, lngVal, ok := lookup(rec, cols.Longitude)
	if !ok {
		return Entry{}, ErrNoCoordinates
	}

	lat, err := parseCoord(latVal)
	if err != nil {
		return Entry{}, fmt.Errorf("latitude %v: %w", latVal, err)
	}

	lng, err := parseCoord(lngVal)
	if err != nil {
		return Entry{}, fmt.Errorf("longitude %v: %w", lngVal, err)
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return Entry{}, err
	}

	nameKey, nameVal, _ := lookup(rec, cols.Name)
	addrKey, addrVal, _ := lookup(rec, cols.Address)

	e := Entry{
		Name:      stringValue(nameVal),
		Address:   stringValue(addrVal),
		Latitude:  lat,
		Longitude: lng,
	}

	for k, v := range rec {
		if k == "id" || k == latKey || k == lngKey || k == nameKey || k == addrKey {
			continue
		}

		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}

		e.Fields[k] = stringValue(v)
	}

	e.ID = stringValue(rec["id"])
	if e.ID == "" {
		e.ID = spatial.StableID(e.Name, p)
	}

	return e, nil
}

// uniqueIDs counts the ids handed out while loading one dataset. Records that
// share name and coordinates would otherwise collide.
type uniqueIDs map[string]int

// assign returns id, or id with an occurrence suffix when it was already used.
func (u uniqueIDs) assign(id string) string {
	unique := id
	for n := 2; u[unique] > 0; n++ {
		unique = fmt.Sprintf("%s-%d", id, n)
	}

	u[unique]++

	return unique
}

// ParseJSON reads a flat JSON array of records with string typed
// latitude/longitude fields.
func ParseJSON(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing dataset JSON: %w", err)
	}

	ds := &Dataset{Entries: make([]Entry, 0, len(records))}
	ids := uniqueIDs{}

	for i, rec := range records {
		e, err := newEntry(rec, DefaultColumns)
		if err != nil {
			ds.Skipped++

			if ds.Skipped <= 5 {
				log.Printf("⚠️  dataset record %d skipped: %v", i, err)
			}

			continue
		}

		e.ID = ids.assign(e.ID)
		ds.Entries = append(ds.Entries, e)
	}

	return ds, nil
}

// LoadJSON loads the bundled dataset file.
func LoadJSON(path string) (*Dataset, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by admin
	if err != nil {
		return nil, fmt.Errorf("reading dataset file: %w", err)
	}
	defer f.Close()

	ds, err := ParseJSON(f)
	if err != nil {
		return nil, err
	}

	ds.Source = path

	return ds, nil
}

// Load picks the loader from the file extension.
func Load(path string) (*Dataset, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xlsx"):
		return LoadXLSX(path, "", DefaultColumns)
	default:
		return LoadJSON(path)
	}
}
