// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapview holds the render model of the map: markers per result set,
// the current position and the selected marker.
package mapview

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
)

// DefaultZoom is the zoom level of the map.
const DefaultZoom = 15

// DefaultCenter is used until the first position arrives (Seoul City Hall).
var DefaultCenter = spatial.Point{Lat: 37.5665, Lng: 126.9780}

// SetDataset is the result set holding the filtered static dataset.
const SetDataset = "dataset"

// CurrentMarkerID identifies the marker of the user's own position.
const CurrentMarkerID = "current"

// ErrUnknownMarker is returned when selecting a marker that is not on the map.
var ErrUnknownMarker = errors.New("mapview: unknown marker")

// Source tells where an entry comes from.
type Source string

// Entry sources.
const (
	SourcePlaces  Source = "places"
	SourceDataset Source = "dataset"
)

// Color of a marker pin.
type Color string

// Marker colors.
const (
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
)

// IconURL returns the stock Google Maps pin for the color.
func (c Color) IconURL() string {
	return fmt.Sprintf("https://maps.google.com/mapfiles/ms/icons/%s-dot.png", c)
}

// ColorFor returns the pin color of a result set.
func ColorFor(set string) Color {
	switch set {
	case places.CategoryConvenienceStore:
		return ColorRed
	case places.CategoryToilet:
		return ColorGreen
	case SetDataset:
		return ColorPurple
	default:
		return ColorOrange
	}
}

// Entry is the display contract shared by live results and dataset entries.
type Entry struct {
	ID       string        `json:"id"`
	Source   Source        `json:"source"`
	Category string        `json:"category"`
	Name     string        `json:"name"`
	Vicinity string        `json:"vicinity,omitempty"`
	Position spatial.Point `json:"position"`
}

// FromPlace normalizes a live lookup result.
func FromPlace(category string, r places.Result) Entry {
	return Entry{
		ID:       r.ID,
		Source:   SourcePlaces,
		Category: category,
		Name:     r.Name,
		Vicinity: r.Vicinity,
		Position: r.Location,
	}
}

// FromDataset normalizes a static dataset entry.
func FromDataset(e dataset.Entry) Entry {
	return Entry{
		ID:       e.ID,
		Source:   SourceDataset,
		Category: SetDataset,
		Name:     e.Name,
		Vicinity: e.Address,
		Position: e.Point(),
	}
}

// Marker is a pin on the map.
type Marker struct {
	ID       string        `json:"id"`
	EntryID  string        `json:"entry_id,omitempty"`
	Set      string        `json:"set"`
	Color    Color         `json:"color"`
	Icon     string        `json:"icon"`
	Title    string        `json:"title,omitempty"`
	Position spatial.Point `json:"position"`
}

// Popup is the detail panel of the selected marker.
type Popup struct {
	MarkerID string        `json:"marker_id"`
	Name     string        `json:"name"`
	Vicinity string        `json:"vicinity,omitempty"`
	Position spatial.Point `json:"position"`
}

// State is what the map surface renders.
type State struct {
	Center     spatial.Point  `json:"center"`
	Zoom       int            `json:"zoom"`
	Current    *spatial.Point `json:"current,omitempty"`
	Markers    []Marker       `json:"markers"`
	Popup      *Popup         `json:"popup,omitempty"`
	Generation uint64         `json:"generation"`
	// LocationError is the last geolocation failure, if any.
	LocationError string `json:"location_error,omitempty"`
}

// MarkerID builds the marker identifier of an entry in a result set.
func MarkerID(set, entryID string) string {
	return set + ":" + entryID
}

// Model is the render model. It is not safe for concurrent use.
type Model struct {
	current  *spatial.Point
	order    []string
	sets     map[string][]Entry
	selected string
}

// NewModel creates a model whose result sets are rendered in the given order.
func NewModel(sets ...string) *Model {
	return &Model{
		order: slices.Clone(sets),
		sets:  make(map[string][]Entry, len(sets)),
	}
}

// SetPosition records the user's position.
func (m *Model) SetPosition(p spatial.Point) {
	m.current = &p
}

// Position returns the user's position, if known.
func (m *Model) Position() (spatial.Point, bool) {
	if m.current == nil {
		return spatial.Point{}, false
	}

	return *m.current, true
}

// Replace swaps the whole content of a result set. A selection that no
// longer points to a marker on the map is cleared.
func (m *Model) Replace(set string, entries []Entry) {
	if !slices.Contains(m.order, set) {
		m.order = append(m.order, set)
	}

	m.sets[set] = slices.Clone(entries)

	if m.selected != "" {
		if _, ok := m.find(m.selected); !ok {
			m.selected = ""
		}
	}
}

// Entries returns the content of a result set.
func (m *Model) Entries(set string) []Entry {
	return slices.Clone(m.sets[set])
}

func (m *Model) find(markerID string) (Entry, bool) {
	for _, set := range m.order {
		for _, e := range m.sets[set] {
			if MarkerID(set, e.ID) == markerID {
				return e, true
			}
		}
	}

	return Entry{}, false
}

// Select makes markerID the selected marker.
func (m *Model) Select(markerID string) error {
	if _, ok := m.find(markerID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, markerID)
	}

	m.selected = markerID

	return nil
}

// ClearSelection closes the popup.
func (m *Model) ClearSelection() {
	m.selected = ""
}

// Selection returns the selected entry, if any.
func (m *Model) Selection() (Entry, bool) {
	if m.selected == "" {
		return Entry{}, false
	}

	return m.find(m.selected)
}

// State renders the model.
func (m *Model) State() State {
	st := State{
		Center:  DefaultCenter,
		Zoom:    DefaultZoom,
		Markers: make([]Marker, 0),
	}

	if m.current != nil {
		p := *m.current
		st.Center = p
		st.Current = &p
		st.Markers = append(st.Markers, Marker{
			ID:       CurrentMarkerID,
			Set:      CurrentMarkerID,
			Color:    ColorBlue,
			Icon:     ColorBlue.IconURL(),
			Position: p,
		})
	}

	for _, set := range m.order {
		color := ColorFor(set)

		for _, e := range m.sets[set] {
			st.Markers = append(st.Markers, Marker{
				ID:       MarkerID(set, e.ID),
				EntryID:  e.ID,
				Set:      set,
				Color:    color,
				Icon:     color.IconURL(),
				Title:    e.Name,
				Position: e.Position,
			})
		}
	}

	if e, ok := m.Selection(); ok {
		st.Popup = &Popup{
			MarkerID: m.selected,
			Name:     e.Name,
			Vicinity: e.Vicinity,
			Position: e.Position,
		}
	}

	return st
}
