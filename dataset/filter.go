// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"sync"

	"github.com/jcodagnone/nearby/spatial"
)

// DefaultThreshold is the straight-line distance, in meters, within which
// dataset entries are shown.
const DefaultThreshold = 5000.0

// Filter returns the entries whose geodesic distance to pos is at most
// threshold meters. The boundary is inclusive and the dataset order is kept.
func Filter(entries []Entry, pos spatial.Point, threshold float64) []Entry {
	filtered := make([]Entry, 0)

	for _, e := range entries {
		if pos.HaversineDistance(e.Point()) <= threshold {
			filtered = append(filtered, e)
		}
	}

	return filtered
}

// Join filters the dataset against the position once both have arrived, and
// again every time either of them changes.
type Join struct {
	threshold float64

	mu       sync.Mutex
	dataset  *Dataset
	position *spatial.Point
	result   []Entry
	ready    bool
}

// NewJoin creates a join that filters with the given threshold.
func NewJoin(threshold float64) *Join {
	return &Join{threshold: threshold}
}

// SetDataset provides (or replaces) the dataset. It returns the filtered
// entries and true when a position is already known.
func (j *Join) SetDataset(ds *Dataset) ([]Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.dataset = ds

	return j.recompute()
}

// SetPosition provides a new position. It returns the filtered entries and
// true when the dataset is already loaded.
func (j *Join) SetPosition(p spatial.Point) ([]Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.position = &p

	return j.recompute()
}

// Result returns the latest filtered entries, if any were computed.
func (j *Join) Result() ([]Entry, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.result, j.ready
}

// Threshold returns the filter distance in meters.
func (j *Join) Threshold() float64 {
	return j.threshold
}

func (j *Join) recompute() ([]Entry, bool) {
	if j.dataset == nil || j.position == nil {
		return nil, false
	}

	j.result = Filter(j.dataset.Entries, *j.position, j.threshold)
	j.ready = true

	return j.result, true
}
