// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"context"
	"log"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/geolocation"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/translate"
)

// Variant selects what a session looks up around the user.
type Variant struct {
	Categories []string `json:"categories"`
	Translate  bool     `json:"translate"`
	Target     string   `json:"target"`
}

// DefaultVariant searches convenience stores and toilets, without translation.
func DefaultVariant() Variant {
	return Variant{
		Categories: []string{places.CategoryConvenienceStore, places.CategoryToilet},
		Target:     "en",
	}
}

// Config holds the collaborators shared by all sessions.
type Config struct {
	Lookup     *places.Lookup
	Translator *translate.Adapter
	// Dataset is optional. When set, the filtered entries are shown as the
	// "dataset" result set.
	Dataset   *dataset.Holder
	Threshold float64
	// Concurrency bounds the lookups in flight for one position.
	Concurrency int
}

// Session follows the position of one user and keeps the map in sync with it.
type Session struct {
	ID      string
	variant Variant
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	model       *Model
	join        *dataset.Join
	generation  uint64
	applied     map[string]uint64
	locationErr error
	closed      bool

	located     chan struct{}
	locatedOnce sync.Once

	pending     sync.WaitGroup
	watcher     *geolocation.Watcher
	unsubscribe func()
	closeOnce   sync.Once
}

// NewSession creates a session. It subscribes to the dataset right away so
// the dataset and the first position can arrive in any order.
func NewSession(id string, variant Variant, cfg Config) *Session {
	if cfg.Threshold <= 0 {
		cfg.Threshold = dataset.DefaultThreshold
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	sets := slices.Clone(variant.Categories)
	if cfg.Dataset != nil {
		sets = append(sets, SetDataset)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		ID:      id,
		variant: variant,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		model:   NewModel(sets...),
		join:    dataset.NewJoin(cfg.Threshold),
		applied: make(map[string]uint64),
		located: make(chan struct{}),
	}

	if cfg.Dataset != nil {
		s.unsubscribe = cfg.Dataset.Subscribe(s.handleDataset)
	}

	return s
}

// Variant returns the session variant.
func (s *Session) Variant() Variant {
	return s.variant
}

// Start begins watching src. Readings update the map, failures are logged and
// leave the map where it is.
func (s *Session) Start(ctx context.Context, src geolocation.Source, opts geolocation.Options) error {
	w := geolocation.NewWatcher(src, opts)

	s.mu.Lock()
	if s.watcher != nil {
		s.mu.Unlock()

		return geolocation.ErrAlreadyStarted
	}
	s.watcher = w
	s.mu.Unlock()

	return w.Start(ctx, func(r geolocation.Reading) {
		s.HandlePosition(r.Point)
	}, s.handleLocationError)
}

func (s *Session) handleLocationError(err error) {
	log.Printf("Error getting location (session %s): %v", s.ID, err)

	s.mu.Lock()
	s.locationErr = err
	s.mu.Unlock()
}

// HandlePosition records p, refilters the dataset and fans out one search per
// category. The searches run in the background; see Wait.
func (s *Session) HandlePosition(p spatial.Point) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}

	s.generation++
	gen := s.generation
	s.locationErr = nil
	s.model.SetPosition(p)

	if entries, ok := s.join.SetPosition(p); ok {
		s.applyLocked(SetDataset, gen, datasetEntries(entries))
	}

	fanOut := s.cfg.Lookup != nil && len(s.variant.Categories) > 0
	if fanOut {
		// Under mu, so Close cannot be waiting yet.
		s.pending.Add(1)
	}
	s.mu.Unlock()

	s.locatedOnce.Do(func() { close(s.located) })

	if !fanOut {
		return
	}

	go func() {
		defer s.pending.Done()

		var g errgroup.Group
		g.SetLimit(s.cfg.Concurrency)

		for _, category := range s.variant.Categories {
			g.Go(func() error {
				s.search(gen, p, category)

				return nil
			})
		}

		_ = g.Wait()
	}()
}

func (s *Session) search(gen uint64, p spatial.Point, category string) {
	results, err := s.cfg.Lookup.Search(s.ctx, p, category)
	if err != nil {
		// Lookup already logged it. The previous list stays.
		return
	}

	if s.variant.Translate && s.cfg.Translator != nil {
		results = s.cfg.Translator.Results(s.ctx, results, s.variant.Target)
	}

	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, FromPlace(category, r))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.applyLocked(category, gen, entries)
}

func (s *Session) handleDataset(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entries, ok := s.join.SetDataset(ds); ok {
		s.applyLocked(SetDataset, s.generation, datasetEntries(entries))
	}
}

// applyLocked replaces a result set unless a newer generation already
// replaced it.
func (s *Session) applyLocked(set string, gen uint64, entries []Entry) bool {
	if gen < s.applied[set] {
		log.Printf("Dropping stale %s results (generation %d < %d)", set, gen, s.applied[set])

		return false
	}

	s.applied[set] = gen
	s.model.Replace(set, entries)

	return true
}

func datasetEntries(entries []dataset.Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromDataset(e))
	}

	return out
}

// Select opens the popup of a marker.
func (s *Session) Select(markerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.model.Select(markerID)
}

// ClearSelection closes the popup.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.model.ClearSelection()
}

// State renders the session map.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.model.State()
	st.Generation = s.generation

	if s.locationErr != nil {
		st.LocationError = s.locationErr.Error()
	}

	return st
}

// Located is closed once the first position has been handled. Searches for
// it are already accounted for by Wait when it is closed.
func (s *Session) Located() <-chan struct{} {
	return s.located
}

// Wait blocks until the searches in flight have been applied.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Close stops the watcher and abandons the searches in flight.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		w := s.watcher
		s.mu.Unlock()

		s.cancel()

		if w != nil {
			w.Stop()
		}

		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		s.pending.Wait()
	})
}
