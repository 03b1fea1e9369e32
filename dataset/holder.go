// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"log"
	"sync"
)

// Holder publishes the dataset once its (asynchronous) load finishes.
type Holder struct {
	mu     sync.Mutex
	ds     *Dataset
	err    error
	nextID int
	subs   map[int]func(*Dataset)
}

// NewHolder creates an empty holder.
func NewHolder() *Holder {
	return &Holder{subs: make(map[int]func(*Dataset))}
}

// LoadAsync runs load in the background and publishes its result. A failed
// load is logged and leaves the holder empty.
func (h *Holder) LoadAsync(load func() (*Dataset, error)) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		ds, err := load()
		if err != nil {
			log.Printf("Error loading dataset: %v", err)

			h.mu.Lock()
			h.err = err
			h.mu.Unlock()

			return
		}

		log.Printf("✅ Loaded %d dataset entries from %s (%d skipped)", ds.Len(), ds.Source, ds.Skipped)
		h.Set(ds)
	}()

	return done
}

// Set publishes ds to all subscribers.
func (h *Holder) Set(ds *Dataset) {
	h.mu.Lock()
	h.ds = ds
	h.err = nil

	subs := make([]func(*Dataset), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(ds)
	}
}

// Get returns the dataset if it has been loaded.
func (h *Holder) Get() (*Dataset, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.ds, h.ds != nil
}

// Err returns the load error, if the last load failed.
func (h *Holder) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

// Subscribe calls fn with the dataset now if it is loaded, and on every later
// Set. The returned function cancels the subscription.
func (h *Holder) Subscribe(fn func(*Dataset)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	ds := h.ds
	h.mu.Unlock()

	if ds != nil {
		fn(ds)
	}

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}
