// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyStarted is returned when Start is called twice on the same watcher.
var ErrAlreadyStarted = errors.New("geolocation: watcher already started")

// Watcher obtains a one-shot position and keeps a continuous watch on a Source.
// A watcher is single use: once stopped it cannot be started again.
// Every reading is handed to the consumer once; there is no debouncing, retry,
// or fallback position. A reading seen by both the one-shot request and the
// watch, or one older than the last delivered, is dropped.
type Watcher struct {
	source Source
	opts   Options

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	deliver sync.Mutex // serializes consumer and onError calls
	last    Reading    // last delivered reading, guarded by deliver
}

// NewWatcher creates a watcher over source. A nil source behaves like a
// platform without location support.
func NewWatcher(source Source, opts Options) *Watcher {
	return &Watcher{source: source, opts: opts}
}

// Start requests a one-shot position and also establishes the continuous
// watch. Failures are reported through onError, including the ones that
// prevent the watch from starting.
func (w *Watcher) Start(ctx context.Context, consumer func(Reading), onError func(error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyStarted
	}

	if w.source == nil {
		onError(ErrUnsupported)

		return ErrUnsupported
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	emit := func(r Reading, err error) {
		if ctx.Err() != nil {
			return
		}

		w.deliver.Lock()
		defer w.deliver.Unlock()

		if w.seen(r) {
			return
		}

		if err != nil {
			onError(err)

			return
		}

		consumer(r)
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		r, err := w.source.Current(ctx, w.opts)
		if err == nil && r.Err != nil {
			err = r.Err
		}

		emit(r, err)
	}()

	readings, err := w.source.Watch(ctx, w.opts)
	if err != nil {
		emit(Reading{}, err)

		return nil
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		for r := range readings {
			emit(r, r.Err)
		}
	}()

	return nil
}

// seen reports whether r was already delivered, and records it otherwise.
// Readings without a timestamp (failures of the request itself) are never
// considered duplicates.
func (w *Watcher) seen(r Reading) bool {
	if r.Timestamp.IsZero() {
		return false
	}

	if !w.last.Timestamp.IsZero() {
		if r.Timestamp.Before(w.last.Timestamp) {
			return true
		}

		if r.Timestamp.Equal(w.last.Timestamp) && r.Point == w.last.Point && errors.Is(r.Err, w.last.Err) {
			return true
		}
	}

	w.last = r

	return false
}

// Stop tears down the watch and waits for in-flight deliveries to finish.
// It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	w.wg.Wait()
}
