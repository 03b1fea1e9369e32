// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jcodagnone/nearby/spatial"
)

const subscriberBuffer = 16

// PushSource is fed from outside, typically by the browser posting the
// readings of its own location API.
type PushSource struct {
	mu   sync.Mutex
	subs map[int]chan Reading
	next int
	last *Reading
	now  func() time.Time
}

// NewPushSource creates an empty push source.
func NewPushSource() *PushSource {
	return &PushSource{
		subs: make(map[int]chan Reading),
		now:  time.Now,
	}
}

// Push publishes a reading to every subscriber. Slow subscribers lose their
// oldest pending reading, never the newest.
func (s *PushSource) Push(r Reading) {
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Err == nil {
		s.last = &r
	}

	for id, ch := range s.subs {
		select {
		case ch <- r:
			continue
		default:
		}

		select {
		case <-ch:
			log.Printf("⚠️  geolocation subscriber %d is lagging, dropped a reading", id)
		default:
		}

		select {
		case ch <- r:
		default:
		}
	}
}

// Fail publishes a location failure to every subscriber.
func (s *PushSource) Fail(err error) {
	s.Push(Reading{Err: err})
}

func (s *PushSource) subscribe(ctx context.Context) <-chan Reading {
	ch := make(chan Reading, subscriberBuffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Current returns the last reading if it is recent enough, otherwise it waits
// for the next pushed reading.
func (s *PushSource) Current(ctx context.Context, opts Options) (Reading, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last != nil && opts.MaximumAge > 0 && s.now().Sub(last.Timestamp) <= opts.MaximumAge {
		return *last, nil
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := s.subscribe(subCtx)

	select {
	case r, ok := <-ch:
		if ok {
			return r, r.Err
		}
	case <-ctx.Done():
	}

	if opts.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Reading{}, ErrTimeout
	}

	return Reading{}, ctx.Err()
}

// Watch streams every pushed reading until ctx is done.
func (s *PushSource) Watch(ctx context.Context, _ Options) (<-chan Reading, error) {
	return s.subscribe(ctx), nil
}

// StaticSource always reports the same position. The watch never emits.
type StaticSource struct {
	Point spatial.Point
}

// Current returns the fixed position.
func (s StaticSource) Current(_ context.Context, _ Options) (Reading, error) {
	return Reading{Point: s.Point, Timestamp: time.Now()}, nil
}

// Watch returns a channel that is closed once ctx is done.
func (s StaticSource) Watch(ctx context.Context, _ Options) (<-chan Reading, error) {
	ch := make(chan Reading)

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}
