// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package geolocation streams the user's position from a location source.
package geolocation

import (
	"context"
	"fmt"
	"time"

	"github.com/jcodagnone/nearby/spatial"
)

// Options mirrors the knobs of the device location API.
type Options struct {
	// EnableHighAccuracy asks the device for its best fix.
	EnableHighAccuracy bool

	// Timeout bounds how long a single position request may take. Zero means no limit.
	Timeout time.Duration

	// MaximumAge is the oldest cached reading that can satisfy a one-shot
	// request. Zero forces a fresh reading.
	MaximumAge time.Duration
}

// DefaultOptions returns high accuracy, a 30 second timeout and no cached readings.
func DefaultOptions() Options {
	return Options{
		EnableHighAccuracy: true,
		Timeout:            30 * time.Second,
		MaximumAge:         0,
	}
}

// Code classifies location failures the same way browsers do.
type Code int

const (
	// CodeUnknown is an unclassified failure.
	CodeUnknown Code = iota
	// CodePermissionDenied the user refused to share the location.
	CodePermissionDenied
	// CodePositionUnavailable the device could not get a fix.
	CodePositionUnavailable
	// CodeTimeout no reading arrived in time.
	CodeTimeout
	// CodeUnsupported there is no location source at all.
	CodeUnsupported
)

func (c Code) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission denied"
	case CodePositionUnavailable:
		return "position unavailable"
	case CodeTimeout:
		return "timeout"
	case CodeUnsupported:
		return "geolocation not supported"
	default:
		return "unknown geolocation error"
	}
}

// Error is a location failure.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}

	return fmt.Sprintf("geolocation: %s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrTimeout)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Code == e.Code
}

// Sentinel errors, one per code.
var (
	ErrPermissionDenied    = &Error{Code: CodePermissionDenied}
	ErrPositionUnavailable = &Error{Code: CodePositionUnavailable}
	ErrTimeout             = &Error{Code: CodeTimeout}
	ErrUnsupported         = &Error{Code: CodeUnsupported}
)

// CodeOf maps the numeric codes sent by browsers (1, 2, 3) to an error.
func CodeOf(code int, message string) *Error {
	switch Code(code) {
	case CodePermissionDenied, CodePositionUnavailable, CodeTimeout, CodeUnsupported:
		return &Error{Code: Code(code), Message: message}
	default:
		return &Error{Code: CodeUnknown, Message: message}
	}
}

// Reading is a single position fix, or a failure when Err is set.
type Reading struct {
	Point     spatial.Point `json:"point"`
	Accuracy  float64       `json:"accuracy"` // meters
	Timestamp time.Time     `json:"timestamp"`
	Err       error         `json:"-"`
}

// Source abstracts the device location API.
type Source interface {
	// Current returns a single reading, honouring opts.Timeout and opts.MaximumAge.
	Current(ctx context.Context, opts Options) (Reading, error)

	// Watch streams readings until ctx is done, then closes the channel.
	Watch(ctx context.Context, opts Options) (<-chan Reading, error)
}
