// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package places runs proximity searches against a third-party places service.
package places

import (
	"context"
	"fmt"
	"log"

	"github.com/jcodagnone/nearby/spatial"
)

// DefaultRadius is the search radius, in meters, used for every lookup.
const DefaultRadius = 1000

// Well known categories.
const (
	CategoryConvenienceStore = "convenience_store"
	CategoryToilet           = "toilet"
	CategoryLandmark         = "tourist_attraction"
)

// Status is the status reported by the places service for a search.
type Status string

// Statuses returned by the places service.
const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusOverQueryLimit Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusUnknownError   Status = "UNKNOWN_ERROR"
)

// Request is a proximity search.
type Request struct {
	Location spatial.Point
	Radius   int    // meters
	Type     string // category
	Language string // optional, results language
}

// Result is a single place returned by a search.
type Result struct {
	ID       string        `json:"id"`
	PlaceID  string        `json:"place_id,omitempty"`
	Name     string        `json:"name"`
	Vicinity string        `json:"vicinity,omitempty"`
	Location spatial.Point `json:"location"`
	Types    []string      `json:"types,omitempty"`
}

// Response is the first page of a search.
type Response struct {
	Status        Status
	ErrorMessage  string
	Results       []Result
	NextPageToken string
}

// Service is a places provider.
type Service interface {
	NearbySearch(ctx context.Context, req Request) (*Response, error)
}

// Factory builds a service handle. Lookup asks for a fresh handle per call.
type Factory func() Service

// StatusError is returned when the service answers with anything but OK.
type StatusError struct {
	Category string
	Status   Status
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("places service status (%s): %s: %s", e.Category, e.Status, e.Message)
	}

	return fmt.Sprintf("places service status (%s): %s", e.Category, e.Status)
}

// Lookup searches one category around a position.
type Lookup struct {
	Factory  Factory
	Language string
}

// NewLookup creates a lookup over the services built by factory.
func NewLookup(factory Factory) *Lookup {
	return &Lookup{Factory: factory}
}

// Search returns the places of the given category within DefaultRadius of pos.
// Only the first page is consumed. On a non-OK status the error is a
// *StatusError and no results are returned, callers are expected to keep
// whatever they had before.
func (l *Lookup) Search(ctx context.Context, pos spatial.Point, category string) ([]Result, error) {
	svc := l.Factory()

	resp, err := svc.NearbySearch(ctx, Request{
		Location: pos,
		Radius:   DefaultRadius,
		Type:     category,
		Language: l.Language,
	})
	if err != nil {
		log.Printf("Places service error (%s): %v", category, err)

		return nil, fmt.Errorf("searching %s: %w", category, err)
	}

	if resp.Status != StatusOK {
		log.Printf("Places service status (%s): %s", category, resp.Status)

		return nil, &StatusError{Category: category, Status: resp.Status, Message: resp.ErrorMessage}
	}

	results := make([]Result, 0, len(resp.Results))

	for _, r := range resp.Results {
		if r.ID == "" {
			if r.PlaceID != "" {
				r.ID = r.PlaceID
			} else {
				r.ID = spatial.StableID(r.Name, r.Location)
			}
		}

		results = append(results, r)
	}

	return results, nil
}
