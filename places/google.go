// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jcodagnone/nearby/spatial"
)

// DefaultGoogleURL is the Places Nearby Search endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// GoogleClient uses the Google Places Nearby Search API.
type GoogleClient struct {
	BaseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGoogleClient creates a new Google Places client. A nil transport uses
// http.DefaultTransport.
func NewGoogleClient(apiKey string, transport http.RoundTripper) *GoogleClient {
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &GoogleClient{
		BaseURL: DefaultGoogleURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}
}

type googlePlacesResponse struct {
	Results []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status        string `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage  string `json:"error_message"`
	NextPageToken string `json:"next_page_token"`
}

// NearbySearch runs a single nearby search and returns its first page.
func (g *GoogleClient) NearbySearch(ctx context.Context, req Request) (*Response, error) {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.6f,%.6f", req.Location.Lat, req.Location.Lng))
	params.Set("radius", strconv.Itoa(req.Radius))
	params.Set("type", req.Type)
	params.Set("key", g.apiKey)

	if req.Language != "" {
		params.Set("language", req.Language)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building places request: %w", err)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var gpResp googlePlacesResponse
	if err := json.NewDecoder(resp.Body).Decode(&gpResp); err != nil {
		return nil, &LookupError{Type: ErrorTypeMalformedResponse, Message: "decoding places response", Err: err}
	}

	out := &Response{
		Status:        Status(gpResp.Status),
		ErrorMessage:  gpResp.ErrorMessage,
		NextPageToken: gpResp.NextPageToken,
		Results:       make([]Result, 0, len(gpResp.Results)),
	}

	for _, r := range gpResp.Results {
		out.Results = append(out.Results, Result{
			ID:       r.PlaceID,
			PlaceID:  r.PlaceID,
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Types:    r.Types,
			Location: spatial.Point{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
		})
	}

	return out, nil
}
