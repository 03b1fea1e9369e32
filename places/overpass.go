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
	"strings"
	"time"

	"github.com/jcodagnone/nearby/spatial"
)

// DefaultOverpassURL is the public Overpass API interpreter.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// osmTags maps place categories to OpenStreetMap tag filters.
var osmTags = map[string]string{
	CategoryConvenienceStore: `["shop"="convenience"]`,
	CategoryToilet:           `["amenity"="toilets"]`,
	CategoryLandmark:         `["tourism"="attraction"]`,
	"pharmacy":               `["amenity"="pharmacy"]`,
	"cafe":                   `["amenity"="cafe"]`,
	"atm":                    `["amenity"="atm"]`,
}

// OverpassClient answers nearby searches from OpenStreetMap data.
type OverpassClient struct {
	BaseURL    string
	httpClient *http.Client
}

// NewOverpassClient creates a new Overpass client. A nil transport uses
// http.DefaultTransport.
func NewOverpassClient(baseURL string, transport http.RoundTripper) *OverpassClient {
	if baseURL == "" {
		baseURL = DefaultOverpassURL
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	return &OverpassClient{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   25 * time.Second,
			Transport: transport,
		},
	}
}

type overpassElement struct {
	Type   string  `json:"type"`
	ID     int64   `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
	Remark   string            `json:"remark"`
}

func overpassQuery(req Request, filter string) string {
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", req.Radius, req.Location.Lat, req.Location.Lng)

	return fmt.Sprintf(`[out:json][timeout:25];
(
  node%[1]s%[2]s;
  way%[1]s%[2]s;
);
out center;`, around, filter)
}

// NearbySearch runs a single Overpass query for the requested category.
func (c *OverpassClient) NearbySearch(ctx context.Context, req Request) (*Response, error) {
	filter, ok := osmTags[req.Type]
	if !ok {
		return &Response{
			Status:       StatusInvalidRequest,
			ErrorMessage: fmt.Sprintf("no OpenStreetMap mapping for category %q", req.Type),
		}, nil
	}

	endpoint, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse overpass url: %w", err)
	}

	params := url.Values{}
	params.Set("data", overpassQuery(req, filter))
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building overpass request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var decoded overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &LookupError{Type: ErrorTypeMalformedResponse, Message: "decoding overpass response", Err: err}
	}

	out := &Response{Status: StatusOK, Results: make([]Result, 0, len(decoded.Elements))}

	for _, el := range decoded.Elements {
		point := spatial.Point{Lat: el.Lat, Lng: el.Lon}
		if el.Center != nil {
			point = spatial.Point{Lat: el.Center.Lat, Lng: el.Center.Lon}
		}

		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["brand"]
		}

		out.Results = append(out.Results, Result{
			ID:       fmt.Sprintf("osm:%s/%d", el.Type, el.ID),
			Name:     name,
			Vicinity: vicinity(el.Tags),
			Location: point,
			Types:    []string{req.Type},
		})
	}

	if len(out.Results) == 0 {
		out.Status = StatusZeroResults
	}

	return out, nil
}

func vicinity(tags map[string]string) string {
	if full := tags["addr:full"]; full != "" {
		return full
	}

	parts := make([]string, 0, 3)

	for _, key := range []string{"addr:street", "addr:housenumber", "addr:city"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}
