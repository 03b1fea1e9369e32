// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/mapview"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var here = spatial.Point{Lat: 37.5665, Lng: 126.9780}

type fakeService struct{}

func (fakeService) NearbySearch(_ context.Context, req places.Request) (*places.Response, error) {
	switch req.Type {
	case places.CategoryToilet:
		return &places.Response{Status: places.StatusOK, Results: []places.Result{
			{PlaceID: "wc-1", Name: "약국", Location: req.Location.Offset(50, 0)},
		}}, nil
	case places.CategoryConvenienceStore:
		return &places.Response{Status: places.StatusOK, Results: []places.Result{
			{PlaceID: "cs-1", Name: "GS25", Location: req.Location.Offset(0, 50)},
		}}, nil
	case places.CategoryLandmark:
		return &places.Response{Status: places.StatusOK, Results: []places.Result{
			{ID: "osm:node/42", Name: "Deoksugung", Location: req.Location.Offset(-50, 0)},
		}}, nil
	default:
		return &places.Response{Status: places.StatusZeroResults}, nil
	}
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string) (string, error) {
	return "", errors.New("translation API returned 500")
}

func setupServerTest(t *testing.T, holder *dataset.Holder) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	server := NewServer(Config{
		Lookup:     places.NewLookup(func() places.Service { return fakeService{} }),
		Translator: translate.NewAdapter(failingTranslator{}),
		Dataset:    holder,
		Threshold:  5000,
	})
	t.Cleanup(server.Close)

	return server.Router(), server
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))

	return v
}

func TestSessionLifecycleAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[struct {
		ID      string          `json:"id"`
		Variant mapview.Variant `json:"variant"`
	}](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, mapview.DefaultVariant(), created.Variant)

	base := "/api/sessions/" + created.ID

	w = do(t, router, http.MethodPost, base+"/position", gin.H{"lat": here.Lat, "lng": here.Lng, "accuracy": 12})
	require.Equal(t, http.StatusAccepted, w.Code)

	var st mapview.State

	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, base+"/state", nil)
		if w.Code != http.StatusOK {
			return false
		}

		st = decode[mapview.State](t, w)

		return len(st.Markers) == 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, here, st.Center)

	w = do(t, router, http.MethodPut, base+"/selection/toilet:wc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	st = decode[mapview.State](t, w)
	require.NotNil(t, st.Popup)
	assert.Equal(t, "약국", st.Popup.Name)

	w = do(t, router, http.MethodPut, base+"/selection/toilet:nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodDelete, base+"/selection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[mapview.State](t, w).Popup)

	w = do(t, router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, base+"/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionVariantAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/sessions", gin.H{
		"categories": []string{places.CategoryLandmark},
		"translate":  true,
		"target":     "ko",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	created := decode[struct {
		Variant mapview.Variant `json:"variant"`
	}](t, w)
	assert.Equal(t, mapview.Variant{Categories: []string{places.CategoryLandmark}, Translate: true, Target: "ko"}, created.Variant)

	w = do(t, router, http.MethodPost, "/api/sessions", gin.H{"categories": []string{" "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectMarkerWithSlashAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/sessions", gin.H{"categories": []string{places.CategoryLandmark}})
	id := decode[struct {
		ID string `json:"id"`
	}](t, w).ID

	w = do(t, router, http.MethodPost, "/api/sessions/"+id+"/position", gin.H{"lat": here.Lat, "lng": here.Lng})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, "/api/sessions/"+id+"/state", nil)

		return len(decode[mapview.State](t, w).Markers) == 2
	}, 2*time.Second, 10*time.Millisecond)

	w = do(t, router, http.MethodPut, "/api/sessions/"+id+"/selection/tourist_attraction:osm:node/42", nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := decode[mapview.State](t, w)
	require.NotNil(t, st.Popup)
	assert.Equal(t, "Deoksugung", st.Popup.Name)
}

func TestPushPositionValidationAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/sessions", nil)
	id := decode[struct {
		ID string `json:"id"`
	}](t, w).ID

	tests := []struct {
		name string
		body any
	}{
		{"missing lng", gin.H{"lat": 1.0}},
		{"out of range", gin.H{"lat": 91.0, "lng": 0.0}},
		{"not json", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/sessions/"+id+"/position", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w = do(t, router, http.MethodPost, "/api/sessions/unknown/position", gin.H{"lat": 1.0, "lng": 1.0})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPushPositionErrorAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/sessions", nil)
	id := decode[struct {
		ID string `json:"id"`
	}](t, w).ID

	w = do(t, router, http.MethodPost, "/api/sessions/"+id+"/position/error", gin.H{"code": 1, "message": "User denied Geolocation"})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		st := decode[mapview.State](t, do(t, router, http.MethodGet, "/api/sessions/"+id+"/state", nil))

		return strings.Contains(st.LocationError, "permission denied")
	}, 2*time.Second, 10*time.Millisecond)

	st := decode[mapview.State](t, do(t, router, http.MethodGet, "/api/sessions/"+id+"/state", nil))
	assert.Equal(t, mapview.DefaultCenter, st.Center)
	assert.Empty(t, st.Markers)
}

func TestSearchPlacesAPI(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/places?lat=37.5665&lng=126.978&type=convenience_store", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Status  places.Status   `json:"status"`
		Results []places.Result `json:"results"`
	}](t, w)
	assert.Equal(t, places.StatusOK, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "cs-1", resp.Results[0].ID)

	w = do(t, router, http.MethodGet, "/api/places?lat=37.5665&lng=126.978&type=cafe", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp = decode[struct {
		Status  places.Status   `json:"status"`
		Results []places.Result `json:"results"`
	}](t, w)
	assert.Equal(t, places.StatusZeroResults, resp.Status)
	assert.Empty(t, resp.Results)

	w = do(t, router, http.MethodGet, "/api/places?lat=abc&lng=126.978&type=cafe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/places?lat=37.5665&lng=126.978", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyDatasetAPI(t *testing.T) {
	holder := dataset.NewHolder()
	router, _ := setupServerTest(t, holder)

	w := do(t, router, http.MethodGet, "/api/dataset/nearby?lat=37.5665&lng=126.978", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	far := here.Offset(6000, 0)
	holder.Set(&dataset.Dataset{Entries: []dataset.Entry{
		{ID: "a", Name: "Here", Latitude: here.Lat, Longitude: here.Lng},
		{ID: "b", Name: "Far", Latitude: far.Lat, Longitude: far.Lng},
	}})

	w = do(t, router, http.MethodGet, "/api/dataset/nearby?lat=37.5665&lng=126.978", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Threshold float64         `json:"threshold"`
		Count     int             `json:"count"`
		Entries   []dataset.Entry `json:"entries"`
	}](t, w)
	assert.InDelta(t, 5000.0, resp.Threshold, 0)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "a", resp.Entries[0].ID)

	w = do(t, router, http.MethodGet, "/api/dataset/nearby?lat=37.5665&lng=126.978&threshold=7000", nil)
	assert.Equal(t, 2, decode[struct {
		Count int `json:"count"`
	}](t, w).Count)

	w = do(t, router, http.MethodGet, "/api/dataset/nearby?lat=37.5665&lng=126.978&threshold=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslateAPIFallsBackToInput(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/translate", gin.H{"text": "약국", "target": "en"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "약국", decode[map[string]string](t, w)["translatedText"])

	w = do(t, router, http.MethodPost, "/api/translate", gin.H{"text": "약국"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMiscRoutes(t *testing.T) {
	router, _ := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/directions", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(t, router, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])

	w = do(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/sessions")
	assert.NotContains(t, w.Body.String(), "maps.googleapis.com/maps/api/js")
}

func TestIdleSessionsAreClosed(t *testing.T) {
	router, server := setupServerTest(t, nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	server.now = func() time.Time { return now }

	create := func() string {
		w := do(t, router, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)

		return decode[struct {
			ID string `json:"id"`
		}](t, w).ID
	}

	idle, polled := create(), create()

	now = now.Add(DefaultSessionTTL - time.Minute)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/sessions/"+polled+"/state", nil).Code)

	assert.Equal(t, 0, server.reap(), "nothing has expired yet")

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, server.reap())

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/sessions/"+idle+"/state", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/sessions/"+polled+"/state", nil).Code)
}

func TestReapLoopStopsWithContext(t *testing.T) {
	_, server := setupServerTest(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		server.reapLoop(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reap loop did not stop")
	}
}

func TestMapPageWiresMarkerSelection(t *testing.T) {
	gin.SetMode(gin.TestMode)

	server := NewServer(Config{MapsJSKey: "browser-key"})
	t.Cleanup(server.Close)

	w := do(t, server.Router(), http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "maps.googleapis.com/maps/api/js?key=browser-key")
	assert.Contains(t, body, "pin.addListener('click', () => selectMarker(m.id))")
	assert.Contains(t, body, "new google.maps.InfoWindow()")
	assert.Contains(t, body, "info.addListener('closeclick', clearSelection)")
}
