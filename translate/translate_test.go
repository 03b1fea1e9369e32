// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jcodagnone/nearby/places"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type translateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

// newEndpoint fakes the Cloud Translation v2 endpoint. Texts found in fail
// are answered with HTTP 500.
func newEndpoint(t *testing.T, dictionary map[string]string, fail map[string]bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/language/translate/v2", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Q) != 1 {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		assert.Equal(t, "text", req.Format)

		if fail[req.Q[0]] {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{{"translatedText": dictionary[req.Q[0]]}},
			},
		})
	}))
	t.Cleanup(server.Close)

	return server, &calls
}

func newAdapter(t *testing.T, server *httptest.Server) *Adapter {
	t.Helper()

	translator, err := NewGoogleTranslator(context.Background(), "test-key", server.URL+"/language/translate/", nil)
	require.NoError(t, err)

	return NewAdapter(translator)
}

func TestAdapterTranslate(t *testing.T) {
	server, _ := newEndpoint(t, map[string]string{"편의점": "Convenience store"}, nil)
	adapter := newAdapter(t, server)

	assert.Equal(t, "Convenience store", adapter.Translate(context.Background(), "편의점", "en"))
}

func TestAdapterHTTP500ReturnsInput(t *testing.T) {
	server, calls := newEndpoint(t, nil, map[string]bool{"약국": true})
	adapter := newAdapter(t, server)

	assert.Equal(t, "약국", adapter.Translate(context.Background(), "약국", "en"))
	assert.Positive(t, calls.Load())
}

func TestAdapterIdentityFallbacks(t *testing.T) {
	server, calls := newEndpoint(t, map[string]string{"빈 결과": ""}, nil)
	adapter := newAdapter(t, server)

	assert.Equal(t, "빈 결과", adapter.Translate(context.Background(), "빈 결과", "en"), "empty translation")

	before := calls.Load()
	assert.Equal(t, "화장실", adapter.Translate(context.Background(), "화장실", "not a language!"), "invalid target")
	assert.Equal(t, "   ", adapter.Translate(context.Background(), "   ", "en"), "blank text")
	assert.Equal(t, before, calls.Load(), "no call for invalid target or blank text")

	assert.Equal(t, "화장실", NewAdapter(nil).Translate(context.Background(), "화장실", "en"), "disabled adapter")
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string) (string, error) {
	return "", errors.New("network unreachable")
}

func TestAdapterTranslatorError(t *testing.T) {
	adapter := NewAdapter(failingTranslator{})
	assert.Equal(t, "약국", adapter.Translate(context.Background(), "약국", "en"))
}

func TestAdapterResults(t *testing.T) {
	server, calls := newEndpoint(t, map[string]string{
		"GS25":     "GS25",
		"세종대로 110": "110 Sejong-daero",
	}, map[string]bool{"무교로 19": true})
	adapter := newAdapter(t, server)

	in := []places.Result{
		{ID: "1", Name: "GS25", Vicinity: "세종대로 110"},
		{ID: "2", Name: "GS25", Vicinity: "무교로 19"},
		{ID: "3", Name: "GS25"},
	}

	out := adapter.Results(context.Background(), in, "en")
	require.Len(t, out, 3)

	assert.Equal(t, "110 Sejong-daero", out[0].Vicinity)
	assert.Equal(t, "무교로 19", out[1].Vicinity, "failed field keeps the original")
	assert.Empty(t, out[2].Vicinity)
	assert.Equal(t, "세종대로 110", in[0].Vicinity, "input is not modified")
	assert.Equal(t, int32(3), calls.Load(), "repeated names are translated once per pass")
}
