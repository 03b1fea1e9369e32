// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/server"
	"github.com/jcodagnone/nearby/translate"
	"github.com/jcodagnone/nearby/utils/httputils"
)

const (
	providerGoogle   = "google"
	providerOverpass = "overpass"

	mapsKeyDisplayName      = "Nearby Places Key"
	translateKeyDisplayName = "Nearby Translation Key"
)

func userAgent() string {
	return fmt.Sprintf("nearby/%s (+https://github.com/jcodagnone/nearby)", Version)
}

func (o *Options) transport() http.RoundTripper {
	var trace io.Writer
	if o.EnableHTTPTrace || o.EnableHTTPBodyTrace {
		trace = os.Stderr
	}

	return httputils.Chain(http.DefaultTransport, userAgent(), trace, o.EnableHTTPBodyTrace)
}

func (o *Options) lookup(ctx context.Context) (*places.Lookup, error) {
	transport := o.transport()

	var factory places.Factory

	switch o.Provider {
	case providerOverpass:
		fmt.Println("📍 Places: OpenStreetMap Overpass")

		factory = func() places.Service { return places.NewOverpassClient(o.OverpassURL, transport) }
	default:
		key := server.ResolveAPIKey(ctx, o.MapsAPIKey, "GOOGLE_MAPS_API_KEY", mapsKeyDisplayName)
		if key == "" {
			return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is not set and ADC failed, use --provider %s or set a key", providerOverpass)
		}

		fmt.Println("📍 Places: Google Maps")

		factory = func() places.Service { return places.NewGoogleClient(key, transport) }
	}

	l := places.NewLookup(factory)
	l.Language = o.Language

	return l, nil
}

// translator never fails: without a key translations are disabled.
func (o *Options) translator(ctx context.Context) *translate.Adapter {
	key := o.TranslateAPIKey
	if key == "" {
		key = o.MapsAPIKey
	}

	key = server.ResolveAPIKey(ctx, key, "GOOGLE_TRANSLATE_API_KEY", translateKeyDisplayName)
	if key == "" {
		log.Print("⚠️ No translation key, place names are shown as returned")

		return translate.NewAdapter(nil)
	}

	t, err := translate.NewGoogleTranslator(ctx, key, "", o.transport())
	if err != nil {
		log.Printf("Error creating translator: %v", err)

		return translate.NewAdapter(nil)
	}

	return translate.NewAdapter(t)
}

// datasetHolder starts loading the data set in the background.
func (o *Options) datasetHolder() (*dataset.Holder, <-chan struct{}) {
	h := dataset.NewHolder()
	if o.DatasetPath == "" {
		done := make(chan struct{})
		close(done)

		return h, done
	}

	path := o.DatasetPath

	return h, h.LoadAsync(func() (*dataset.Dataset, error) { return dataset.Load(path) })
}
