// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package translate substitutes free text with its translation.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jcodagnone/nearby/utils/httputils"
	"google.golang.org/api/option"
	translatev2 "google.golang.org/api/translate/v2"
)

// ErrEmptyTranslation is returned when the endpoint answers without translations.
var ErrEmptyTranslation = errors.New("translate: response has no translations")

// Translator translates text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

// GoogleTranslator uses the Cloud Translation v2 endpoint.
type GoogleTranslator struct {
	svc *translatev2.Service
}

// NewGoogleTranslator creates a translator authenticated by a static API key
// sent in the query string. endpoint overrides the service base path (tests,
// proxies); transport defaults to http.DefaultTransport.
func NewGoogleTranslator(ctx context.Context, apiKey, endpoint string, transport http.RoundTripper) (*GoogleTranslator, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &httputils.AppendQueryParamsRoundTripper{
			Transport: transport,
			Params:    map[string]string{"key": apiKey},
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := translatev2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating translation service: %w", err)
	}

	return &GoogleTranslator{svc: svc}, nil
}

// Translate sends a single string and returns its first translation.
func (g *GoogleTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	resp, err := g.svc.Translations.Translate(&translatev2.TranslateTextRequest{
		Q:      []string{text},
		Target: target,
		Format: "text",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}

	if len(resp.Translations) == 0 || resp.Translations[0] == nil {
		return "", ErrEmptyTranslation
	}

	return resp.Translations[0].TranslatedText, nil
}
