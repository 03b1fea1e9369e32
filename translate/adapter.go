// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package translate

import (
	"context"
	"log"
	"strings"

	"github.com/jcodagnone/nearby/places"
	"golang.org/x/text/language"
)

// Adapter never fails: when a translation cannot be obtained the original
// text is returned unchanged and the failure is logged.
type Adapter struct {
	translator Translator
}

// NewAdapter wraps translator. A nil translator makes the adapter an identity.
func NewAdapter(translator Translator) *Adapter {
	return &Adapter{translator: translator}
}

// Enabled reports whether a translator is configured.
func (a *Adapter) Enabled() bool {
	return a != nil && a.translator != nil
}

// Translate returns text translated into target, or text itself on any failure.
func (a *Adapter) Translate(ctx context.Context, text, target string) string {
	if !a.Enabled() || strings.TrimSpace(text) == "" {
		return text
	}

	tag, err := language.Parse(target)
	if err != nil {
		log.Printf("Translation skipped, invalid target language %q: %v", target, err)

		return text
	}

	translated, err := a.translator.Translate(ctx, text, tag.String())
	if err != nil {
		log.Printf("Translation failed (%s): %v", tag, err)

		return text
	}

	if translated == "" {
		log.Printf("Translation failed (%s): empty result", tag)

		return text
	}

	return translated
}

// Results translates the name and vicinity of every result, one call per
// field. Strings repeated within the same pass are only sent once. The input
// slice is not modified.
func (a *Adapter) Results(ctx context.Context, results []places.Result, target string) []places.Result {
	out := make([]places.Result, len(results))
	copy(out, results)

	if !a.Enabled() {
		return out
	}

	memo := make(map[string]string)
	translate := func(s string) string {
		if t, ok := memo[s]; ok {
			return t
		}

		t := a.Translate(ctx, s, target)
		memo[s] = t

		return t
	}

	for i := range out {
		out[i].Name = translate(out[i].Name)
		out[i].Vicinity = translate(out[i].Vicinity)
	}

	return out
}
