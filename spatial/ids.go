// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"crypto/sha1" // #nosec G505 - identifiers, not security
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldName normalizes a name by removing accents, lowercasing, and trimming spaces.
func foldName(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// StableID derives an identifier for an entity from its name and location, so
// the same place keeps its identity across searches and reorderings.
// Coordinates are rounded to 6 decimals (~0.1m).
func StableID(name string, p Point) string {
	sum := sha1.Sum(fmt.Appendf(nil, "%s|%.6f|%.6f", foldName(name), p.Lat, p.Lng)) // #nosec G401

	return hex.EncodeToString(sum[:10])
}
