// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX imports a spreadsheet whose first row holds the column headers.
// An empty sheet name reads the first sheet.
func LoadXLSX(path string, sheet string, cols Columns) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	if len(rows) == 0 {
		return nil, errors.New("spreadsheet has no header row")
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	ds := &Dataset{Source: path, Entries: make([]Entry, 0, len(rows)-1)}
	ids := uniqueIDs{}

	for i, row := range rows[1:] {
		rec := make(map[string]any, len(header))

		for j, h := range header {
			if h == "" {
				continue
			}

			if j < len(row) {
				rec[h] = row[j]
			} else {
				rec[h] = ""
			}
		}

		e, err := newEntry(rec, cols)
		if err != nil {
			ds.Skipped++

			if ds.Skipped <= 5 {
				log.Printf("⚠️  spreadsheet row %d skipped: %v", i+2, err)
			}

			continue
		}

		e.ID = ids.assign(e.ID)
		ds.Entries = append(ds.Entries, e)
	}

	return ds, nil
}
