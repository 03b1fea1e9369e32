// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution stored with every entry (~5 km² cells).
const CellResolution = 7

// CellCount is the number of entries inside one H3 cell.
type CellCount struct {
	Cell  string  `json:"cell"`
	Count int     `json:"count"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Store keeps an imported dataset in DuckDB.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema creates the dataset_entries table.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_entries (
			seq       INTEGER NOT NULL,
			id        VARCHAR PRIMARY KEY,
			name      VARCHAR,
			address   VARCHAR,
			fields    VARCHAR,
			latitude  DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			h3_cell   BIGINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating dataset_entries: %w", err)
	}

	return nil
}

func cellOf(e Entry, res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(e.Latitude, e.Longitude), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// Replace swaps the stored dataset for entries. progress, when not nil, is
// called after every inserted entry. Duplicate ids fail the whole import.
func (s *Store) Replace(entries []Entry, progress func()) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM dataset_entries`); err != nil {
		return fmt.Errorf("clearing dataset_entries: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO dataset_entries (seq, id, name, address, fields, latitude, longitude, h3_cell)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		cell, err := cellOf(e, CellResolution)
		if err != nil {
			return err
		}

		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("marshaling fields of %s: %w", e.ID, err)
		}

		if _, err := stmt.Exec(i, e.ID, e.Name, e.Address, string(fields), e.Latitude, e.Longitude, int64(cell)); err != nil {
			return fmt.Errorf("inserting %s: %w", e.ID, err)
		}

		if progress != nil {
			progress()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing dataset: %w", err)
	}

	return nil
}

// Load reads the stored dataset back in its original order.
func (s *Store) Load() (*Dataset, error) {
	rows, err := s.db.Query(`
		SELECT id, name, address, fields, latitude, longitude
		FROM dataset_entries
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying dataset_entries: %w", err)
	}
	defer rows.Close()

	ds := &Dataset{Source: "duckdb:dataset_entries"}

	for rows.Next() {
		var (
			e      Entry
			fields sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.Name, &e.Address, &fields, &e.Latitude, &e.Longitude); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		if fields.Valid && fields.String != "" && fields.String != "null" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("decoding fields of %s: %w", e.ID, err)
			}
		}

		ds.Entries = append(ds.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dataset_entries: %w", err)
	}

	return ds, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dataset_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting dataset_entries: %w", err)
	}

	return n, nil
}

// CountByCell groups the stored entries by H3 cell, densest first.
func (s *Store) CountByCell(limit int) ([]CellCount, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT h3_cell, COUNT(*) AS n
		FROM dataset_entries
		GROUP BY h3_cell
		ORDER BY n DESC, h3_cell
		LIMIT %d
	`, limit))
	if err != nil {
		return nil, fmt.Errorf("grouping by cell: %w", err)
	}
	defer rows.Close()

	var counts []CellCount

	for rows.Next() {
		var (
			raw int64
			cc  CellCount
		)

		if err := rows.Scan(&raw, &cc.Count); err != nil {
			return nil, fmt.Errorf("scanning cell count: %w", err)
		}

		cell := h3.Cell(raw)
		cc.Cell = cell.String()

		center, err := cell.LatLng()
		if err != nil {
			return nil, fmt.Errorf("cell %s center: %w", cc.Cell, err)
		}

		cc.Lat, cc.Lng = center.Lat, center.Lng
		counts = append(counts, cc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cell counts: %w", err)
	}

	return counts, nil
}
