// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect and import the public data set",
}

var datasetFilterOpts = struct {
	Lat float64
	Lng float64
}{}

var datasetFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "List the data set entries within the threshold of a position",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		pos := spatial.Point{Lat: datasetFilterOpts.Lat, Lng: datasetFilterOpts.Lng}
		if err := pos.Validate(); err != nil {
			return err
		}

		ds, err := dataset.Load(rootOptions.DatasetPath)
		if err != nil {
			return err
		}

		entries := dataset.Filter(ds.Entries, pos, rootOptions.Threshold)
		fmt.Printf("%d of %d entries within %.0f m\n", len(entries), ds.Len(), rootOptions.Threshold)

		t := newTable(os.Stdout, 36, 40, 8)
		t.header("Name", "Address", "Dist (m)")

		for _, e := range entries {
			t.row(e.Name, e.Address, fmt.Sprintf("%.0f", pos.HaversineDistance(e.Point())))
		}

		t.footer()

		return nil
	},
}

func storePath() string {
	return filepath.Join(rootOptions.DbPath, "nearby.duckdb")
}

func openStore() (*dataset.Store, *sql.DB, error) {
	if err := os.MkdirAll(rootOptions.DbPath, 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", storePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	store := dataset.NewStore(db)
	if err := store.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, err
	}

	return store, db, nil
}

var datasetImportCmd = &cobra.Command{
	Use:   "import <file.json|file.xlsx>",
	Short: "Import a data set file into the DuckDB store",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}

		store, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(ds.Len(),
				progressbar.OptionSetDescription("Importing "+filepath.Base(args[0])),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		err = store.Replace(ds.Entries, func() {
			if bar != nil {
				_ = bar.Add(1)
			}
		})
		if err != nil {
			return err
		}

		log.Printf("✅ Imported %d entries into %s (%d skipped)", ds.Len(), storePath(), ds.Skipped)

		return nil
	},
}

var datasetStatsLimit int

var datasetStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the densest H3 cells of the DuckDB store",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := store.Count()
		if err != nil {
			return err
		}

		cells, err := store.CountByCell(datasetStatsLimit)
		if err != nil {
			return err
		}

		fmt.Printf("%d entries, H3 resolution %d\n", n, dataset.CellResolution)

		t := newTable(os.Stdout, 15, 7, 22)
		t.header("Cell", "Entries", "Center")

		for _, c := range cells {
			t.row(c.Cell, fmt.Sprintf("%d", c.Count), fmt.Sprintf("%.5f, %.5f", c.Lat, c.Lng))
		}

		t.footer()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.AddCommand(datasetFilterCmd)
	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetStatsCmd)
	datasetFilterCmd.Flags().Float64Var(&datasetFilterOpts.Lat, "lat", 0, "Latitude of the position")
	datasetFilterCmd.Flags().Float64Var(&datasetFilterOpts.Lng, "lng", 0, "Longitude of the position")
	_ = datasetFilterCmd.MarkFlagRequired("lat")
	_ = datasetFilterCmd.MarkFlagRequired("lng")
	datasetStatsCmd.Flags().IntVar(&datasetStatsLimit, "limit", 20, "Number of cells to show")
}
