// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/nearby/dataset"
	"github.com/jcodagnone/nearby/geolocation"
	"github.com/jcodagnone/nearby/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	Addr      string
	MapsJSKey string
	FromStore bool
	TTL       time.Duration
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the map web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := envFallback(cmd, "addr", "NEARBY_ADDR"); err != nil {
			return err
		}

		if err := envFallback(cmd, "maps-js-key", "GOOGLE_MAPS_JS_API_KEY"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lookup, err := rootOptions.lookup(ctx)
		if err != nil {
			return err
		}

		holder, err := serveDataset()
		if err != nil {
			return err
		}

		fmt.Printf("📏 Data set threshold: %.0f m\n", rootOptions.Threshold)

		s := server.NewServer(server.Config{
			Addr:        serveOpts.Addr,
			Lookup:      lookup,
			Translator:  rootOptions.translator(ctx),
			Dataset:     holder,
			Threshold:   rootOptions.Threshold,
			Geolocation: geolocation.DefaultOptions(),
			MapsJSKey:   serveOpts.MapsJSKey,
			SessionTTL:  serveOpts.TTL,
		})

		return s.Run(ctx)
	},
}

// serveDataset loads the data set from the DuckDB store when asked to, and
// from the data set file otherwise.
func serveDataset() (*dataset.Holder, error) {
	if !serveOpts.FromStore {
		h, _ := rootOptions.datasetHolder()

		return h, nil
	}

	db, err := sql.Open("duckdb", storePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	h := dataset.NewHolder()
	h.LoadAsync(func() (*dataset.Dataset, error) {
		defer db.Close()

		return dataset.NewStore(db).Load()
	})

	return h, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "localhost:8080", "Address to listen on (env NEARBY_ADDR)")
	serveCmd.Flags().StringVar(&serveOpts.MapsJSKey, "maps-js-key", "", "Browser restricted Maps JavaScript API key (env GOOGLE_MAPS_JS_API_KEY)")
	serveCmd.Flags().DurationVar(&serveOpts.TTL, "session-ttl", server.DefaultSessionTTL, "Close sessions idle for longer than this")
	serveCmd.Flags().BoolVar(&serveOpts.FromStore, "from-store", false, "Load the data set from the DuckDB store instead of the data set file")
}
