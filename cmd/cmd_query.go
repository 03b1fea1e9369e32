// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jcodagnone/nearby/geolocation"
	"github.com/jcodagnone/nearby/mapview"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/translate"
	"github.com/spf13/cobra"
)

type queryOptions struct {
	Lat        float64
	Lng        float64
	Categories []string
	Translate  string
	Timeout    time.Duration
	JSON       bool
}

var queryOpts = &queryOptions{}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show what is around a fixed position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pos := spatial.Point{Lat: queryOpts.Lat, Lng: queryOpts.Lng}
		if err := pos.Validate(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), queryOpts.Timeout)
		defer cancel()

		lookup, err := rootOptions.lookup(ctx)
		if err != nil {
			return err
		}

		var adapter *translate.Adapter
		if queryOpts.Translate != "" {
			adapter = rootOptions.translator(ctx)
		}

		holder, loaded := rootOptions.datasetHolder()
		<-loaded

		session := mapview.NewSession("cli", mapview.Variant{
			Categories: queryOpts.Categories,
			Translate:  queryOpts.Translate != "",
			Target:     queryOpts.Translate,
		}, mapview.Config{
			Lookup:     lookup,
			Translator: adapter,
			Dataset:    holder,
			Threshold:  rootOptions.Threshold,
		})
		defer session.Close()

		if err := session.Start(ctx, geolocation.StaticSource{Point: pos}, geolocation.DefaultOptions()); err != nil {
			return err
		}

		select {
		case <-session.Located():
		case <-ctx.Done():
			return fmt.Errorf("waiting for position: %w", ctx.Err())
		}

		session.Wait()

		state := session.State()
		if queryOpts.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(state)
		}

		printMarkers(os.Stdout, pos, state)

		return nil
	},
}

func printMarkers(w io.Writer, pos spatial.Point, state mapview.State) {
	t := newTable(w, 18, 36, 8, 7)
	t.header("Set", "Name", "Dist (m)", "Color")

	for _, m := range state.Markers {
		if m.ID == mapview.CurrentMarkerID {
			continue
		}

		t.row(m.Set, m.Title, fmt.Sprintf("%.0f", pos.HaversineDistance(m.Position)), string(m.Color))
	}

	t.footer()
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Float64Var(&queryOpts.Lat, "lat", 0, "Latitude of the position")
	queryCmd.Flags().Float64Var(&queryOpts.Lng, "lng", 0, "Longitude of the position")
	queryCmd.Flags().StringSliceVar(
		&queryOpts.Categories,
		"category",
		[]string{places.CategoryConvenienceStore, places.CategoryToilet},
		"Categories to search, repeat or separate with commas",
	)
	queryCmd.Flags().StringVar(&queryOpts.Translate, "translate", "", "Translate place names into this language (e.g. ko, en)")
	queryCmd.Flags().DurationVar(&queryOpts.Timeout, "timeout", 30*time.Second, "Give up after this long")
	queryCmd.Flags().BoolVar(&queryOpts.JSON, "json", false, "Print the map state as JSON")
	_ = queryCmd.MarkFlagRequired("lat")
	_ = queryCmd.MarkFlagRequired("lng")
}
