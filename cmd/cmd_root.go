// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/jcodagnone/nearby/dataset"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

// Options are the settings shared by every command. Flags win over the
// environment, which may be seeded from a .env file.
type Options struct {
	EnvFile             string
	MapsAPIKey          string
	TranslateAPIKey     string
	Provider            string
	OverpassURL         string
	Language            string
	DatasetPath         string
	DbPath              string
	Threshold           float64
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

var rootOptions = &Options{}

var rootCmd = &cobra.Command{
	Use:   "nearby",
	Short: "convenience stores, toilets and landmarks around you",
	Long: `
nearby follows the position of a user and shows the convenience stores,
restrooms and landmarks around it, plus the public toilets of the bundled
open data set, optionally translating place names.
`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return rootOptions.load(cmd)
	},
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func (o *Options) load(cmd *cobra.Command) error {
	if err := godotenv.Load(o.EnvFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", o.EnvFile, err)
		}
	}

	for flag, key := range envFlags {
		if err := envFallback(cmd, flag, key); err != nil {
			return err
		}
	}

	switch o.Provider {
	case providerGoogle, providerOverpass:
	default:
		return fmt.Errorf("unknown places provider %q (want %s or %s)", o.Provider, providerGoogle, providerOverpass)
	}

	if o.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive (got %f)", o.Threshold)
	}

	return nil
}

// envFlags maps flags to the environment variables used when they are unset.
var envFlags = map[string]string{
	"maps-api-key":      "GOOGLE_MAPS_API_KEY",
	"translate-api-key": "GOOGLE_TRANSLATE_API_KEY",
	"provider":          "NEARBY_PROVIDER",
	"dataset":           "NEARBY_DATASET",
	"threshold":         "NEARBY_THRESHOLD",
}

func envFallback(cmd *cobra.Command, flag, key string) error {
	f := cmd.Flags().Lookup(flag)
	if f == nil || f.Changed {
		return nil
	}

	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	if err := f.Value.Set(v); err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}

	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootOptions.EnvFile, "env-file", ".env", "File with environment variables to load, if present")
	flags.StringVar(&rootOptions.MapsAPIKey, "maps-api-key", "", "Google Maps API key (env GOOGLE_MAPS_API_KEY)")
	flags.StringVar(&rootOptions.TranslateAPIKey, "translate-api-key", "", "Cloud Translation API key (env GOOGLE_TRANSLATE_API_KEY)")
	flags.StringVar(&rootOptions.Provider, "provider", providerGoogle, "Places provider: google or overpass (env NEARBY_PROVIDER)")
	flags.StringVar(&rootOptions.OverpassURL, "overpass-url", "", "Overpass API interpreter URL")
	flags.StringVar(&rootOptions.Language, "language", "", "Language of the place results, when the provider supports it")
	flags.StringVar(&rootOptions.DatasetPath, "dataset", "data/toilets_cleaned.json", "Public data set, JSON or XLSX (env NEARBY_DATASET)")
	flags.StringVar(&rootOptions.DbPath, "db-path", "db", "Directory holding the DuckDB data set store")
	flags.Float64Var(&rootOptions.Threshold, "threshold", dataset.DefaultThreshold, "Distance in meters used to filter the data set (env NEARBY_THRESHOLD)")
	flags.BoolVar(&rootOptions.EnableHTTPTrace, "trace-http", false, "Display HTTP requests-responses")
	flags.BoolVar(&rootOptions.EnableHTTPBodyTrace, "trace-http-body", false, "Display HTTP requests-responses bodies")
}
