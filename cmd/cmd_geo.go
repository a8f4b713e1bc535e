// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jcodagnone/izbori/geo"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Prepare the geography bundle",
}

var buildPlacesOptions struct {
	register   string
	boundaries string
}

var geoBuildPlacesCmd = &cobra.Command{
	Use:   "build-places",
	Short: "Join the settlement register with raw boundaries into places.geojson and places.json",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		boundaries, err := readCollection(buildPlacesOptions.boundaries)
		if err != nil {
			return err
		}

		register, err := os.Open(filepath.Clean(buildPlacesOptions.register))
		if err != nil {
			return fmt.Errorf("opening register: %w", err)
		}
		defer register.Close()

		fc, stats, err := geo.BuildPlaces(register, boundaries)
		if err != nil {
			return err
		}

		log.Printf("Matched %d of %d register rows with a boundary", stats.Matched, stats.Rows)

		if err := writeJSON(filepath.Join(cfg.DataDir, geo.SettlementsFile), fc); err != nil {
			return err
		}

		return writeJSON(filepath.Join(cfg.DataDir, geo.PlacesFile), geo.PlacesFromFeatures(fc))
	},
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening boundaries: %w", err)
	}
	defer f.Close()

	return geo.LoadFeatureCollection(f)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	log.Printf("Wrote %s", path)

	return nil
}

func init() {
	rootCmd.AddCommand(geoCmd)
	geoCmd.AddCommand(geoBuildPlacesCmd)
	geoBuildPlacesCmd.Flags().StringVar(&buildPlacesOptions.register, "register", "", "Settlement register, ';' separated (ekatte, населено место, област, община)")
	geoBuildPlacesCmd.Flags().StringVar(&buildPlacesOptions.boundaries, "boundaries", "", "GeoJSON settlement boundaries with an ncode property")
	_ = geoBuildPlacesCmd.MarkFlagRequired("register")
	_ = geoBuildPlacesCmd.MarkFlagRequired("boundaries")
}
