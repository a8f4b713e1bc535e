// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/spatial"
	"github.com/jcodagnone/izbori/utils/memo"
)

// Files of the geography bundle, relative to the data directory.
const (
	MunicipalitiesFile = "geo/municipalities.json"
	SettlementsFile    = "geo/places.geojson"
	PlacesFile         = "geo/places.json"
)

// Dataset serves the geography bundle. Each file is read once and kept
// until Clear.
type Dataset struct {
	fsys        fs.FS
	resolution  int
	collections *memo.Cache[*geojson.FeatureCollection]
	places      *memo.Cache[*PlaceIndex]
	locators    *memo.Cache[*Locator]
}

// NewDataset reads the geography bundle from fsys.
func NewDataset(fsys fs.FS) *Dataset {
	return &Dataset{
		fsys:        fsys,
		resolution:  spatial.DefaultResolution,
		collections: memo.New[*geojson.FeatureCollection](),
		places:      memo.New[*PlaceIndex](),
		locators:    memo.New[*Locator](),
	}
}

// Clear forgets every loaded file.
func (d *Dataset) Clear() {
	d.collections.Clear()
	d.places.Clear()
	d.locators.Clear()
}

func (d *Dataset) open(name string) (fs.File, error) {
	f, err := d.fsys.Open(path.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", elections.ErrSourceUnavailable, name, err)
	}

	return f, nil
}

func (d *Dataset) collection(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	return d.collections.Do(ctx, name, func(context.Context) (*geojson.FeatureCollection, error) {
		f, err := d.open(name)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		fc, err := LoadFeatureCollection(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		return fc, nil
	})
}

// Municipalities returns the municipality boundaries.
func (d *Dataset) Municipalities(ctx context.Context) (*geojson.FeatureCollection, error) {
	return d.collection(ctx, MunicipalitiesFile)
}

// Settlements returns the settlement boundaries.
func (d *Dataset) Settlements(ctx context.Context) (*geojson.FeatureCollection, error) {
	return d.collection(ctx, SettlementsFile)
}

// Places returns the place index, built from the places metadata or, when
// that file is missing, from the settlement boundaries.
func (d *Dataset) Places(ctx context.Context) (*PlaceIndex, error) {
	return d.places.Do(ctx, PlacesFile, func(ctx context.Context) (*PlaceIndex, error) {
		f, err := d.open(PlacesFile)
		if errors.Is(err, fs.ErrNotExist) {
			fc, err := d.Settlements(ctx)
			if err != nil {
				return nil, err
			}

			return NewPlaceIndex(PlacesFromFeatures(fc), d.resolution)
		}

		if err != nil {
			return nil, err
		}
		defer f.Close()

		places, err := LoadPlaces(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PlacesFile, err)
		}

		return NewPlaceIndex(places, d.resolution)
	})
}

// Locator returns the locator over settlement boundaries.
func (d *Dataset) Locator(ctx context.Context) (*Locator, error) {
	return d.locators.Do(ctx, SettlementsFile, func(ctx context.Context) (*Locator, error) {
		fc, err := d.Settlements(ctx)
		if err != nil {
			return nil, err
		}

		return NewLocator(fc), nil
	})
}

// Map merges the results of an election with the boundaries of its
// granularity. Settlement results are rolled up to the municipalities of
// the places metadata for the municipality map.
func (d *Dataset) Map(ctx context.Context, svc *elections.Service, electionID string, g elections.Granularity) ([]EnrichedFeature, error) {
	switch g {
	case elections.Settlement:
		fc, err := d.Settlements(ctx)
		if err != nil {
			return nil, err
		}

		records, err := svc.LoadResults(ctx, electionID, elections.Settlement, elections.Filter{})
		if err != nil {
			return nil, err
		}

		return Merge(fc.Features, elections.ByID(records)), nil
	case elections.Municipality:
		records, err := d.MunicipalityResults(ctx, svc, electionID)
		if err != nil {
			return nil, err
		}

		fc, err := d.Municipalities(ctx)
		if err != nil {
			return nil, err
		}

		return Merge(fc.Features, elections.ByID(records)), nil
	default:
		return nil, fmt.Errorf("%w: %s", elections.ErrUnknownGranularity, g)
	}
}

// MunicipalityResults rolls the settlement results of an election up to the
// municipalities present in the boundaries.
func (d *Dataset) MunicipalityResults(ctx context.Context, svc *elections.Service, electionID string) ([]*elections.Record, error) {
	places, err := d.Places(ctx)
	if err != nil {
		return nil, err
	}

	fc, err := d.Municipalities(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool)
	for _, e := range Entities(fc) {
		known[e.Name] = true
	}

	return svc.MunicipalityStats(ctx, electionID, places.ParentMunicipality, elections.ParentOptions{
		Aliases: svc.Catalog().Aliases(),
		Known:   func(name string) bool { return known[name] },
	})
}
