// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/spatial"
)

// Place is a settlement with its location.
type Place struct {
	Ekatte       string        `json:"ekatte"`
	Name         string        `json:"name"`
	Province     string        `json:"oblast"`
	Municipality string        `json:"obshtina"`
	Point        spatial.Point `json:"loc"`
}

// LoadPlaces reads the places metadata, a JSON array of Place.
func LoadPlaces(r io.Reader) ([]Place, error) {
	var places []Place
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}

	for i := range places {
		places[i].Ekatte = elections.NormalizeEkatte(places[i].Ekatte)
	}

	return places, nil
}

// PlacesFromFeatures derives places from settlement features, located at
// the center of their bounding box.
func PlacesFromFeatures(fc *geojson.FeatureCollection) []Place {
	if fc == nil {
		return nil
	}

	places := make([]Place, 0, len(fc.Features))

	for _, f := range fc.Features {
		e, err := Classify(f)
		if err != nil || e.Key.Level != elections.Settlement || f.Geometry == nil {
			continue
		}

		b := f.Geometry.Bounds()
		if b.IsEmpty() {
			continue
		}

		places = append(places, Place{
			Ekatte:       e.ID,
			Name:         e.Name,
			Province:     e.Province,
			Municipality: e.Municipality,
			Point: spatial.Point{
				Lat: (b.Min(1) + b.Max(1)) / 2,
				Lng: (b.Min(0) + b.Max(0)) / 2,
			},
		})
	}

	return places
}

// PlaceIndex looks places up by EKATTE code and by proximity.
type PlaceIndex struct {
	res      int
	places   []Place
	byEkatte map[string]int
	cells    map[h3.Cell][]int
}

// NewPlaceIndex indexes places at the given H3 resolution. Places with
// invalid coordinates can be found by code but not by proximity.
func NewPlaceIndex(places []Place, res int) (*PlaceIndex, error) {
	ix := &PlaceIndex{
		res:      res,
		places:   slices.Clone(places),
		byEkatte: make(map[string]int, len(places)),
		cells:    make(map[h3.Cell][]int),
	}

	for i, p := range ix.places {
		ix.byEkatte[p.Ekatte] = i

		if !p.Point.Valid() {
			continue
		}

		cell, err := p.Point.Cell(res)
		if err != nil {
			return nil, fmt.Errorf("indexing place %s: %w", p.Ekatte, err)
		}

		ix.cells[cell] = append(ix.cells[cell], i)
	}

	return ix, nil
}

// Len returns the number of places.
func (ix *PlaceIndex) Len() int {
	return len(ix.places)
}

// All returns the places in load order.
func (ix *PlaceIndex) All() []Place {
	return slices.Clone(ix.places)
}

// Get returns the place with the given EKATTE code, padded or not.
func (ix *PlaceIndex) Get(ekatte string) (Place, bool) {
	i, ok := ix.byEkatte[elections.NormalizeEkatte(ekatte)]
	if !ok {
		return Place{}, false
	}

	return ix.places[i], true
}

// ParentMunicipality names the municipality of a settlement record. It is
// the grouping function for settlement to municipality rollups.
func (ix *PlaceIndex) ParentMunicipality(r *elections.Record) (string, bool) {
	p, ok := ix.Get(r.ID)
	if !ok || p.Municipality == "" {
		return "", false
	}

	return p.Municipality, true
}

// NearbyPlace is a place and its distance in meters to a point.
type NearbyPlace struct {
	Place
	Distance float64 `json:"distance"`
}

// Nearby returns the places within rings H3 cells of p, nearest first.
func (ix *PlaceIndex) Nearby(p spatial.Point, rings int) ([]NearbyPlace, error) {
	origin, err := p.Cell(ix.res)
	if err != nil {
		return nil, err
	}

	disk, err := h3.GridDisk(origin, rings)
	if err != nil {
		return nil, fmt.Errorf("expanding h3 cell %s: %w", origin, err)
	}

	var out []NearbyPlace

	for _, cell := range disk {
		for _, i := range ix.cells[cell] {
			place := ix.places[i]
			out = append(out, NearbyPlace{Place: place, Distance: p.HaversineDistance(place.Point)})
		}
	}

	slices.SortFunc(out, func(a, b NearbyPlace) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.Ekatte, b.Ekatte))
	})

	return out, nil
}
