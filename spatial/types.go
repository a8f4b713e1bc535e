// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds settlement coordinates and the H3 cells used to
// look up nearby places.
package spatial

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// DefaultResolution is the H3 resolution places are indexed at. Cells are
// about 5km across, which is the size of a village and its fields.
const DefaultResolution = 6

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParsePoint reads "lat,lng".
func ParsePoint(s string) (Point, error) {
	latText, lngText, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("spatial: expected lat,lng, got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return Point{}, fmt.Errorf("spatial: invalid latitude %q: %w", latText, err)
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(lngText), 64)
	if err != nil {
		return Point{}, fmt.Errorf("spatial: invalid longitude %q: %w", lngText, err)
	}

	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("spatial: point out of range: %s", p)
	}

	return p, nil
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the coordinates are on Earth.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// Cell returns the H3 cell containing the point.
func (p Point) Cell(res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p Point) HaversineDistance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
