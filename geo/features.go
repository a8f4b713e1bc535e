// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package geo joins election results with the municipality and settlement
// geometries shown on the map.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/jcodagnone/izbori/elections"
)

// Feature property names.
const (
	PropEkatte       = "ekatte"
	PropNUTS4        = "nuts4"
	PropName         = "name"
	PropMunicipality = "obshtina"
	PropProvince     = "oblast"
	PropResultData   = "resultData"
)

// ErrUnclassified is returned for features carrying no EKATTE code, NUTS4
// code or name.
var ErrUnclassified = errors.New("feature has no region identifier")

// LoadFeatureCollection decodes a GeoJSON FeatureCollection.
func LoadFeatureCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding feature collection: %w", err)
	}

	return &fc, nil
}

// Entity is what a feature describes, decided once from its properties.
type Entity struct {
	Key          elections.RegionKey `json:"-"`
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Municipality string              `json:"municipality,omitempty"`
	Province     string              `json:"province,omitempty"`
}

// Classify reads the region identifier of a feature. Settlements carry an
// EKATTE code. Any other feature is a municipality, identified by its NUTS4
// code or, without one, by its name.
func Classify(f *geojson.Feature) (Entity, error) {
	if f == nil {
		return Entity{}, ErrUnclassified
	}

	e := Entity{
		Name:         property(f, PropName),
		Municipality: property(f, PropMunicipality),
		Province:     property(f, PropProvince),
	}

	if ekatte := property(f, PropEkatte); ekatte != "" {
		e.Key = elections.SettlementKey(elections.NormalizeEkatte(ekatte))
	} else if nuts4 := property(f, PropNUTS4); nuts4 != "" {
		e.Key = elections.MunicipalityKey(nuts4)
	} else if e.Name != "" {
		e.Key = elections.MunicipalityKey(e.Name)
	} else {
		return Entity{}, ErrUnclassified
	}

	e.ID = e.Key.ID

	return e, nil
}

// Entities classifies every feature of a collection, skipping features
// without an identifier.
func Entities(fc *geojson.FeatureCollection) []Entity {
	if fc == nil {
		return nil
	}

	out := make([]Entity, 0, len(fc.Features))

	for _, f := range fc.Features {
		if e, err := Classify(f); err == nil {
			out = append(out, e)
		}
	}

	return out
}

// property returns a property as text. Numeric codes are rendered without
// a fractional part.
func property(f *geojson.Feature, name string) string {
	switch v := f.Properties[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Locator finds the boundary containing a point. It holds whatever
// polygons it is built from, settlements or municipalities.
type Locator struct {
	entries []locatorEntry
}

type locatorEntry struct {
	entity Entity
	bounds *geom.Bounds
	geom   geom.T
}

// NewLocator indexes the polygonal features of a collection.
func NewLocator(fc *geojson.FeatureCollection) *Locator {
	l := &Locator{}
	if fc == nil {
		return l
	}

	for _, f := range fc.Features {
		e, err := Classify(f)
		if err != nil || f.Geometry == nil {
			continue
		}

		switch f.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
			l.entries = append(l.entries, locatorEntry{entity: e, bounds: f.Geometry.Bounds(), geom: f.Geometry})
		}
	}

	return l
}

// Locate returns the first feature whose polygon contains lng/lat. Points
// inside a hole are outside the polygon; points on a ring are inside.
func (l *Locator) Locate(lat, lng float64) (Entity, bool) {
	c := geom.Coord{lng, lat}

	for _, entry := range l.entries {
		if !entry.bounds.OverlapsPoint(geom.XY, c) {
			continue
		}

		if containsCoord(entry.geom, c) {
			return entry.entity, true
		}
	}

	return Entity{}, false
}

func containsCoord(g geom.T, c geom.Coord) bool {
	switch g := g.(type) {
	case *geom.Polygon:
		if g.NumLinearRings() == 0 || !xy.IsPointInRing(g.Layout(), c, g.LinearRing(0).FlatCoords()) {
			return false
		}

		for i := 1; i < g.NumLinearRings(); i++ {
			if xy.LocatePointInRing(g.Layout(), c, g.LinearRing(i).FlatCoords()) == location.Interior {
				return false
			}
		}

		return true
	case *geom.MultiPolygon:
		for i := range g.NumPolygons() {
			if containsCoord(g.Polygon(i), c) {
				return true
			}
		}
	}

	return false
}
