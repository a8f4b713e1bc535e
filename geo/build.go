// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"fmt"
	"io"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/tabular"
)

// Columns of the settlement register used by BuildPlaces.
const (
	registerEkatte       = "ekatte"
	registerName         = "населено место"
	registerProvince     = "област"
	registerMunicipality = "община"

	// propGeometryCode is the EKATTE property of the raw settlement
	// boundaries.
	propGeometryCode = "ncode"
)

// BuildStats reports how a BuildPlaces run went.
type BuildStats struct {
	Rows    int
	Matched int
}

// BuildPlaces joins the ";" separated settlement register with the raw
// settlement boundaries and returns the features served as places, each
// with ekatte, name, oblast and obshtina properties. Register rows without
// a code or without geometry are left out.
func BuildPlaces(register io.Reader, boundaries *geojson.FeatureCollection) (*geojson.FeatureCollection, BuildStats, error) {
	var stats BuildStats

	table, err := tabular.Load(register, tabular.Options{Delimiter: ';'})
	if err != nil {
		return nil, stats, fmt.Errorf("loading settlement register: %w", err)
	}

	byCode := make(map[string]*geojson.Feature, len(boundaries.Features))
	for _, f := range boundaries.Features {
		if code := property(f, propGeometryCode); code != "" {
			byCode[elections.NormalizeEkatte(code)] = f
		}
	}

	out := &geojson.FeatureCollection{}

	for _, row := range table.Rows {
		stats.Rows++

		ekatte := text(row, registerEkatte)
		if ekatte == "" {
			continue
		}

		ekatte = elections.NormalizeEkatte(ekatte)

		f, ok := byCode[ekatte]
		if !ok || f.Geometry == nil {
			continue
		}

		out.Features = append(out.Features, &geojson.Feature{
			Geometry: f.Geometry,
			Properties: map[string]any{
				PropEkatte:       ekatte,
				PropName:         text(row, registerName),
				PropProvince:     text(row, registerProvince),
				PropMunicipality: text(row, registerMunicipality),
			},
		})
		stats.Matched++
	}

	return out, stats, nil
}

func text(row tabular.Row, column string) string {
	v, _ := row.Get(column)

	return v.String()
}
