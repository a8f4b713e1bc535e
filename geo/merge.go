// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"encoding/json"
	"maps"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jcodagnone/izbori/elections"
)

// Summary is the result data attached to a map feature.
type Summary struct {
	TotalVotes int64                   `json:"totalVotes"`
	Turnout    float64                 `json:"turnout"`
	TopParties []elections.RankedParty `json:"topParties"`
}

// Summarize ranks the parties of a record against its total votes.
func Summarize(r *elections.Record) *Summary {
	return &Summary{
		TotalVotes: r.TotalVotes,
		Turnout:    r.Turnout,
		TopParties: elections.Rank(r.PartyVotes, r.TotalVotes),
	}
}

// EnrichedFeature is a source feature with the result of its region, if
// any. Source is shared with the input and must not be modified.
type EnrichedFeature struct {
	Source  *geojson.Feature
	Entity  Entity
	Summary *Summary
}

// Feature builds a new GeoJSON feature carrying the source properties and,
// when there is a result, a resultData property.
func (ef EnrichedFeature) Feature() *geojson.Feature {
	f := &geojson.Feature{}
	if ef.Source != nil {
		f.ID = ef.Source.ID
		f.BBox = ef.Source.BBox
		f.Geometry = ef.Source.Geometry
		f.Properties = maps.Clone(ef.Source.Properties)
	}

	if ef.Summary != nil {
		if f.Properties == nil {
			f.Properties = make(map[string]any, 1)
		}

		f.Properties[PropResultData] = ef.Summary
	}

	return f
}

// MarshalJSON encodes the enriched feature as GeoJSON.
func (ef EnrichedFeature) MarshalJSON() ([]byte, error) {
	return json.Marshal(ef.Feature())
}

// Merge attaches to every feature the summary of the record sharing its
// identifier. Municipality features also match records keyed by their
// name. The output has one entry per input feature, in input order;
// features without a result carry a nil Summary.
func Merge(features []*geojson.Feature, resultsByKey map[string]*elections.Record) []EnrichedFeature {
	out := make([]EnrichedFeature, len(features))

	for i, f := range features {
		out[i].Source = f

		e, err := Classify(f)
		if err != nil {
			continue
		}

		out[i].Entity = e

		r, ok := resultsByKey[e.ID]
		if !ok && e.Key.Level == elections.Municipality && e.Name != "" {
			r, ok = resultsByKey[e.Name]
		}

		if ok && r != nil {
			out[i].Summary = Summarize(r)
		}
	}

	return out
}

// Collection renders enriched features as a new FeatureCollection.
func Collection(enriched []EnrichedFeature) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, len(enriched))}
	for i, ef := range enriched {
		fc.Features[i] = ef.Feature()
	}

	return fc
}
