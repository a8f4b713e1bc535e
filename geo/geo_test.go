// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package geo

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/spatial"
)

const municipalitiesJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"nuts4":"SOF46","name":"Столична"},
 "geometry":{"type":"Polygon","coordinates":[[[23.0,42.5],[23.6,42.5],[23.6,42.9],[23.0,42.9],[23.0,42.5]]]}},
{"type":"Feature","properties":{"nuts4":"VAR06","name":"Варна"},
 "geometry":{"type":"Polygon","coordinates":[[[27.7,43.1],[28.1,43.1],[28.1,43.3],[27.7,43.3],[27.7,43.1]]]}}
]}`

const settlementsJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"ekatte":"68134","name":"София","oblast":"София-град","obshtina":"Столична"},
 "geometry":{"type":"Polygon","coordinates":[[[23.2,42.6],[23.4,42.6],[23.4,42.8],[23.2,42.8],[23.2,42.6]]]}},
{"type":"Feature","properties":{"ekatte":"10135","name":"Варна","oblast":"Варна","obshtina":"Варна"},
 "geometry":{"type":"Polygon","coordinates":[[[27.8,43.15],[28.0,43.15],[28.0,43.25],[27.8,43.25],[27.8,43.15]]]}},
{"type":"Feature","properties":{"ekatte":14,"name":"Бистрица","oblast":"София-град","obshtina":"София"},
 "geometry":{"type":"Polygon","coordinates":[[[23.34,42.56],[23.38,42.56],[23.38,42.6],[23.34,42.6],[23.34,42.56]]]}},
{"type":"Feature","properties":{"oblast":"Пловдив"},
 "geometry":{"type":"Point","coordinates":[25.0,42.0]}}
]}`

func mustCollection(t *testing.T, s string) *geojson.FeatureCollection {
	t.Helper()

	fc, err := LoadFeatureCollection(strings.NewReader(s))
	require.NoError(t, err)

	return fc
}

func TestClassify(t *testing.T) {
	fc := mustCollection(t, settlementsJSON)

	e, err := Classify(fc.Features[0])
	require.NoError(t, err)
	assert.Equal(t, Entity{
		Key:          elections.SettlementKey("68134"),
		ID:           "68134",
		Name:         "София",
		Municipality: "Столична",
		Province:     "София-град",
	}, e)

	e, err = Classify(fc.Features[2])
	require.NoError(t, err)
	assert.Equal(t, elections.SettlementKey("00014"), e.Key)

	_, err = Classify(fc.Features[3])
	assert.ErrorIs(t, err, ErrUnclassified)

	mun := mustCollection(t, municipalitiesJSON)
	e, err = Classify(mun.Features[1])
	require.NoError(t, err)
	assert.Equal(t, elections.MunicipalityKey("VAR06"), e.Key)
	assert.Equal(t, "Варна", e.Name)

	assert.Len(t, Entities(fc), 3)
}

func TestClassifyMunicipalityByName(t *testing.T) {
	tests := []struct {
		name       string
		properties string
		want       elections.RegionKey
	}{
		{"nuts4 code", `{"nuts4":"SOF46","name":"Столична"}`, elections.MunicipalityKey("SOF46")},
		{"name only", `{"name":"Столична"}`, elections.MunicipalityKey("Столична")},
		{"numeric name", `{"name":1234}`, elections.MunicipalityKey("1234")},
		{"ekatte wins", `{"ekatte":"68134","nuts4":"SOF46","name":"София"}`, elections.SettlementKey("68134")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := mustCollection(t, `{"type":"FeatureCollection","features":[{"type":"Feature","properties":`+
				tt.properties+`,"geometry":{"type":"Point","coordinates":[23.3,42.7]}}]}`)

			e, err := Classify(fc.Features[0])
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Key)
			assert.Equal(t, tt.want.ID, e.ID)
		})
	}
}

func TestMerge(t *testing.T) {
	fc := mustCollection(t, settlementsJSON)

	results := map[string]*elections.Record{
		"68134": {ID: "68134", TotalVotes: 100, Turnout: 0.5, PartyVotes: elections.PartyVotesOf("A", 40, "B", 60)},
		"00014": {ID: "00014", TotalVotes: 0, PartyVotes: elections.PartyVotesOf("A", 0)},
	}

	merged := Merge(fc.Features, results)
	require.Len(t, merged, len(fc.Features))

	for i, ef := range merged {
		assert.Same(t, fc.Features[i], ef.Source)
	}

	require.NotNil(t, merged[0].Summary)
	assert.Equal(t, int64(100), merged[0].Summary.TotalVotes)
	assert.Equal(t, []string{"B", "A"}, elections.TopNames(merged[0].Summary.TopParties, 0))

	assert.Nil(t, merged[1].Summary)

	require.NotNil(t, merged[2].Summary, "zero result is still a result")
	assert.Zero(t, merged[2].Summary.TopParties[0].Percentage)

	assert.Nil(t, merged[3].Summary)
	assert.NotContains(t, fc.Features[0].Properties, PropResultData)
}

func TestMergeWithoutMatchKeepsFeature(t *testing.T) {
	fc := mustCollection(t, settlementsJSON)

	results := make(map[string]*elections.Record)
	for _, e := range Entities(fc) {
		results[e.ID] = &elections.Record{ID: e.ID, TotalVotes: 1, PartyVotes: elections.PartyVotesOf("A", 1)}
	}

	delete(results, "10135")

	merged := Merge(fc.Features, results)

	var got *geojson.Feature

	for _, ef := range merged {
		if ef.Entity.ID == "10135" {
			assert.Nil(t, ef.Summary)
			got = ef.Feature()
		}
	}

	require.NotNil(t, got)

	if diff := cmp.Diff(fc.Features[1].Properties, got.Properties); diff != "" {
		t.Errorf("properties changed (-want +got):\n%s", diff)
	}

	assert.Equal(t, fc.Features[1].Geometry, got.Geometry)
}

func TestMergeMunicipalityByName(t *testing.T) {
	fc := mustCollection(t, municipalitiesJSON)

	merged := Merge(fc.Features, map[string]*elections.Record{
		"Столична": {ID: "Столична", TotalVotes: 10, PartyVotes: elections.PartyVotesOf("A", 10)},
		"VAR06":    {ID: "VAR06", TotalVotes: 20, PartyVotes: elections.PartyVotesOf("B", 20)},
	})

	require.NotNil(t, merged[0].Summary)
	assert.Equal(t, int64(10), merged[0].Summary.TotalVotes)
	require.NotNil(t, merged[1].Summary)
	assert.Equal(t, int64(20), merged[1].Summary.TotalVotes)
}

func TestMergeNameOnlyMunicipality(t *testing.T) {
	fc := mustCollection(t, `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"Столична"},
 "geometry":{"type":"Polygon","coordinates":[[[23.0,42.5],[23.6,42.5],[23.6,42.9],[23.0,42.9],[23.0,42.5]]]}}
]}`)

	merged := Merge(fc.Features, map[string]*elections.Record{
		"Столична": {ID: "Столична", TotalVotes: 10, PartyVotes: elections.PartyVotesOf("A", 10)},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, elections.MunicipalityKey("Столична"), merged[0].Entity.Key)
	require.NotNil(t, merged[0].Summary)
	assert.Equal(t, int64(10), merged[0].Summary.TotalVotes)

	entities := Entities(fc)
	require.Len(t, entities, 1)
	assert.Equal(t, "Столична", entities[0].Name)
}

func TestEnrichedFeatureJSON(t *testing.T) {
	fc := mustCollection(t, settlementsJSON)
	merged := Merge(fc.Features[:1], map[string]*elections.Record{
		"68134": {ID: "68134", TotalVotes: 10, Turnout: 0.25, PartyVotes: elections.PartyVotesOf("A", 10)},
	})

	data, err := json.Marshal(Collection(merged))
	require.NoError(t, err)

	var decoded struct {
		Features []struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Features, 1)

	assert.JSONEq(t,
		`{"totalVotes":10,"turnout":0.25,"topParties":[{"party":"A","votes":10,"percentage":100}]}`,
		string(decoded.Features[0].Properties[PropResultData]))
	assert.JSONEq(t, `"София"`, string(decoded.Features[0].Properties[PropName]))
}

func TestLocator(t *testing.T) {
	l := NewLocator(mustCollection(t, municipalitiesJSON))

	e, ok := l.Locate(42.6977, 23.3219)
	require.True(t, ok)
	assert.Equal(t, "SOF46", e.ID)

	e, ok = l.Locate(43.2141, 27.9147)
	require.True(t, ok)
	assert.Equal(t, "Варна", e.Name)

	_, ok = l.Locate(42.1354, 24.7453)
	assert.False(t, ok)
}

func TestLocatorHoles(t *testing.T) {
	// Вакарел sits in a hole of the surrounding ring.
	l := NewLocator(mustCollection(t, `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"ekatte":"10000","name":"Пръстен"},
 "geometry":{"type":"Polygon","coordinates":[
  [[23.0,42.0],[24.0,42.0],[24.0,43.0],[23.0,43.0],[23.0,42.0]],
  [[23.4,42.4],[23.6,42.4],[23.6,42.6],[23.4,42.6],[23.4,42.4]]]}},
{"type":"Feature","properties":{"ekatte":"10001","name":"Вакарел"},
 "geometry":{"type":"MultiPolygon","coordinates":[
  [[[23.4,42.4],[23.6,42.4],[23.6,42.6],[23.4,42.6],[23.4,42.4]]]]}}
]}`))

	tests := []struct {
		name     string
		lat, lng float64
		want     string
		found    bool
	}{
		{"ring", 42.2, 23.2, "10000", true},
		{"hole", 42.5, 23.5, "10001", true},
		{"hole boundary", 42.4, 23.5, "10000", true},
		{"outside", 44.0, 23.5, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := l.Locate(tt.lat, tt.lng)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, e.ID)
		})
	}
}

func TestPlaceIndex(t *testing.T) {
	places := PlacesFromFeatures(mustCollection(t, settlementsJSON))
	require.Len(t, places, 3)
	assert.InDelta(t, 42.7, places[0].Point.Lat, 1e-9)
	assert.InDelta(t, 23.3, places[0].Point.Lng, 1e-9)

	ix, err := NewPlaceIndex(places, spatial.DefaultResolution)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	p, ok := ix.Get("14")
	require.True(t, ok)
	assert.Equal(t, "Бистрица", p.Name)

	parent, ok := ix.ParentMunicipality(&elections.Record{ID: "68134"})
	require.True(t, ok)
	assert.Equal(t, "Столична", parent)

	_, ok = ix.ParentMunicipality(&elections.Record{ID: "99999"})
	assert.False(t, ok)

	near, err := ix.Nearby(spatial.Point{Lat: 42.69, Lng: 23.32}, 10)
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, "68134", near[0].Ekatte)
	assert.Equal(t, "00014", near[1].Ekatte)
	assert.Less(t, near[0].Distance, near[1].Distance)

	far, err := ix.Nearby(spatial.Point{Lat: 41.5, Lng: 26.0}, 1)
	require.NoError(t, err)
	assert.Empty(t, far)
}

func TestLoadPlaces(t *testing.T) {
	places, err := LoadPlaces(strings.NewReader(`[{"ekatte":"14","name":"Бистрица","oblast":"София-град","obshtina":"Столична","loc":{"lat":42.58,"lng":23.36}}]`))
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "00014", places[0].Ekatte)
	assert.Equal(t, spatial.Point{Lat: 42.58, Lng: 23.36}, places[0].Point)
}

func TestBuildPlaces(t *testing.T) {
	boundaries := mustCollection(t, `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"ncode":"00014","nm":"x"},"geometry":{"type":"Point","coordinates":[23.36,42.58]}},
{"type":"Feature","properties":{"ncode":"68134"},"geometry":{"type":"Point","coordinates":[23.32,42.69]}}
]}`)

	register := "ekatte;населено место;област;община\n14;Бистрица;София-град;Столична\n;празно;;\n99999;Няма;;\n"

	fc, stats, err := BuildPlaces(strings.NewReader(register), boundaries)
	require.NoError(t, err)
	assert.Equal(t, BuildStats{Rows: 3, Matched: 1}, stats)
	require.Len(t, fc.Features, 1)

	assert.Equal(t, map[string]any{
		PropEkatte:       "00014",
		PropName:         "Бистрица",
		PropProvince:     "София-град",
		PropMunicipality: "Столична",
	}, fc.Features[0].Properties)
}

func testService(tables map[string]string) *elections.Service {
	src := elections.SourceFunc(func(_ context.Context, id string, g elections.Granularity) (io.ReadCloser, error) {
		content, ok := tables[elections.TableName(id, g)]
		if !ok {
			return nil, &elections.SourceError{ElectionID: id, Granularity: g, Err: io.ErrUnexpectedEOF}
		}

		return io.NopCloser(strings.NewReader(content)), nil
	})

	return elections.NewService(src, nil)
}

func TestDatasetMap(t *testing.T) {
	ds := NewDataset(fstest.MapFS{
		MunicipalitiesFile: {Data: []byte(municipalitiesJSON)},
		SettlementsFile:    {Data: []byte(settlementsJSON)},
	})

	svc := testService(map[string]string{
		"2024-10-27ns.csv": "id,total,eligible_voters,A,B\n68134,100,200,60,40\n14,50,100,50,0\n10135,30,60,0,30\n",
	})

	ctx := context.Background()

	mun, err := ds.Map(ctx, svc, "2024-10-27-ns", elections.Municipality)
	require.NoError(t, err)
	require.Len(t, mun, 2)

	require.NotNil(t, mun[0].Summary)
	assert.Equal(t, int64(150), mun[0].Summary.TotalVotes)
	assert.InDelta(t, 0.5, mun[0].Summary.Turnout, 1e-9)
	require.NotNil(t, mun[1].Summary)
	assert.Equal(t, int64(30), mun[1].Summary.TotalVotes)

	set, err := ds.Map(ctx, svc, "2024-10-27-ns", elections.Settlement)
	require.NoError(t, err)
	require.Len(t, set, 4)
	assert.NotNil(t, set[2].Summary)
	assert.Nil(t, set[3].Summary)

	_, err = ds.Map(ctx, svc, "2024-06-09-ep", elections.Settlement)
	assert.ErrorIs(t, err, elections.ErrSourceUnavailable)
}

func TestDatasetMissingFile(t *testing.T) {
	ds := NewDataset(fstest.MapFS{})

	_, err := ds.Municipalities(context.Background())
	assert.ErrorIs(t, err, elections.ErrSourceUnavailable)

	_, err = ds.Places(context.Background())
	assert.ErrorIs(t, err, elections.ErrSourceUnavailable)
}

func TestDatasetPrefersPlacesFile(t *testing.T) {
	ds := NewDataset(fstest.MapFS{
		PlacesFile: {Data: []byte(`[{"ekatte":"1","name":"Едно","loc":{"lat":42,"lng":25}}]`)},
	})

	ix, err := ds.Places(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, ix.Len())

	p, ok := ix.Get("00001")
	require.True(t, ok)
	assert.Equal(t, "Едно", p.Name)
}
