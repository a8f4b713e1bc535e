// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/izbori/tabular"
)

const settlementsCSV = `id,municipality_name,nuts4,total,eligible_voters,activity,невалидни,ГЕРБ-СДС,ПП-ДБ,n_stations
14,Тетевен,LOV36,100,200,0.5,3,60,40,2
69016,Варна,VAR06,200,300,,5,140,60,10
,Нищо,XXX00,1,1,1,0,1,0,1
`

func loadRecords(t *testing.T, content string, g Granularity) *ParseResult {
	t.Helper()

	table, err := tabular.LoadString(content, tabular.DefaultOptions())
	require.NoError(t, err)

	res, err := ParseResults(table, g)
	require.NoError(t, err)

	return res
}

func TestParseResults(t *testing.T) {
	res := loadRecords(t, settlementsCSV, Settlement)

	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Records, 2)

	first := res.Records[0]
	assert.Equal(t, "00014", first.ID)
	assert.Equal(t, SettlementKey("00014"), first.Key)
	assert.Equal(t, "Тетевен", first.Name)
	assert.Equal(t, int64(100), first.TotalVotes)
	assert.Equal(t, int64(200), first.EligibleVoters)
	assert.InDelta(t, 0.5, first.Turnout, 1e-9)
	assert.Equal(t, []string{"ГЕРБ-СДС", "ПП-ДБ"}, first.PartyVotes.Names())

	second := res.Records[1]
	assert.InDelta(t, 200.0/300.0, second.Turnout, 1e-9)
	assert.Equal(t, map[string]int64{"ГЕРБ-СДС": 140, "ПП-ДБ": 60}, second.PartyVotes.Map())
}

func TestBuildRecordMetadataNeverParty(t *testing.T) {
	res := loadRecords(t, settlementsCSV, Settlement)

	for _, r := range res.Records {
		r.PartyVotes.Each(func(name string, _ int64) {
			assert.False(t, IsMetadataColumn(name), "metadata column %q counted as party", name)
		})
	}
}

func TestBuildRecordTotalFallsBackToValid(t *testing.T) {
	res := loadRecords(t, "id,total_valid,A\n1,90,90\n", Settlement)
	require.Len(t, res.Records, 1)

	r := res.Records[0]
	assert.Equal(t, int64(90), r.TotalVotes)
	assert.Zero(t, r.EligibleVoters)
	assert.Zero(t, r.Turnout)
}

func TestBuildRecordIgnoresTextColumns(t *testing.T) {
	res := loadRecords(t, "id,A,comment\n1,10,n/a\n", Settlement)
	assert.Equal(t, []string{"A"}, res.Records[0].PartyVotes.Names())
}

func TestBuildRecordSkipsInvalidVoteCounts(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want []string
	}{
		{"whole", "7", []string{"A", "B"}},
		{"whole with fraction digits", "7.0", []string{"A", "B"}},
		{"zero", "0", []string{"A", "B"}},
		{"negative", "-3", []string{"A"}},
		{"fractional", "2.5", []string{"A"}},
		{"text", "n/a", []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := loadRecords(t, "id,total,A,B\n1,10,5,"+tt.cell+"\n", Settlement)
			require.Len(t, res.Records, 1)

			r := res.Records[0]
			assert.Equal(t, tt.want, r.PartyVotes.Names())
			r.PartyVotes.Each(func(name string, votes int64) {
				assert.GreaterOrEqual(t, votes, int64(0), name)
			})
		})
	}
}

func TestApplyFilter(t *testing.T) {
	res := loadRecords(t, settlementsCSV, Settlement)

	t.Run("zero filter", func(t *testing.T) {
		got := ApplyFilter(res.Records, Settlement, Filter{})
		assert.Equal(t, res.Records, got)

		want := slices.Clone(res.Records)
		got[0] = nil
		slices.Reverse(got)
		assert.Equal(t, want, res.Records, "input slice changed through the result")
	})

	t.Run("unpadded settlement id", func(t *testing.T) {
		got := ApplyFilter(res.Records, Settlement, Filter{RegionID: "14"})
		require.Len(t, got, 1)
		assert.Equal(t, "00014", got[0].ID)
	})

	t.Run("parties are copied", func(t *testing.T) {
		got := ApplyFilter(res.Records, Settlement, Filter{Parties: []string{"ПП-ДБ"}})
		require.Len(t, got, 2)
		assert.Equal(t, []string{"ПП-ДБ"}, got[0].PartyVotes.Names())
		assert.Equal(t, []string{"ГЕРБ-СДС", "ПП-ДБ"}, res.Records[0].PartyVotes.Names())
	})

	t.Run("municipality by name", func(t *testing.T) {
		mun := loadRecords(t, "nuts4,municipality_name,A\nVAR06,Варна,5\nLOV36,Тетевен,7\n", Municipality)

		got := ApplyFilter(mun.Records, Municipality, Filter{RegionID: "Варна"})
		require.Len(t, got, 1)
		assert.Equal(t, "VAR06", got[0].ID)
	})

	t.Run("unknown region", func(t *testing.T) {
		assert.Empty(t, ApplyFilter(res.Records, Settlement, Filter{RegionID: "99999"}))
	})
}

func TestRecordJSONKeepsPartyOrder(t *testing.T) {
	r := &Record{ID: "00014", TotalVotes: 3, PartyVotes: PartyVotesOf("Б", 1, "А", 2)}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"00014","totalVotes":3,"turnout":0,"partyVotes":{"Б":1,"А":2}}`, string(data))
	assert.Contains(t, string(data), `{"Б":1,"А":2}`)
}

func TestPartyVotesUnmarshalKeepsOrder(t *testing.T) {
	pv := NewPartyVotes()
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":2,"m":3}`), pv))
	assert.Equal(t, []string{"z", "a", "m"}, pv.Names())
	assert.Equal(t, int64(6), pv.Sum())
}
