// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settlement(id string, total, eligible int64, pv *PartyVotes) *Record {
	return &Record{
		ID:             id,
		Key:            SettlementKey(id),
		TotalVotes:     total,
		EligibleVoters: eligible,
		PartyVotes:     pv,
	}
}

func TestRollup(t *testing.T) {
	records := []*Record{
		settlement("00001", 100, 200, PartyVotesOf("A", 60, "B", 40)),
		settlement("00002", 200, 300, PartyVotesOf("A", 140, "B", 60)),
		settlement("00003", 10, 10, PartyVotesOf("C", 10)),
	}

	got := Rollup(records, func(r *Record) (string, bool) {
		return "M", r.ID != "00003"
	})

	require.Len(t, got, 1)

	m := got["M"]
	require.NotNil(t, m)
	assert.Equal(t, MunicipalityKey("M"), m.Key)
	assert.Equal(t, int64(300), m.TotalVotes)
	assert.Equal(t, int64(500), m.EligibleVoters)
	assert.InDelta(t, 0.6, m.Turnout, 1e-9)
	assert.Equal(t, map[string]int64{"A": 200, "B": 100}, m.PartyVotes.Map())
}

func TestRollupDoesNotModifyInput(t *testing.T) {
	pv := PartyVotesOf("A", 1)
	records := []*Record{settlement("00001", 1, 2, pv), settlement("00002", 1, 2, PartyVotesOf("A", 1))}

	Rollup(records, func(*Record) (string, bool) { return "M", true })

	got, _ := pv.Get("A")
	assert.Equal(t, int64(1), got)
}

func TestRollupZeroEligible(t *testing.T) {
	got := Rollup([]*Record{settlement("00001", 5, 0, PartyVotesOf("A", 5))}, func(*Record) (string, bool) {
		return "M", true
	})

	assert.Zero(t, got["M"].Turnout)
}

func TestAggregateToParent(t *testing.T) {
	parents := map[string]string{
		"00001": "София",
		"00002": "Варна",
		"00003": "Столична",
		"00004": "Несъществуваща",
		"00005": "",
	}

	records := []*Record{
		settlement("00001", 10, 20, PartyVotesOf("A", 10)),
		settlement("00002", 5, 10, PartyVotesOf("B", 5)),
		settlement("00003", 20, 40, PartyVotesOf("A", 15, "B", 5)),
		settlement("00004", 1, 1, PartyVotesOf("A", 1)),
		settlement("00005", 1, 1, PartyVotesOf("A", 1)),
	}

	known := map[string]bool{"Столична": true, "Варна": true}

	got := AggregateToParent(records, func(r *Record) (string, bool) {
		p, ok := parents[r.ID]

		return p, ok
	}, ParentOptions{
		Aliases: DefaultCatalog().Aliases(),
		Known:   func(name string) bool { return known[name] },
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Столична", got[0].ID)
	assert.Equal(t, "Столична", got[0].Name)
	assert.Equal(t, int64(30), got[0].TotalVotes)
	assert.Equal(t, map[string]int64{"A": 25, "B": 5}, got[0].PartyVotes.Map())
	assert.Equal(t, "Варна", got[1].ID)
}

func TestNationalTotals(t *testing.T) {
	n := NationalTotals([]*Record{
		settlement("00001", 100, 200, PartyVotesOf("A", 60, "B", 40)),
		settlement("00002", 200, 300, PartyVotesOf("B", 60, "A", 140)),
	})

	assert.Equal(t, RegionKey{Level: National, ID: "national"}, n.Key)
	assert.Equal(t, int64(300), n.TotalVotes)
	assert.InDelta(t, 0.6, n.Turnout, 1e-9)
	assert.Equal(t, []string{"A", "B"}, n.PartyVotes.Names())

	empty := NationalTotals(nil)
	assert.Zero(t, empty.TotalVotes)
	assert.Zero(t, empty.PartyVotes.Len())
}

func TestRollupAcrossElections(t *testing.T) {
	e1 := PartyVotesOf("A", 100, "B", 50)
	e2 := PartyVotesOf("A", 50, "B", 50, "C", 200)

	got := RollupAcrossElections([]*PartyVotes{e1, e2})

	want := []string{"C", "A", "B"}
	if diff := cmp.Diff(want, TopNames(got, 0)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, int64(200), got[0].Votes)
	assert.Equal(t, int64(150), got[1].Votes)
	assert.Equal(t, int64(100), got[2].Votes)
}

func TestRollupAcrossElectionsTieKeepsFirstSeen(t *testing.T) {
	got := RollupAcrossElections([]*PartyVotes{PartyVotesOf("X", 10), PartyVotesOf("Y", 10)})
	assert.Equal(t, []string{"X", "Y"}, TopNames(got, 0))
}

func TestRank(t *testing.T) {
	got := Rank(PartyVotesOf("A", 30, "B", 50, "C", 20), 100)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "A", "C"}, TopNames(got, 0))

	for i, want := range []float64{50, 30, 20} {
		assert.InDelta(t, want, got[i].Percentage, 1e-9)
	}
}

func TestRankPercentagesBounded(t *testing.T) {
	tests := []struct {
		name  string
		pv    *PartyVotes
		total int64
	}{
		{"exact", PartyVotesOf("A", 1, "B", 1, "C", 1), 3},
		{"invalid ballots", PartyVotesOf("A", 333, "B", 333), 1000},
		{"many parties", PartyVotesOf("A", 7, "B", 11, "C", 13, "D", 17, "E", 19), 67},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var sum float64
			for _, r := range Rank(test.pv, test.total) {
				sum += r.Percentage
			}

			assert.LessOrEqual(t, sum, 100+1e-9)
		})
	}
}

func TestRankZeroTotal(t *testing.T) {
	for _, r := range Rank(PartyVotesOf("A", 0, "B", 0), 0) {
		assert.Zero(t, r.Percentage)
	}

	assert.Empty(t, Rank(nil, 10))
}

func TestTopNames(t *testing.T) {
	ranked := Rank(PartyVotesOf("A", 3, "B", 2, "C", 1), 6)

	assert.Equal(t, []string{"A", "B"}, TopNames(ranked, 2))
	assert.Equal(t, []string{"A", "B", "C"}, TopNames(ranked, 10))
}
