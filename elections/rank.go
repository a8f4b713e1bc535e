// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"cmp"
	"slices"
)

// RankedParty is a party with its share of a total.
type RankedParty struct {
	Party      string  `json:"party"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// Rank sorts parties by votes, descending. Equal votes keep the mapping's
// insertion order. A zero total yields zero percentages.
func Rank(pv *PartyVotes, total int64) []RankedParty {
	ranked := make([]RankedParty, 0, pv.Len())

	pv.Each(func(name string, votes int64) {
		var pct float64
		if total != 0 {
			pct = float64(votes) / float64(total) * 100
		}

		ranked = append(ranked, RankedParty{Party: name, Votes: votes, Percentage: pct})
	})

	slices.SortStableFunc(ranked, func(a, b RankedParty) int {
		return cmp.Compare(b.Votes, a.Votes)
	})

	return ranked
}

// TopNames returns the first limit party names. A non positive limit
// returns all of them.
func TopNames(ranked []RankedParty, limit int) []string {
	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}

	names := make([]string, limit)
	for i := range limit {
		names[i] = ranked[i].Party
	}

	return names
}
