// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

// GroupFunc returns the group a record belongs to, or false to leave it
// out of the rollup.
type GroupFunc func(r *Record) (string, bool)

// Aliases maps alternative spellings of a parent region name to the name
// used by the geography. The capital municipality is the usual case.
type Aliases map[string]string

// Resolve returns the canonical spelling of name.
func (a Aliases) Resolve(name string) string {
	if canonical, ok := a[name]; ok {
		return canonical
	}

	return name
}

// ParentOptions tunes AggregateToParent.
type ParentOptions struct {
	Aliases Aliases
	// Known restricts the result to parents present in the geography.
	// Nil accepts every parent.
	Known func(name string) bool
}

type accumulator struct {
	order  []string
	groups map[string]*Record
}

func newAccumulator() *accumulator {
	return &accumulator{groups: make(map[string]*Record)}
}

func (a *accumulator) add(key string, level Granularity, r *Record) {
	agg, ok := a.groups[key]
	if !ok {
		agg = &Record{
			ID:         key,
			Key:        RegionKey{Level: level, ID: key},
			PartyVotes: NewPartyVotes(),
		}
		if level == Municipality {
			agg.Name = key
		}

		a.groups[key] = agg
		a.order = append(a.order, key)
	}

	agg.TotalVotes += r.TotalVotes
	agg.EligibleVoters += r.EligibleVoters
	agg.PartyVotes.Merge(r.PartyVotes)
}

func (a *accumulator) finish() []*Record {
	out := make([]*Record, 0, len(a.order))

	for _, key := range a.order {
		agg := a.groups[key]
		if agg.EligibleVoters > 0 {
			agg.Turnout = float64(agg.TotalVotes) / float64(agg.EligibleVoters)
		}

		out = append(out, agg)
	}

	return out
}

// Rollup sums records per group: total votes, eligible voters and votes
// per party, with turnout recomputed from the sums. Groups without records
// are absent from the result.
func Rollup(records []*Record, groupKeyOf GroupFunc) map[string]*Record {
	aggs := rollup(records, groupKeyOf)

	out := make(map[string]*Record, len(aggs))
	for _, agg := range aggs {
		out[agg.ID] = agg
	}

	return out
}

func rollup(records []*Record, groupKeyOf GroupFunc) []*Record {
	acc := newAccumulator()

	for _, r := range records {
		key, ok := groupKeyOf(r)
		if !ok {
			continue
		}

		acc.add(key, r.Key.Level.Parent(), r)
	}

	return acc.finish()
}

// AggregateToParent rolls records up to their parent region, in the order
// parents are first seen. Parent names go through the alias table before
// grouping.
func AggregateToParent(records []*Record, parentOf GroupFunc, opts ParentOptions) []*Record {
	return rollup(records, func(r *Record) (string, bool) {
		parent, ok := parentOf(r)
		if !ok || parent == "" {
			return "", false
		}

		parent = opts.Aliases.Resolve(parent)
		if opts.Known != nil && !opts.Known(parent) {
			return "", false
		}

		return parent, true
	})
}

// NationalTotals sums every record into a single national result.
func NationalTotals(records []*Record) *Record {
	acc := newAccumulator()
	for _, r := range records {
		acc.add("national", National, r)
	}

	if out := acc.finish(); len(out) > 0 {
		return out[0]
	}

	return &Record{ID: "national", Key: RegionKey{Level: National, ID: "national"}, PartyVotes: NewPartyVotes()}
}

// RollupAcrossElections sums party votes over several elections, given most
// recent first, and ranks them. Parties missing from some elections keep
// their partial sums. Ties keep the order parties were first seen.
func RollupAcrossElections(perElection []*PartyVotes) []RankedParty {
	total := NewPartyVotes()
	for _, pv := range perElection {
		total.Merge(pv)
	}

	return Rank(total, total.Sum())
}
