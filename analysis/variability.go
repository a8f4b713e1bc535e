// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package analysis measures how much settlement results swing between
// elections. Settlements whose turnout or party shares vary far more than
// the national trend are candidates for a closer look.
package analysis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"

	"github.com/jcodagnone/izbori/elections"
)

// NoneOfTheAbove is the ballot option that is not a party.
const NoneOfTheAbove = "не подкрепям никого"

// Options tunes Analyze.
type Options struct {
	// TopParties is how many parties get a per party variability.
	TopParties int `json:"topParties"`
	// Threshold is the normalized variability, in percent, above which a
	// settlement is ranked.
	Threshold float64 `json:"threshold"`
	// Limit bounds every ranking.
	Limit int `json:"limit"`
}

// DefaultOptions returns the options of the published analysis.
func DefaultOptions() Options {
	return Options{TopParties: 10, Threshold: 30, Limit: 100}
}

// ElectionResults are the settlement results of one election.
type ElectionResults struct {
	ElectionID string
	Records    []*elections.Record
}

// Baseline is the variability of the national aggregates.
type Baseline struct {
	TotalCV float64            `json:"totalCv"`
	PartyCV map[string]float64 `json:"partyCv"`
}

// Settlement is the variability of one settlement, minus the national
// baseline and never below zero.
type Settlement struct {
	TotalCV   float64            `json:"totalCv"`
	PartyCV   map[string]float64 `json:"partyCv"`
	Elections int                `json:"electionsCount"`
}

// Meta describes what a report was computed from.
type Meta struct {
	Elections  []string `json:"elections"`
	TopParties []string `json:"topParties"`
	Threshold  float64  `json:"threshold"`
	National   Baseline `json:"nationalCv"`
}

// Rankings list settlement ids by decreasing variability.
type Rankings struct {
	ByTotalCV []string            `json:"byTotalCv"`
	ByPartyCV map[string][]string `json:"byPartyCv"`
}

// Report is the outcome of Analyze.
type Report struct {
	Meta        Meta                   `json:"meta"`
	Settlements map[string]*Settlement `json:"settlements"`
	Rankings    Rankings               `json:"rankings"`
}

// CoefficientOfVariation returns the population standard deviation over the
// mean, in percent, of the positive values. It needs at least two of them.
func CoefficientOfVariation(values []float64) (float64, bool) {
	var (
		sum   float64
		valid int
	)

	for _, v := range values {
		if v > 0 {
			sum += v
			valid++
		}
	}

	if valid < 2 {
		return 0, false
	}

	mean := sum / float64(valid)

	var variance float64

	for _, v := range values {
		if v > 0 {
			variance += (v - mean) * (v - mean)
		}
	}

	variance /= float64(valid)

	return math.Sqrt(variance) / mean * 100, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// shares are the party percentages of one settlement in one election.
type shares struct {
	total   float64
	parties map[string]float64
}

func sharesOf(r *elections.Record) shares {
	s := shares{total: float64(r.TotalVotes), parties: make(map[string]float64, r.PartyVotes.Len())}

	r.PartyVotes.Each(func(name string, votes int64) {
		if name == NoneOfTheAbove {
			return
		}

		if r.TotalVotes > 0 {
			s.parties[name] = float64(votes) / float64(r.TotalVotes) * 100
		} else {
			s.parties[name] = 0
		}
	})

	return s
}

// Analyze computes the variability of every settlement across the given
// elections. Elections should be ordered by date.
func Analyze(results []ElectionResults, opts Options) *Report {
	perElection := make([]map[string]shares, len(results))
	ids := make([]string, len(results))

	for i, er := range results {
		ids[i] = er.ElectionID
		perElection[i] = make(map[string]shares, len(er.Records))

		for _, r := range er.Records {
			perElection[i][r.ID] = sharesOf(r)
		}
	}

	parties := topParties(results, opts.TopParties)
	national := nationalBaseline(results, parties)
	settlements := analyzeSettlements(perElection, parties, national)

	report := &Report{
		Meta: Meta{
			Elections:  ids,
			TopParties: parties,
			Threshold:  opts.Threshold,
			National: Baseline{
				TotalCV: round1(national.TotalCV),
				PartyCV: make(map[string]float64, len(national.PartyCV)),
			},
		},
		Settlements: settlements,
		Rankings: Rankings{
			ByTotalCV: TopByVariability(settlements, "", opts.Threshold, opts.Limit),
			ByPartyCV: make(map[string][]string),
		},
	}

	for party, cv := range national.PartyCV {
		report.Meta.National.PartyCV[party] = round1(cv)
	}

	for _, party := range parties {
		if top := TopByVariability(settlements, party, opts.Threshold, opts.Limit); len(top) > 0 {
			report.Rankings.ByPartyCV[party] = top
		}
	}

	return report
}

// topParties ranks parties by the sum of their settlement shares over all
// elections. Ties keep the order parties were first seen.
func topParties(results []ElectionResults, n int) []string {
	var order []string

	sums := make(map[string]float64)

	for _, er := range results {
		for _, r := range er.Records {
			s := sharesOf(r)

			for _, party := range r.PartyVotes.Names() {
				pct, ok := s.parties[party]
				if !ok {
					continue
				}

				if _, ok := sums[party]; !ok {
					order = append(order, party)
				}

				sums[party] += pct
			}
		}
	}

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(sums[b], sums[a])
	})

	if n >= 0 && n < len(order) {
		order = order[:n]
	}

	return order
}

func nationalBaseline(results []ElectionResults, parties []string) Baseline {
	totals := make([]float64, len(results))
	partyPcts := make(map[string][]float64, len(parties))

	for i, er := range results {
		votes := make(map[string]float64, len(parties))

		for _, r := range er.Records {
			totals[i] += float64(r.TotalVotes)

			if r.TotalVotes <= 0 {
				continue
			}

			for _, party := range parties {
				v, _ := r.PartyVotes.Get(party)
				votes[party] += float64(v)
			}
		}

		for _, party := range parties {
			pct := 0.0
			if totals[i] > 0 {
				pct = votes[party] / totals[i] * 100
			}

			partyPcts[party] = append(partyPcts[party], pct)
		}
	}

	b := Baseline{PartyCV: make(map[string]float64, len(parties))}
	b.TotalCV, _ = CoefficientOfVariation(totals)

	for _, party := range parties {
		if cv, ok := CoefficientOfVariation(partyPcts[party]); ok {
			b.PartyCV[party] = cv
		}
	}

	return b
}

func analyzeSettlements(perElection []map[string]shares, parties []string, national Baseline) map[string]*Settlement {
	seen := make(map[string]bool)
	for _, election := range perElection {
		for id := range election {
			seen[id] = true
		}
	}

	out := make(map[string]*Settlement, len(seen))

	for id := range seen {
		totals := make([]float64, len(perElection))
		pcts := make(map[string][]float64, len(parties))

		for i, election := range perElection {
			s := election[id]
			totals[i] = s.total

			for _, party := range parties {
				pcts[party] = append(pcts[party], s.parties[party])
			}
		}

		cv, ok := CoefficientOfVariation(totals)
		if !ok {
			continue
		}

		st := &Settlement{
			TotalCV: round1(max(0, cv-national.TotalCV)),
			PartyCV: make(map[string]float64, len(parties)),
		}

		for _, total := range totals {
			if total > 0 {
				st.Elections++
			}
		}

		for _, party := range parties {
			if cv, ok := CoefficientOfVariation(pcts[party]); ok {
				st.PartyCV[party] = round1(max(0, cv-national.PartyCV[party]))
			}
		}

		out[id] = st
	}

	return out
}

// TopByVariability returns up to limit settlement ids whose variability is
// at least threshold, highest first. An empty party ranks by turnout.
// Equal values are ordered by id.
func TopByVariability(settlements map[string]*Settlement, party string, threshold float64, limit int) []string {
	type item struct {
		id string
		cv float64
	}

	var items []item

	for id, s := range settlements {
		cv := s.TotalCV
		if party != "" {
			cv = s.PartyCV[party]
		}

		if cv >= threshold {
			items = append(items, item{id: id, cv: cv})
		}
	}

	slices.SortFunc(items, func(a, b item) int {
		return cmp.Or(cmp.Compare(b.cv, a.cv), cmp.Compare(a.id, b.id))
	})

	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}

	return out
}

// LoadElections reads the settlement results of every catalog election of
// the given type, oldest first. Elections without a table are skipped.
func LoadElections(ctx context.Context, svc *elections.Service, typ string) ([]ElectionResults, error) {
	var out []ElectionResults

	for _, e := range svc.Catalog().SortedByDate() {
		if typ != "" && e.Type != typ {
			continue
		}

		records, err := svc.LoadResults(ctx, e.ID, elections.Settlement, elections.Filter{})
		if errors.Is(err, elections.ErrSourceUnavailable) {
			log.Printf("analysis: skipping %s: %v", e.ID, err)

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.ID, err)
		}

		out = append(out, ElectionResults{ElectionID: e.ID, Records: records})
	}

	return out, nil
}
