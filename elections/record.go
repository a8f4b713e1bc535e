// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"errors"
	"math"
	"slices"

	"github.com/jcodagnone/izbori/tabular"
)

// metadataColumns never count as parties.
var metadataColumns = map[string]bool{
	ColumnMunicipalityName: true,
	"region":               true,
	"region_name":          true,
	"n_stations":           true,
	ColumnTotal:            true,
	ColumnTurnout:          true,
	ColumnMunicipalityCode: true,
	ColumnEligibleVoters:   true,
	ColumnTotalValid:       true,
	ColumnSettlementID:     true,
	ColumnInvalidBallots:   true,
}

// voteCount reads a party cell. Votes are whole non-negative numbers;
// other numeric cells are not counted.
func voteCount(v tabular.Value) (int64, bool) {
	f, ok := v.Float()
	if !ok || f < 0 || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	return int64(f), true
}

// IsMetadataColumn reports whether a column describes the region rather
// than a party.
func IsMetadataColumn(column string) bool {
	return metadataColumns[column]
}

// Record is the result of one election in one region. Records are not
// modified once built; filters produce copies.
type Record struct {
	ID   string    `json:"id"`
	Key  RegionKey `json:"-"`
	Name string    `json:"name,omitempty"`

	TotalVotes int64 `json:"totalVotes"`
	// EligibleVoters is zero when the table does not publish it.
	EligibleVoters int64 `json:"eligibleVoters,omitempty"`
	// Turnout is copied from the table when present, so its unit (fraction
	// or percentage) follows the source.
	Turnout    float64     `json:"turnout"`
	PartyVotes *PartyVotes `json:"partyVotes"`
}

// BuildRecord splits a row into region metadata and party votes.
func BuildRecord(row tabular.Row, g Granularity) (*Record, error) {
	key, err := NormalizeKey(row, g)
	if err != nil {
		return nil, err
	}

	r := &Record{
		ID:         key.ID,
		Key:        key,
		PartyVotes: NewPartyVotes(),
	}

	if v, ok := row.Get(ColumnMunicipalityName); ok {
		r.Name = v.String()
	}

	r.TotalVotes = intColumn(row, ColumnTotal)
	if !hasNumber(row, ColumnTotal) {
		r.TotalVotes = intColumn(row, ColumnTotalValid)
	}

	r.EligibleVoters = intColumn(row, ColumnEligibleVoters)

	if v, ok := row.Get(ColumnTurnout); ok && v.IsNumber() {
		r.Turnout, _ = v.Float()
	} else if r.EligibleVoters > 0 {
		r.Turnout = float64(r.TotalVotes) / float64(r.EligibleVoters)
	}

	row.Each(func(column string, v tabular.Value) {
		if metadataColumns[column] {
			return
		}

		if votes, ok := voteCount(v); ok {
			r.PartyVotes.Add(column, votes)
		}
	})

	return r, nil
}

func hasNumber(row tabular.Row, column string) bool {
	v, ok := row.Get(column)

	return ok && v.IsNumber()
}

func intColumn(row tabular.Row, column string) int64 {
	v, ok := row.Get(column)
	if !ok {
		return 0
	}

	n, _ := v.Int()

	return n
}

// ParseResult holds the records of one table.
type ParseResult struct {
	Granularity Granularity
	Records     []*Record
	// Skipped counts rows dropped for lacking a region key.
	Skipped int
	// Dropped counts rows the loader discarded as malformed.
	Dropped int
}

// ParseResults builds a record for every row that has a region key.
func ParseResults(table *tabular.Table, g Granularity) (*ParseResult, error) {
	res := &ParseResult{
		Granularity: g,
		Records:     make([]*Record, 0, len(table.Rows)),
		Dropped:     table.Dropped,
	}

	for _, row := range table.Rows {
		r, err := BuildRecord(row, g)
		if errors.Is(err, ErrMissingKey) {
			res.Skipped++

			continue
		}

		if err != nil {
			return nil, err
		}

		res.Records = append(res.Records, r)
	}

	return res, nil
}

// ByID indexes records by region id. Later records win on duplicated ids.
func ByID(records []*Record) map[string]*Record {
	out := make(map[string]*Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}

	return out
}

// Filter narrows a parsed result set without re-reading the table.
type Filter struct {
	// RegionID is a municipality code or name, or a settlement EKATTE code
	// with or without leading zeros.
	RegionID string
	// Parties keeps only the named parties. Empty keeps all of them.
	Parties []string
}

// IsZero reports whether the filter keeps everything.
func (f Filter) IsZero() bool {
	return f.RegionID == "" && len(f.Parties) == 0
}

// ApplyFilter returns the records matching f in a new slice. Records whose
// parties are narrowed are copies; the others are shared with the input and
// must be treated as read-only.
func ApplyFilter(records []*Record, g Granularity, f Filter) []*Record {
	if f.IsZero() {
		return slices.Clone(records)
	}

	regionID := f.RegionID
	if regionID != "" && g == Settlement {
		regionID = NormalizeEkatte(regionID)
	}

	out := make([]*Record, 0, len(records))

	for _, r := range records {
		if regionID != "" && r.ID != regionID && (g != Municipality || r.Name != regionID) {
			continue
		}

		if len(f.Parties) > 0 {
			cp := *r
			cp.PartyVotes = r.PartyVotes.Filter(func(name string) bool {
				return slices.Contains(f.Parties, name)
			})
			r = &cp
		}

		out = append(out, r)
	}

	return out
}
