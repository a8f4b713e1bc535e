// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/jcodagnone/izbori/tabular"
	"github.com/jcodagnone/izbori/utils/memo"
)

// DefaultTopParties is how many parties TopPartiesFromLastN reports.
const DefaultTopParties = 5

// Service loads, caches and aggregates election results. It is built once
// by the host application and shared.
type Service struct {
	source    Source
	catalog   *Catalog
	tableOpts tabular.Options
	cache     *memo.Cache[*ParseResult]
	metrics   metrics
}

type metrics struct {
	parses  atomic.Int64
	skipped atomic.Int64
	dropped atomic.Int64
}

// ServiceMetrics reports what the service has done since it was built.
type ServiceMetrics struct {
	// Parses counts tables read and parsed.
	Parses int64 `json:"parses"`
	// SkippedRows counts rows without a region key.
	SkippedRows int64 `json:"skippedRows"`
	// DroppedRows counts malformed rows.
	DroppedRows int64 `json:"droppedRows"`
	// CachedTables counts parsed tables currently cached.
	CachedTables int `json:"cachedTables"`
}

// Option configures a Service.
type Option func(*Service)

// WithTableOptions overrides how tables are read.
func WithTableOptions(opts tabular.Options) Option {
	return func(s *Service) {
		s.tableOpts = opts
	}
}

// NewService builds a service reading tables from source. A nil catalog
// means the bundled one.
func NewService(source Source, catalog *Catalog, opts ...Option) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	s := &Service{
		source:    source,
		catalog:   catalog,
		tableOpts: tabular.DefaultOptions(),
		cache:     memo.New[*ParseResult](),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Catalog returns the elections known to the service.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Metrics returns a snapshot of the service counters.
func (s *Service) Metrics() ServiceMetrics {
	return ServiceMetrics{
		Parses:       s.metrics.parses.Load(),
		SkippedRows:  s.metrics.skipped.Load(),
		DroppedRows:  s.metrics.dropped.Load(),
		CachedTables: s.cache.Len(),
	}
}

// ClearCache forgets every parsed table.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

func cacheKey(electionID string, g Granularity) string {
	return electionID + "/" + g.String()
}

// LoadResults returns the records of an election at a granularity. The
// table is parsed once per election and granularity; filters are applied
// to the cached records. The returned slice belongs to the caller, the
// records it points to are shared and read-only.
func (s *Service) LoadResults(ctx context.Context, electionID string, g Granularity, f Filter) ([]*Record, error) {
	parsed, err := s.parsed(ctx, electionID, g)
	if err != nil {
		return nil, err
	}

	return ApplyFilter(parsed.Records, g, f), nil
}

func (s *Service) parsed(ctx context.Context, electionID string, g Granularity) (*ParseResult, error) {
	if g != Settlement && g != Municipality {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGranularity, g)
	}

	if _, err := s.catalog.Find(electionID); err != nil {
		return nil, err
	}

	return s.cache.Do(ctx, cacheKey(electionID, g), func(ctx context.Context) (*ParseResult, error) {
		return s.parse(ctx, electionID, g)
	})
}

func (s *Service) parse(ctx context.Context, electionID string, g Granularity) (*ParseResult, error) {
	rc, err := s.source.Open(ctx, electionID, g)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	table, err := tabular.Load(rc, s.tableOpts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", TableName(electionID, g), err)
	}

	res, err := ParseResults(table, g)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", TableName(electionID, g), err)
	}

	s.metrics.parses.Add(1)
	s.metrics.skipped.Add(int64(res.Skipped))
	s.metrics.dropped.Add(int64(res.Dropped))

	if res.Skipped > 0 {
		log.Printf("%s: skipped %d rows without region key", TableName(electionID, g), res.Skipped)
	}

	return res, nil
}

// NationalStats summarises an election over every settlement.
type NationalStats struct {
	TotalVotes     int64         `json:"totalVotes"`
	Turnout        float64       `json:"turnout"`
	EligibleVoters int64         `json:"eligibleVoters"`
	TopParties     []RankedParty `json:"topParties"`
}

// NationalStats aggregates settlement results into national totals.
func (s *Service) NationalStats(ctx context.Context, electionID string) (*NationalStats, error) {
	records, err := s.LoadResults(ctx, electionID, Settlement, Filter{})
	if err != nil {
		return nil, err
	}

	n := NationalTotals(records)

	return &NationalStats{
		TotalVotes:     n.TotalVotes,
		Turnout:        n.Turnout,
		EligibleVoters: n.EligibleVoters,
		TopParties:     Rank(n.PartyVotes, n.TotalVotes),
	}, nil
}

// MunicipalityStats rolls settlement results up to municipalities.
// parentOf names the municipality of a settlement record; the catalog
// aliases are applied unless opts carries its own.
func (s *Service) MunicipalityStats(ctx context.Context, electionID string, parentOf GroupFunc, opts ParentOptions) ([]*Record, error) {
	records, err := s.LoadResults(ctx, electionID, Settlement, Filter{})
	if err != nil {
		return nil, err
	}

	if opts.Aliases == nil {
		opts.Aliases = s.catalog.Aliases()
	}

	return AggregateToParent(records, parentOf, opts), nil
}

// TopPartiesAcrossElections ranks parties by their votes summed over the
// first n of electionIDs, which callers give most recent first. At most
// limit names are returned; a non positive limit returns all.
func (s *Service) TopPartiesAcrossElections(ctx context.Context, electionIDs []string, n, limit int) ([]string, error) {
	if n >= 0 && n < len(electionIDs) {
		electionIDs = electionIDs[:n]
	}

	totals := make([]*PartyVotes, 0, len(electionIDs))

	for _, id := range electionIDs {
		records, err := s.LoadResults(ctx, id, Settlement, Filter{})
		if err != nil {
			return nil, err
		}

		totals = append(totals, NationalTotals(records).PartyVotes)
	}

	return TopNames(RollupAcrossElections(totals), limit), nil
}

// TopPartiesFromLastN returns the limit parties with most votes over the n
// latest National Assembly elections. A zero limit means DefaultTopParties.
func (s *Service) TopPartiesFromLastN(ctx context.Context, n, limit int) ([]string, error) {
	if limit == 0 {
		limit = DefaultTopParties
	}

	latest := s.catalog.Latest(TypeNationalAssembly, n)

	ids := make([]string, len(latest))
	for i, e := range latest {
		ids[i] = e.ID
	}

	return s.TopPartiesAcrossElections(ctx, ids, len(ids), limit)
}

// HistoryEntry is the result of one region in one election.
type HistoryEntry struct {
	ElectionID    string  `json:"electionId"`
	Date          string  `json:"date"`
	Type          string  `json:"type"`
	FormattedDate string  `json:"formattedDate"`
	Result        *Record `json:"result"`
}

// History returns the results of a region across every catalog election,
// oldest first. Elections without a table for the granularity are skipped.
func (s *Service) History(ctx context.Context, g Granularity, regionID string) ([]HistoryEntry, error) {
	if regionID == "" {
		return nil, fmt.Errorf("%w: empty region id", ErrMissingKey)
	}

	var history []HistoryEntry

	for _, e := range s.catalog.SortedByDate() {
		records, err := s.LoadResults(ctx, e.ID, g, Filter{RegionID: regionID})
		if errors.Is(err, ErrSourceUnavailable) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if len(records) == 0 {
			continue
		}

		history = append(history, HistoryEntry{
			ElectionID:    e.ID,
			Date:          e.Date,
			Type:          e.Type,
			FormattedDate: s.catalog.FormattedDate(e.ID),
			Result:        records[0],
		})
	}

	return history, nil
}
