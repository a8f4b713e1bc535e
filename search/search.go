// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package search finds municipalities and settlements by name.
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/geo"
	"github.com/jcodagnone/izbori/utils/memo"
	"github.com/jcodagnone/izbori/utils/textutils"
)

const (
	// MinQueryLen is the shortest query, in characters, that is searched.
	MinQueryLen = 2
	// MaxResults bounds the number of entries returned.
	MaxResults = 10
)

// Kind tells municipalities from settlements.
type Kind string

// Entry kinds.
const (
	KindMunicipality Kind = "municipality"
	KindSettlement   Kind = "settlement"
)

// Entry is a searchable region.
type Entry struct {
	Kind         Kind   `json:"type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Municipality string `json:"municipality,omitempty"`
	Province     string `json:"province,omitempty"`
}

// SearchLocal matches query as a case-insensitive substring of the entry
// names. Municipality matches come before settlement matches, each in input
// order, and at most MaxResults entries are returned. Exact matches are not
// ranked first. Queries shorter than MinQueryLen return no entries.
func SearchLocal(query string, municipalities, settlements []Entry) []Entry {
	q := textutils.Lower(query)
	if utf8.RuneCountInString(q) < MinQueryLen {
		return []Entry{}
	}

	out := make([]Entry, 0, MaxResults)

	for _, entries := range [][]Entry{municipalities, settlements} {
		for _, e := range entries {
			if len(out) == MaxResults {
				return out
			}

			if strings.Contains(textutils.Lower(e.Name), q) {
				out = append(out, e)
			}
		}
	}

	return out
}

// Loader yields the entries to search.
type Loader func(ctx context.Context) (municipalities, settlements []Entry, err error)

type index struct {
	municipalities []Entry
	settlements    []Entry
}

// Searcher searches entries it loads itself, once, on first use.
type Searcher struct {
	load  Loader
	cache *memo.Cache[*index]
}

// NewSearcher builds a searcher over the entries of load.
func NewSearcher(load Loader) *Searcher {
	return &Searcher{load: load, cache: memo.New[*index]()}
}

// SearchRemote loads the entries if needed and searches them like
// SearchLocal.
func (s *Searcher) SearchRemote(ctx context.Context, query string) ([]Entry, error) {
	if utf8.RuneCountInString(strings.TrimSpace(query)) < MinQueryLen {
		return []Entry{}, nil
	}

	ix, err := s.cache.Do(ctx, "entries", func(ctx context.Context) (*index, error) {
		municipalities, settlements, err := s.load(ctx)
		if err != nil {
			return nil, err
		}

		return &index{municipalities: municipalities, settlements: settlements}, nil
	})
	if err != nil {
		return nil, err
	}

	return SearchLocal(query, ix.municipalities, ix.settlements), nil
}

// Clear drops the loaded entries.
func (s *Searcher) Clear() {
	s.cache.Clear()
}

// FromEntities converts classified map features to entries.
func FromEntities(entities []geo.Entity) []Entry {
	out := make([]Entry, 0, len(entities))

	for _, e := range entities {
		kind := KindSettlement
		if e.Key.Level == elections.Municipality {
			kind = KindMunicipality
		}

		out = append(out, Entry{
			Kind:         kind,
			ID:           e.ID,
			Name:         e.Name,
			Municipality: e.Municipality,
			Province:     e.Province,
		})
	}

	return out
}

// DatasetLoader searches the municipality and settlement boundaries of a
// geography bundle.
func DatasetLoader(ds *geo.Dataset) Loader {
	return func(ctx context.Context) ([]Entry, []Entry, error) {
		municipalities, err := ds.Municipalities(ctx)
		if err != nil {
			return nil, nil, err
		}

		settlements, err := ds.Settlements(ctx)
		if err != nil {
			return nil, nil, err
		}

		return FromEntities(geo.Entities(municipalities)), FromEntities(geo.Entities(settlements)), nil
	}
}
