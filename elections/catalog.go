// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"bytes"
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Election types.
const (
	TypeNationalAssembly   = "ns"
	TypeEuropeanParliament = "ep"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Election is one election event with published results.
type Election struct {
	ID   string `yaml:"id"   json:"id"`
	Date string `yaml:"date" json:"date"`
	Type string `yaml:"type" json:"type"`
}

// Catalog lists the known elections and the municipality aliases used when
// matching results against the geography.
type Catalog struct {
	elections []Election
	aliases   Aliases
}

type catalogFile struct {
	Elections []Election        `yaml:"elections"`
	Aliases   map[string]string `yaml:"aliases"`
}

// DefaultCatalog returns the catalog bundled with the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("elections: invalid embedded catalog: %v", err))
	}

	return c
}

// LoadCatalog reads a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile

	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	for i := range file.Elections {
		e := &file.Elections[i]
		if e.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id must not be empty", i)
		}

		date, typ := ParseElectionID(e.ID)
		if e.Date == "" {
			e.Date = date
		}

		if e.Type == "" {
			e.Type = typ
		}
	}

	return NewCatalog(file.Elections, file.Aliases), nil
}

// NewCatalog builds a catalog from an explicit list.
func NewCatalog(elections []Election, aliases Aliases) *Catalog {
	return &Catalog{
		elections: slices.Clone(elections),
		aliases:   aliases,
	}
}

// All returns the elections in catalog order.
func (c *Catalog) All() []Election {
	return slices.Clone(c.elections)
}

// Aliases returns the municipality name aliases.
func (c *Catalog) Aliases() Aliases {
	return c.aliases
}

// Find returns the election with the given id.
func (c *Catalog) Find(id string) (Election, error) {
	for _, e := range c.elections {
		if e.ID == id {
			return e, nil
		}
	}

	return Election{}, fmt.Errorf("%w: %q", ErrUnknownElection, id)
}

// SortedByDate returns the elections, oldest first.
func (c *Catalog) SortedByDate() []Election {
	out := c.All()
	slices.SortStableFunc(out, func(a, b Election) int {
		return cmp.Compare(a.Date, b.Date)
	})

	return out
}

// Latest returns the n most recent elections of the given type, most
// recent first. An empty type matches every election.
func (c *Catalog) Latest(typ string, n int) []Election {
	var out []Election

	for _, e := range c.elections {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}

	slices.SortStableFunc(out, func(a, b Election) int {
		return cmp.Compare(b.Date, a.Date)
	})

	if n >= 0 && n < len(out) {
		out = out[:n]
	}

	return out
}

// FormattedDate renders the election date in Bulgarian. National Assembly
// elections held together with another election get an "(НС)" suffix.
func (c *Catalog) FormattedDate(id string) string {
	date, typ := ParseElectionID(id)

	shared := false

	for _, e := range c.elections {
		if e.ID != id && e.Date == date {
			shared = true

			break
		}
	}

	return formatDate(date, typ, shared)
}

// ParseElectionID splits ids such as "2024-06-09-ep" into date and type.
// Ids without a known type suffix are National Assembly elections.
func ParseElectionID(id string) (date, typ string) {
	if i := strings.LastIndex(id, "-"); i >= 0 {
		switch suffix := id[i+1:]; suffix {
		case TypeNationalAssembly, TypeEuropeanParliament:
			return id[:i], suffix
		}
	}

	return id, TypeNationalAssembly
}

var bulgarianMonths = map[string]string{
	"01": "Януари",
	"02": "Февруари",
	"03": "Март",
	"04": "Април",
	"05": "Май",
	"06": "Юни",
	"07": "Юли",
	"08": "Август",
	"09": "Септември",
	"10": "Октомври",
	"11": "Ноември",
	"12": "Декември",
}

// FormatDate renders an election id as "27 Октомври 2024".
func FormatDate(id string) string {
	date, typ := ParseElectionID(id)

	return formatDate(date, typ, false)
}

func formatDate(date, typ string, shared bool) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}

	month, ok := bulgarianMonths[parts[1]]
	if !ok {
		month = parts[1]
	}

	out := fmt.Sprintf("%s %s %s", parts[2], month, parts[0])

	switch {
	case typ == TypeEuropeanParliament:
		out += " (ЕП)"
	case typ == TypeNationalAssembly && shared:
		out += " (НС)"
	}

	return out
}
