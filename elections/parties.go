// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jcodagnone/izbori/tabular"
)

// Party is the display information of a party, independent of results.
type Party struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// PartyTable looks parties up by the name used as column header in the
// result tables.
type PartyTable struct {
	parties []Party
	byName  map[string]int
}

// LoadParties reads the ";" separated party table (columns "party" and
// "party label").
func LoadParties(r io.Reader) (*PartyTable, error) {
	table, err := tabular.Load(r, tabular.Options{Delimiter: ';'})
	if err != nil {
		return nil, fmt.Errorf("loading parties: %w", err)
	}

	pt := &PartyTable{byName: make(map[string]int)}

	for _, row := range table.Rows {
		v, _ := row.Get("party")

		name := v.String()
		if name == "" {
			continue
		}

		label := name
		if v, ok := row.Get("party label"); ok && !v.IsEmpty() {
			label = v.String()
		}

		pt.add(Party{Name: name, Label: label, Color: PartyColor(name)})
	}

	return pt, nil
}

func (pt *PartyTable) add(p Party) {
	if i, ok := pt.byName[p.Name]; ok {
		pt.parties[i] = p

		return
	}

	pt.byName[p.Name] = len(pt.parties)
	pt.parties = append(pt.parties, p)
}

// Get returns the party with the given name. Unknown parties get their
// name as label and a generated color.
func (pt *PartyTable) Get(name string) (Party, bool) {
	if pt != nil {
		if i, ok := pt.byName[name]; ok {
			return pt.parties[i], true
		}
	}

	return Party{Name: name, Label: name, Color: PartyColor(name)}, false
}

// All returns the parties in table order.
func (pt *PartyTable) All() []Party {
	if pt == nil {
		return nil
	}

	return append([]Party(nil), pt.parties...)
}

// MarshalJSON encodes the table as an object keyed by party name, in table
// order.
func (pt *PartyTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, p := range pt.All() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}

		value, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// PartyColor derives a stable HSL color from a party name.
func PartyColor(name string) string {
	var h int32
	for _, r := range name {
		h = int32(r) + (h<<5 - h)
	}

	hue := h % 360
	if hue < 0 {
		hue += 360
	}

	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", hue)
}
