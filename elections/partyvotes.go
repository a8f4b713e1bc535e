// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PartyVotes maps party names to vote counts. Parties are kept in the order
// they were first added so rankings break ties the same way every time.
// A nil *PartyVotes is an empty mapping.
type PartyVotes struct {
	names []string
	votes map[string]int64
}

// NewPartyVotes returns an empty mapping.
func NewPartyVotes() *PartyVotes {
	return &PartyVotes{votes: make(map[string]int64)}
}

// PartyVotesOf builds a mapping from name/vote pairs, mostly for tests:
// PartyVotesOf("A", 60, "B", 40).
func PartyVotesOf(pairs ...any) *PartyVotes {
	pv := NewPartyVotes()

	for i := 0; i+1 < len(pairs); i += 2 {
		name, _ := pairs[i].(string)

		switch v := pairs[i+1].(type) {
		case int:
			pv.Add(name, int64(v))
		case int64:
			pv.Add(name, v)
		}
	}

	return pv
}

// Add adds votes to a party, registering it if needed.
func (p *PartyVotes) Add(name string, votes int64) {
	if p.votes == nil {
		p.votes = make(map[string]int64)
	}

	if _, ok := p.votes[name]; !ok {
		p.names = append(p.names, name)
	}

	p.votes[name] += votes
}

// Get returns the votes of a party.
func (p *PartyVotes) Get(name string) (int64, bool) {
	if p == nil {
		return 0, false
	}

	v, ok := p.votes[name]

	return v, ok
}

// Len returns the number of parties.
func (p *PartyVotes) Len() int {
	if p == nil {
		return 0
	}

	return len(p.names)
}

// Names returns the parties in insertion order.
func (p *PartyVotes) Names() []string {
	if p == nil {
		return nil
	}

	return append([]string(nil), p.names...)
}

// Each visits parties in insertion order.
func (p *PartyVotes) Each(fn func(name string, votes int64)) {
	if p == nil {
		return
	}

	for _, name := range p.names {
		fn(name, p.votes[name])
	}
}

// Sum returns the votes of all parties.
func (p *PartyVotes) Sum() int64 {
	var sum int64

	p.Each(func(_ string, votes int64) {
		sum += votes
	})

	return sum
}

// Merge adds every party of other into p.
func (p *PartyVotes) Merge(other *PartyVotes) {
	other.Each(p.Add)
}

// Filter returns a new mapping with the parties keep accepts.
func (p *PartyVotes) Filter(keep func(name string) bool) *PartyVotes {
	out := NewPartyVotes()

	p.Each(func(name string, votes int64) {
		if keep(name) {
			out.Add(name, votes)
		}
	})

	return out
}

// Map returns a plain map copy.
func (p *PartyVotes) Map() map[string]int64 {
	out := make(map[string]int64, p.Len())

	p.Each(func(name string, votes int64) {
		out[name] = votes
	})

	return out
}

// MarshalJSON encodes the mapping as an object in insertion order.
func (p *PartyVotes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, name := range p.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", p.votes[name])
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping the key order.
func (p *PartyVotes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding party votes: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decoding party votes: expected object, got %v", tok)
	}

	*p = PartyVotes{votes: make(map[string]int64)}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding party votes: %w", err)
		}

		name, _ := tok.(string)

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("decoding votes for %q: %w", name, err)
		}

		votes, err := n.Float64()
		if err != nil {
			return fmt.Errorf("decoding votes for %q: %w", name, err)
		}

		p.Add(name, int64(votes))
	}

	return nil
}
