// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Granularity is the administrative level a record describes.
type Granularity int

const (
	// Settlement records are keyed by the 5 digit EKATTE code.
	Settlement Granularity = iota
	// Municipality records are keyed by NUTS4 code or municipality name.
	Municipality
	// National is only produced by aggregation.
	National
)

func (g Granularity) String() string {
	switch g {
	case Settlement:
		return "settlement"
	case Municipality:
		return "municipality"
	case National:
		return "national"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// MarshalJSON encodes the granularity by name.
func (g Granularity) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// Parent returns the level settlement or municipality records roll up to.
func (g Granularity) Parent() Granularity {
	if g == Settlement {
		return Municipality
	}

	return National
}

// ParseGranularity accepts the region types tables are published for.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "settlement", "":
		return Settlement, nil
	case "municipality":
		return Municipality, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// RegionKey identifies a region once, at parse time, instead of probing
// row fields every time the kind of region matters.
type RegionKey struct {
	Level Granularity
	ID    string
}

// MunicipalityKey builds the key of a municipality.
func MunicipalityKey(code string) RegionKey {
	return RegionKey{Level: Municipality, ID: code}
}

// SettlementKey builds the key of a settlement from its EKATTE code.
func SettlementKey(ekatte string) RegionKey {
	return RegionKey{Level: Settlement, ID: ekatte}
}

func (k RegionKey) String() string {
	return k.Level.String() + ":" + k.ID
}

const ekatteLen = 5

// PadEkatte renders an integer settlement id as a 5 character EKATTE code.
// Longer ids are returned as is.
func PadEkatte(id int64) string {
	return fmt.Sprintf("%0*d", ekatteLen, id)
}

// NormalizeEkatte pads a textual settlement id. Integers are re-rendered so
// that "14", "0014" and "00014" all yield "00014".
func NormalizeEkatte(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n >= 0 {
		return PadEkatte(n)
	}

	if len(s) >= ekatteLen {
		return s
	}

	return strings.Repeat("0", ekatteLen-len(s)) + s
}
