// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"fmt"

	"github.com/jcodagnone/izbori/tabular"
)

// Column names used by the published result tables.
const (
	ColumnSettlementID     = "id"
	ColumnMunicipalityCode = "nuts4"
	ColumnMunicipalityName = "municipality_name"
	ColumnTotal            = "total"
	ColumnTotalValid       = "total_valid"
	ColumnEligibleVoters   = "eligible_voters"
	ColumnTurnout          = "activity"
	ColumnInvalidBallots   = "невалидни"
)

// NormalizeKey derives the canonical region key of a row.
func NormalizeKey(row tabular.Row, g Granularity) (RegionKey, error) {
	switch g {
	case Municipality:
		for _, column := range []string{ColumnMunicipalityCode, ColumnMunicipalityName} {
			if v, ok := row.Get(column); ok && !v.IsEmpty() {
				return MunicipalityKey(v.String()), nil
			}
		}

		return RegionKey{}, fmt.Errorf("%w: no %s or %s", ErrMissingKey, ColumnMunicipalityCode, ColumnMunicipalityName)
	case Settlement:
		v, ok := row.Get(ColumnSettlementID)
		if !ok || v.IsEmpty() {
			return RegionKey{}, fmt.Errorf("%w: no %s", ErrMissingKey, ColumnSettlementID)
		}

		if n, ok := v.Int(); ok {
			return SettlementKey(PadEkatte(n)), nil
		}

		return SettlementKey(NormalizeEkatte(v.String())), nil
	default:
		return RegionKey{}, fmt.Errorf("%w: %s", ErrUnknownGranularity, g)
	}
}
