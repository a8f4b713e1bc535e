// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/izbori/tabular"
)

func TestPadEkatte(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{14, "00014"},
		{0, "00000"},
		{69016, "69016"},
		{99999, "99999"},
		{123456, "123456"},
	}

	for _, test := range tests {
		t.Run(fmt.Sprint(test.in), func(t *testing.T) {
			assert.Equal(t, test.want, PadEkatte(test.in))
		})
	}
}

func TestPadEkatteIsFiveDigits(t *testing.T) {
	for k := int64(0); k <= 99999; k += 997 {
		got := PadEkatte(k)
		require.Len(t, got, 5)

		var back int64
		_, err := fmt.Sscanf(got, "%d", &back)
		require.NoError(t, err)
		assert.Equal(t, k, back)
	}
}

func TestNormalizeEkatte(t *testing.T) {
	assert.Equal(t, "00014", NormalizeEkatte("14"))
	assert.Equal(t, "00014", NormalizeEkatte("0014"))
	assert.Equal(t, "00014", NormalizeEkatte(" 00014 "))
	assert.Equal(t, "000ab", NormalizeEkatte("ab"))
	assert.Equal(t, "abcdef", NormalizeEkatte("abcdef"))
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name  string
		csv   string
		g     Granularity
		want  RegionKey
		fails bool
	}{
		{
			name: "settlement integer id",
			csv:  "id,A\n14,1\n",
			g:    Settlement,
			want: SettlementKey("00014"),
		},
		{
			name: "settlement padded id",
			csv:  "id,A\n69016,1\n",
			g:    Settlement,
			want: SettlementKey("69016"),
		},
		{
			name: "municipality prefers nuts4",
			csv:  "nuts4,municipality_name,A\nVAR06,Варна,1\n",
			g:    Municipality,
			want: MunicipalityKey("VAR06"),
		},
		{
			name: "municipality falls back to name",
			csv:  "nuts4,municipality_name,A\n,Варна,1\n",
			g:    Municipality,
			want: MunicipalityKey("Варна"),
		},
		{
			name:  "settlement without id",
			csv:   "id,A\n,1\n",
			g:     Settlement,
			fails: true,
		},
		{
			name:  "municipality without any key",
			csv:   "A,B\n1,2\n",
			g:     Municipality,
			fails: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			table, err := tabular.LoadString(test.csv, tabular.DefaultOptions())
			require.NoError(t, err)

			got, err := NormalizeKey(table.Rows[0], test.g)
			if test.fails {
				assert.True(t, errors.Is(err, ErrMissingKey), "got %v", err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestNormalizeKeyUntypedTable(t *testing.T) {
	table, err := tabular.LoadString("id\n0014\n", tabular.Options{})
	require.NoError(t, err)

	got, err := NormalizeKey(table.Rows[0], Settlement)
	require.NoError(t, err)
	assert.Equal(t, SettlementKey("00014"), got)
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("municipality")
	require.NoError(t, err)
	assert.Equal(t, Municipality, g)

	g, err = ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, Settlement, g)

	_, err = ParseGranularity("province")
	assert.ErrorIs(t, err, ErrUnknownGranularity)

	assert.Equal(t, Municipality, Settlement.Parent())
	assert.Equal(t, National, Municipality.Parent())
}
