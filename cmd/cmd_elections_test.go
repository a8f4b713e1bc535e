// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/izbori/elections"
)

func writeCustomData(t *testing.T) (catalog, dataDir string) {
	t.Helper()

	dataDir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "el_data"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "el_data", "2025-01-01ns.csv"),
		[]byte("id,total,eligible_voters,A,B\n68134,100,200,60,40\n"),
		0o600,
	))

	catalog = filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog,
		[]byte("elections:\n  - {id: \"2025-01-01-ns\", date: \"2025-01-01\", type: ns}\n"),
		0o600,
	))

	return catalog, dataDir
}

func TestElectionCommandsUseConfiguredCatalog(t *testing.T) {
	catalog, dataDir := writeCustomData(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"stats of an election only in the custom catalog", []string{"elections", "stats", "2025-01-01-ns"}, nil},
		{"stats of an election only in the bundled catalog", []string{"elections", "stats", "2024-10-27-ns"}, elections.ErrUnknownElection},
		{"municipalities of an unknown election", []string{"elections", "municipalities", "1999-01-01-ns"}, elections.ErrUnknownElection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(append([]string{"--catalog", catalog, "--data-dir", dataDir}, tt.args...))
			t.Cleanup(func() { rootCmd.SetArgs(nil) })

			err := rootCmd.Execute()
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, catalog, cfg.Catalog)
				assert.Equal(t, dataDir, cfg.DataDir)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestElectionCommandsRequireOneArgument(t *testing.T) {
	rootCmd.SetArgs([]string{"elections", "stats"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s), received 0")
}
