// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find municipalities and settlements by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := search.NewSearcher(search.DatasetLoader(cfg.Dataset()))

		entries, err := s.SearchRemote(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		for _, e := range entries {
			switch e.Kind {
			case search.KindMunicipality:
				fmt.Printf("%-12s %-6s %s\n", e.Kind, e.ID, e.Name)
			default:
				fmt.Printf("%-12s %-6s %s (%s, %s)\n", e.Kind, e.ID, e.Name, e.Municipality, e.Province)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
