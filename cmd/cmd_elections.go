// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/utils/textutils"
)

var electionsCmd = &cobra.Command{
	Use:   "elections",
	Short: "Query election results",
}

var electionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the elections of the catalog",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		catalog, err := cfg.LoadCatalog()
		if err != nil {
			return err
		}

		a, b, c := strings.Repeat("─", 13), strings.Repeat("─", 4), strings.Repeat("─", 30)
		fmt.Printf("╭─%-13s─┬─%-4s─┬─%-30s╮\n", a, b, c)
		fmt.Printf("│ %-13s │ %-4s │ %-30s│\n", "Id", "Type", "Date")
		fmt.Printf("├─%-13s─┼─%-4s─┼─%-30s┤\n", a, b, c)

		for _, e := range catalog.SortedByDate() {
			fmt.Printf("│ %-13s │ %-4s │ %-30s│\n", e.ID, e.Type, catalog.FormattedDate(e.ID))
		}

		fmt.Printf("╰─%-13s─┴─%-4s─┴─%-30s╯\n", a, b, c)

		return nil
	},
}

// findElection checks id against the catalog of svc, which honours
// --catalog and IZBORI_CATALOG.
func findElection(svc *elections.Service, id string) error {
	_, err := svc.Catalog().Find(id)

	return err
}

var electionsStatsCmd = &cobra.Command{
	Use:   "stats <election>",
	Short: "Print the national totals of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		if err := findElection(svc, args[0]); err != nil {
			return err
		}

		stats, err := svc.NationalStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", svc.Catalog().FormattedDate(args[0]))
		fmt.Printf("  votes:    %s\n", textutils.FormatInt(stats.TotalVotes))
		fmt.Printf("  eligible: %s\n", textutils.FormatInt(stats.EligibleVoters))
		fmt.Printf("  turnout:  %s\n\n", textutils.FormatPercent(stats.Turnout*100))

		for _, p := range stats.TopParties {
			fmt.Printf("  %-40s %12s %8s\n", p.Party, textutils.FormatInt(p.Votes), textutils.FormatPercent(p.Percentage))
		}

		m := svc.Metrics()
		if m.SkippedRows > 0 || m.DroppedRows > 0 {
			fmt.Printf("\n  %d rows without region key, %d malformed rows\n", m.SkippedRows, m.DroppedRows)
		}

		return nil
	},
}

var topPartiesOptions struct {
	n     int
	limit int
}

var electionsTopPartiesCmd = &cobra.Command{
	Use:   "top-parties",
	Short: "Parties with most votes over the latest National Assembly elections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		names, err := svc.TopPartiesFromLastN(cmd.Context(), topPartiesOptions.n, topPartiesOptions.limit)
		if err != nil {
			return err
		}

		for i, name := range names {
			fmt.Printf("%2d. %s\n", i+1, name)
		}

		return nil
	},
}

var electionsHistoryCmd = &cobra.Command{
	Use:   "history <settlement|municipality> <region>",
	Short: "Results of one region across every election",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := elections.ParseGranularity(args[0])
		if err != nil {
			return err
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		history, err := svc.History(cmd.Context(), g, args[1])
		if err != nil {
			return err
		}

		for _, h := range history {
			ranked := elections.Rank(h.Result.PartyVotes, h.Result.TotalVotes)

			var top []string
			for _, p := range ranked[:min(3, len(ranked))] {
				top = append(top, fmt.Sprintf("%s %s", p.Party, textutils.FormatPercent(p.Percentage)))
			}

			fmt.Printf("%-30s %10s  %s\n", h.FormattedDate, textutils.FormatInt(h.Result.TotalVotes), strings.Join(top, ", "))
		}

		return nil
	},
}

var electionsMunicipalitiesCmd = &cobra.Command{
	Use:   "municipalities <election>",
	Short: "Settlement results rolled up to municipalities, as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		if err := findElection(svc, args[0]); err != nil {
			return err
		}

		records, err := cfg.Dataset().MunicipalityResults(cmd.Context(), svc, args[0])
		if err != nil {
			return err
		}

		return printJSON(records)
	},
}

func init() {
	rootCmd.AddCommand(electionsCmd)
	electionsCmd.AddCommand(electionsListCmd)
	electionsCmd.AddCommand(electionsStatsCmd)
	electionsCmd.AddCommand(electionsTopPartiesCmd)
	electionsCmd.AddCommand(electionsHistoryCmd)
	electionsCmd.AddCommand(electionsMunicipalitiesCmd)
	electionsTopPartiesCmd.Flags().IntVar(&topPartiesOptions.n, "n", 3, "Number of recent elections")
	electionsTopPartiesCmd.Flags().IntVar(&topPartiesOptions.limit, "limit", elections.DefaultTopParties, "Number of parties")
}
