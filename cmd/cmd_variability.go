// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/analysis"
	"github.com/jcodagnone/izbori/elections"
)

var (
	variabilityOptions = analysis.DefaultOptions()
	variabilityType    string
	variabilityParty   string
)

var variabilityCmd = &cobra.Command{
	Use:   "variability",
	Short: "Rank settlements by how much their results vary across elections",
	Long: `
Computes, for every settlement, the coefficient of variation of turnout and
of the vote share of the leading parties across the catalog elections, minus
the national coefficient. The report is printed as JSON; with --party only
the ranking for that party is printed.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		results, err := analysis.LoadElections(cmd.Context(), svc, variabilityType)
		if err != nil {
			return err
		}

		if len(results) < 2 {
			return fmt.Errorf("need at least two elections with results, found %d", len(results))
		}

		report := analysis.Analyze(results, variabilityOptions)
		log.Printf("Analyzed %d settlements over %d elections", len(report.Settlements), len(results))

		if variabilityParty != "" {
			return printJSON(analysis.TopByVariability(
				report.Settlements, variabilityParty, variabilityOptions.Threshold, variabilityOptions.Limit))
		}

		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(variabilityCmd)

	flags := variabilityCmd.Flags()
	flags.StringVar(&variabilityType, "type", elections.TypeNationalAssembly, "Election type, empty for all")
	flags.StringVar(&variabilityParty, "party", "", "Only rank this party")
	flags.IntVar(&variabilityOptions.TopParties, "top", variabilityOptions.TopParties, "Number of parties analyzed")
	flags.Float64Var(&variabilityOptions.Threshold, "threshold", variabilityOptions.Threshold, "Minimum normalized coefficient to rank")
	flags.IntVar(&variabilityOptions.Limit, "limit", variabilityOptions.Limit, "Settlements per ranking")
}
