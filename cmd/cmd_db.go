// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/store"
	"github.com/jcodagnone/izbori/utils/textutils"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Keep parsed results in a DuckDB warehouse",
}

func openRepository() (store.ResultRepository, func(), error) {
	db, err := sql.Open("duckdb", cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := store.NewResultRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, func() { db.Close() }, nil
}

type importMetrics struct {
	Imported    int
	Unavailable int
	Records     int
}

var dbImportCmd = &cobra.Command{
	Use:   "import [election...]",
	Short: "Parse result tables and store them; all catalog elections when none is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		ids := args
		if len(ids) == 0 {
			for _, e := range svc.Catalog().SortedByDate() {
				ids = append(ids, e.ID)
			}
		}

		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		granularities := []elections.Granularity{elections.Settlement, elections.Municipality}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(ids)*len(granularities),
				progressbar.OptionSetDescription("Importing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		var metrics importMetrics

		for _, id := range ids {
			for _, g := range granularities {
				records, err := svc.LoadResults(cmd.Context(), id, g, elections.Filter{})

				switch {
				case errors.Is(err, elections.ErrSourceUnavailable):
					metrics.Unavailable++
				case err != nil:
					return fmt.Errorf("loading %s/%s: %w", id, g, err)
				default:
					if err := repo.SaveResults(id, g, records); err != nil {
						return err
					}

					metrics.Imported++
					metrics.Records += len(records)
				}

				if bar == nil {
					log.Printf("Imported %s/%s", id, g)
				} else if err := bar.Add(1); err != nil {
					return fmt.Errorf("updating progress bar: %w", err)
				}
			}
		}

		m := svc.Metrics()
		log.Printf(
			"Imported %d tables with %s records, %d tables unavailable, %d rows without key, %d malformed rows",
			metrics.Imported,
			textutils.FormatInt(int64(metrics.Records)),
			metrics.Unavailable,
			m.SkippedRows,
			m.DroppedRows,
		)

		return nil
	},
}

var dbHistoryCmd = &cobra.Command{
	Use:   "history <settlement|municipality> <region>",
	Short: "Stored results of one region, oldest first",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		g, err := elections.ParseGranularity(args[0])
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		rows, err := repo.History(g, args[1])
		if err != nil {
			return err
		}

		return printJSON(rows)
	},
}

var dbTotalsCmd = &cobra.Command{
	Use:   "totals <election>",
	Short: "Stored votes per party of an election",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		repo, closeDB, err := openRepository()
		if err != nil {
			return err
		}
		defer closeDB()

		imported, err := repo.Imported(elections.Settlement)
		if err != nil {
			return err
		}

		if !slices.Contains(imported, args[0]) {
			return fmt.Errorf("%s has not been imported, run 'izbori db import %s'", args[0], args[0])
		}

		totals, err := repo.PartyTotals(args[0], elections.Settlement)
		if err != nil {
			return err
		}

		for _, p := range totals {
			fmt.Printf("%-40s %12s %8s\n", p.Party, textutils.FormatInt(p.Votes), textutils.FormatPercent(p.Percentage))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbImportCmd)
	dbCmd.AddCommand(dbHistoryCmd)
	dbCmd.AddCommand(dbTotalsCmd)
}
