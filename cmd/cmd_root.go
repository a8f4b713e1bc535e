// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/config"
	"github.com/jcodagnone/izbori/elections"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

// cfg is loaded from the environment before any command runs; flags given
// on the command line take precedence.
var cfg = &config.Config{}

var rootCmd = &cobra.Command{
	Use:   "izbori",
	Short: "резултати от българските избори по населени места и общини",
	Long: `
izbori reads the published results of Bulgarian National Assembly and
European Parliament elections, aggregates them by settlement, municipality
and nation, merges them with map boundaries and serves them as a JSON API.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		env, err := config.Load()
		if err != nil {
			return err
		}

		applyFlags(cmd, env)
		*cfg = *env

		return nil
	},
}

var flagValues config.Config

func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("data-dir") {
		c.DataDir = flagValues.DataDir
	}

	if flags.Changed("source-url") {
		c.SourceURL = flagValues.SourceURL
	}

	if flags.Changed("catalog") {
		c.Catalog = flagValues.Catalog
	}

	if flags.Changed("encoding") {
		c.Encoding = flagValues.Encoding
	}

	if flags.Changed("strict") {
		c.Strict = flagValues.Strict
	}

	if flags.Changed("trace-http") {
		c.TraceHTTP = flagValues.TraceHTTP
	}

	if flags.Changed("db-path") {
		c.DBPath = flagValues.DBPath
	}
}

func newService() (*elections.Service, error) {
	if cfg.UserAgent == "" || cfg.UserAgent == "izbori/dev" {
		cfg.UserAgent = fmt.Sprintf("izbori/%s (+https://github.com/jcodagnone/izbori)", Version)
	}

	return cfg.Service(os.Stderr)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagValues.DataDir, "data-dir", "data", "Directory holding el_data/, geo/ and parties.csv (IZBORI_DATA_DIR)")
	flags.StringVar(&flagValues.SourceURL, "source-url", "", "Fetch result tables from this base URL (IZBORI_SOURCE_URL)")
	flags.StringVar(&flagValues.Catalog, "catalog", "", "YAML election catalog; empty uses the bundled one (IZBORI_CATALOG)")
	flags.StringVar(&flagValues.Encoding, "encoding", "", "Charset of the result tables, e.g. windows-1251 (IZBORI_ENCODING)")
	flags.BoolVar(&flagValues.Strict, "strict", false, "Fail on malformed rows instead of dropping them (IZBORI_STRICT)")
	flags.BoolVar(&flagValues.TraceHTTP, "trace-http", false, "Dump HTTP requests to stderr (IZBORI_TRACE_HTTP)")
	flags.StringVar(&flagValues.DBPath, "db-path", "izbori.duckdb", "DuckDB warehouse file (IZBORI_DB_PATH)")
}
