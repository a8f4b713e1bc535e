// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/spatial"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

// eachLine calls fn for every line of stdin, prompting when it is a
// terminal.
func eachLine(prompt string, fn func(line string)) error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fn(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	return nil
}

var debugEkatteCmd = &cobra.Command{
	Use:   "ekatte",
	Short: "Normalize settlement codes",
	Long: `Reads one settlement id per line and prints it followed by its
5 digit EKATTE code.

$ echo 14 | izbori debug ekatte
14	00014
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter settlement ids, one per line…", func(line string) {
			fmt.Printf("%s\t%s\n", line, elections.NormalizeEkatte(line))
		})
	},
}

var debugLocateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the settlement containing a point",
	Long: `Reads one "lat,lng" pair per line and prints the settlement whose
boundary contains it.

$ echo 42.6977,23.3219 | izbori debug locate
42.6977,23.3219		{"id":"68134","name":"София",…}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		locator, err := cfg.Dataset().Locator(cmd.Context())
		if err != nil {
			return err
		}

		return eachLine("Enter points as lat,lng, one per line…", func(line string) {
			p, err := spatial.ParsePoint(line)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)

				return
			}

			entity, ok := locator.Locate(p.Lat, p.Lng)
			if !ok {
				fmt.Printf("%s\t%q\n", line, "no settlement")

				return
			}

			s, err := json.Marshal(entity)
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)

				return
			}

			fmt.Printf("%s\t\t%s\n", line, s)
		})
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugEkatteCmd)
	debugCmd.AddCommand(debugLocateCmd)
}
