// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve results and geography as a JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}

		svc, err := newService()
		if err != nil {
			return err
		}

		parties, err := cfg.LoadParties()
		if errors.Is(err, elections.ErrSourceUnavailable) {
			log.Printf("No party table: %v", err)
		} else if err != nil {
			return err
		}

		log.Printf("Serving %d elections from %s on %s", len(svc.Catalog().All()), cfg.DataDir, cfg.Addr)

		return server.NewServer(svc, cfg.Dataset(), parties).Run(cfg.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8080", "Listen address (IZBORI_ADDR)")
}
