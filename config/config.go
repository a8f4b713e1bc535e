// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jcodagnone/izbori/elections"
	"github.com/jcodagnone/izbori/geo"
	"github.com/jcodagnone/izbori/tabular"
)

// Config holds every setting shared by the commands.
type Config struct {
	// DataDir holds el_data/, geo/ and parties.csv.
	DataDir string `env:"IZBORI_DATA_DIR" envDefault:"data"`

	// SourceURL, when set, fetches result tables over HTTP instead of
	// reading them from DataDir.
	SourceURL string `env:"IZBORI_SOURCE_URL"`

	Addr   string `env:"IZBORI_ADDR"    envDefault:"localhost:8080"`
	DBPath string `env:"IZBORI_DB_PATH" envDefault:"izbori.duckdb"`

	// Catalog is a YAML election catalog. Empty means the embedded one.
	Catalog string `env:"IZBORI_CATALOG"`

	// Parties defaults to <DataDir>/parties.csv.
	Parties string `env:"IZBORI_PARTIES"`

	Encoding  string        `env:"IZBORI_ENCODING"`
	Strict    bool          `env:"IZBORI_STRICT"`
	UserAgent string        `env:"IZBORI_USER_AGENT" envDefault:"izbori/dev"`
	Timeout   time.Duration `env:"IZBORI_HTTP_TIMEOUT" envDefault:"1m"`
	TraceHTTP bool          `env:"IZBORI_TRACE_HTTP"`
}

// ParseEnv fills target from the process environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// Load returns the configuration found in the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// TableOptions returns how result tables are read.
func (c *Config) TableOptions() tabular.Options {
	opts := tabular.DefaultOptions()
	opts.Strict = c.Strict
	opts.Encoding = c.Encoding

	return opts
}

// Source returns where result tables come from. trace receives HTTP request
// dumps when TraceHTTP is set.
func (c *Config) Source(trace io.Writer) elections.Source {
	if c.SourceURL == "" {
		return &elections.FileSource{Root: c.DataDir}
	}

	opts := elections.HTTPOptions{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
	}
	if c.TraceHTTP {
		opts.Trace = trace
	}

	return elections.NewHTTPSource(c.SourceURL, opts)
}

// LoadCatalog reads the configured catalog, or returns the embedded one.
func (c *Config) LoadCatalog() (*elections.Catalog, error) {
	if c.Catalog == "" {
		return elections.DefaultCatalog(), nil
	}

	f, err := os.Open(filepath.Clean(c.Catalog))
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	catalog, err := elections.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", c.Catalog, err)
	}

	return catalog, nil
}

// PartiesPath returns the location of the party table.
func (c *Config) PartiesPath() string {
	if c.Parties != "" {
		return c.Parties
	}

	return filepath.Join(c.DataDir, "parties.csv")
}

// LoadParties reads the party table.
func (c *Config) LoadParties() (*elections.PartyTable, error) {
	p := c.PartiesPath()

	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", elections.ErrSourceUnavailable, p, err)
	}
	defer f.Close()

	return elections.LoadParties(f)
}

// Service builds the results service for this configuration.
func (c *Config) Service(trace io.Writer) (*elections.Service, error) {
	catalog, err := c.LoadCatalog()
	if err != nil {
		return nil, err
	}

	return elections.NewService(c.Source(trace), catalog, elections.WithTableOptions(c.TableOptions())), nil
}

// Dataset returns the geography found under DataDir.
func (c *Config) Dataset() *geo.Dataset {
	return geo.NewDataset(os.DirFS(c.DataDir))
}
