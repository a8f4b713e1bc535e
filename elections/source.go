// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jcodagnone/izbori/utils/httputils"
)

// Source yields the raw results table of an election at a granularity.
type Source interface {
	Open(ctx context.Context, electionID string, g Granularity) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, electionID string, g Granularity) (io.ReadCloser, error)

// Open implements Source.
func (f SourceFunc) Open(ctx context.Context, electionID string, g Granularity) (io.ReadCloser, error) {
	return f(ctx, electionID, g)
}

// TableName returns the published file name of a results table, e.g.
// "2024-10-27ns.csv" for settlements and "2024-10-27ns_mun.csv" for
// municipalities.
func TableName(electionID string, g Granularity) string {
	date, typ := ParseElectionID(electionID)
	if g == Municipality {
		return date + typ + "_mun.csv"
	}

	return date + typ + ".csv"
}

const tablesDir = "el_data"

// FileSource reads tables from <Root>/el_data.
type FileSource struct {
	Root string
}

// Open implements Source.
func (s *FileSource) Open(_ context.Context, electionID string, g Granularity) (io.ReadCloser, error) {
	p := filepath.Join(s.Root, tablesDir, TableName(electionID, g))

	f, err := os.Open(filepath.Clean(p))
	if err != nil {
		return nil, &SourceError{ElectionID: electionID, Granularity: g, Err: err}
	}

	return f, nil
}

// FSSource reads tables from el_data/ inside a file system, such as an
// embedded asset bundle.
type FSSource struct {
	FS fs.FS
}

// Open implements Source.
func (s *FSSource) Open(_ context.Context, electionID string, g Granularity) (io.ReadCloser, error) {
	f, err := s.FS.Open(path.Join(tablesDir, TableName(electionID, g)))
	if err != nil {
		return nil, &SourceError{ElectionID: electionID, Granularity: g, Err: err}
	}

	return f, nil
}

// HTTPOptions configures HTTPSource.
type HTTPOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Writer receives a trace of requests and responses when not nil
	Trace io.Writer

	// Includes response bodies in the trace
	TraceBody bool

	// Timeout bounds each request. Zero means one minute.
	Timeout time.Duration
}

// HTTPSource fetches tables from <BaseURL>/el_data.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource builds an HTTP source with tracing and default headers.
func NewHTTPSource(baseURL string, opts HTTPOptions) *HTTPSource {
	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	userAgent := "izbori/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}

	return &HTTPSource{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
			Transport: &httputils.AppendRequestHeadersRoundTripper{
				Headers: map[string]string{
					"User-Agent": userAgent,
					"Accept":     "text/csv, */*",
				},
				Transport: &httputils.LoggingRoundTripper{
					Writer:    opts.Trace,
					DumpBody:  opts.TraceBody,
					Transport: transport,
				},
			},
		},
	}
}

// Open implements Source.
func (s *HTTPSource) Open(ctx context.Context, electionID string, g Granularity) (io.ReadCloser, error) {
	u, err := url.JoinPath(s.BaseURL, tablesDir, TableName(electionID, g))
	if err != nil {
		return nil, fmt.Errorf("building table url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building table request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &SourceError{ElectionID: electionID, Granularity: g, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()

		err := fmt.Errorf("GET %s: %s", u, resp.Status)
		if resp.StatusCode == http.StatusNotFound {
			err = errors.Join(err, fs.ErrNotExist)
		}

		return nil, &SourceError{ElectionID: electionID, Granularity: g, Err: err}
	}

	return resp.Body, nil
}
