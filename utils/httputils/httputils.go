// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides HTTP transports used to fetch result tables.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

const (
	maxTraceLines = 2048
	maxTraceChars = 512
)

// headers whose values never reach the trace.
var redactedHeaders = []string{"authorization:", "cookie:", "set-cookie:"}

// LoggingRoundTripper writes a trace of every request and response.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// prefix, redact and shorten dumped lines.
func abbreviate(lines []string, prefix rune) []string {
	if len(lines) > maxTraceLines {
		lines = append(lines[:maxTraceLines], "…")
	}

	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, h := range redactedHeaders {
			if strings.HasPrefix(lower, h) {
				line = line[:len(h)] + " [redacted]"

				break
			}
		}

		if len(line) > maxTraceChars {
			line = line[:maxTraceChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	_, err = fmt.Fprintln(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	if _, err := fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration); err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')
	_, err = fmt.Fprintln(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		_ = resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper sets fixed headers on every request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface. The caller's
// request is cloned, not modified.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for k, v := range t.Headers {
		out.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(out)
}
