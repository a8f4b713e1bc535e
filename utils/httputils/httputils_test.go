// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRoundTripper answers every request with a fixed body and keeps
// the last request.
type recordingRoundTripper struct {
	body        string
	lastRequest *http.Request
}

func (d *recordingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func TestLoggingRoundTripper(t *testing.T) {
	var trace bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &recordingRoundTripper{body: "id,total\n14,100\n"},
		Writer:    &trace,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/el_data/2024-10-27ns.csv", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := lt.RoundTrip(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	out := trace.String()
	assert.Contains(t, out, "> GET /el_data/2024-10-27ns.csv")
	assert.Contains(t, out, "< RESPONSE: [")
	assert.Contains(t, out, "14,100")
	assert.Contains(t, out, "Authorization: [redacted]")
	assert.NotContains(t, out, "secret")

	// the body must still be readable by the caller
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "id,total\n14,100\n", string(body))
}

func TestLoggingRoundTripperWithoutWriter(t *testing.T) {
	rt := &recordingRoundTripper{}
	lt := &LoggingRoundTripper{Transport: rt}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	resp, err := lt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Same(t, req, rt.lastRequest)
}

func TestAbbreviate(t *testing.T) {
	lines := abbreviate([]string{"GET / HTTP/1.1", "Cookie: a=b", strings.Repeat("x", maxTraceChars+10)}, '>')

	require.Len(t, lines, 3)
	assert.Equal(t, "> GET / HTTP/1.1", lines[0])
	assert.Equal(t, "> Cookie: [redacted]", lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "…"))
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	rt := &recordingRoundTripper{}
	atr := &AppendRequestHeadersRoundTripper{
		Transport: rt,
		Headers:   map[string]string{"User-Agent": "izbori/test"},
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.org", nil)
	require.NoError(t, err)

	resp, err := atr.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, rt.lastRequest)
	assert.Equal(t, "izbori/test", rt.lastRequest.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be modified")
}
