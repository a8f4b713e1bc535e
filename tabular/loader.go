// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package tabular reads delimited tables with a header row into ordered rows
// of typed cells.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options configures how a table is read.
type Options struct {
	// Delimiter separates cells. Zero means comma.
	Delimiter rune

	// NoHeader treats the first line as data; columns are then named
	// column_1..column_n.
	NoHeader bool

	// TypeNumbers converts cells whose whole trimmed content is a number.
	TypeNumbers bool

	// Strict aborts on the first malformed row instead of dropping it.
	Strict bool

	// Encoding is a charset label (e.g. "windows-1251"). Empty means UTF-8.
	Encoding string
}

// DefaultOptions is what election tables use: comma separated, header row,
// numbers typed, malformed rows dropped.
func DefaultOptions() Options {
	return Options{Delimiter: ',', TypeNumbers: true}
}

// LoadString loads a table held in memory.
func LoadString(content string, opts Options) (*Table, error) {
	return Load(strings.NewReader(content), opts)
}

// Load reads the whole table from r.
func Load(r io.Reader, opts Options) (*Table, error) {
	in, err := decode(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = !opts.Strict

	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	var (
		header *Header
		table  = &Table{}
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("reading table: %w", err)
			}

			if opts.Strict || header == nil {
				return nil, &MalformedError{Line: perr.Line, Reason: "unparseable row", Err: perr.Err}
			}

			table.Dropped++

			continue
		}

		if isBlank(record) {
			continue
		}

		if header == nil {
			header, err = readHeader(record, opts.NoHeader)
			if err != nil {
				return nil, err
			}

			table.Header = header

			if !opts.NoHeader {
				continue
			}
		}

		if len(record) != header.Len() {
			line, _ := reader.FieldPos(0)
			if opts.Strict {
				return nil, &MalformedError{
					Line:   line,
					Reason: fmt.Sprintf("expected %d columns, got %d", header.Len(), len(record)),
				}
			}

			table.Dropped++

			continue
		}

		values := make([]Value, len(record))
		for i, cell := range record {
			values[i] = parseValue(cell, opts.TypeNumbers)
		}

		table.Rows = append(table.Rows, Row{header: header, values: values})
	}

	if header == nil {
		return nil, &MalformedError{Reason: "missing header row"}
	}

	if table.Dropped > 0 {
		log.Printf("tabular: dropped %d malformed rows", table.Dropped)
	}

	return table, nil
}

func readHeader(record []string, synthetic bool) (*Header, error) {
	names := make([]string, len(record))

	for i, name := range record {
		if synthetic {
			names[i] = fmt.Sprintf("column_%d", i+1)

			continue
		}

		names[i] = strings.TrimSpace(name)
		if names[i] == "" {
			return nil, &MalformedError{Line: 1, Reason: fmt.Sprintf("empty name for column %d", i+1)}
		}
	}

	return newHeader(names), nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// decode strips a UTF-8 byte order mark and converts from the given charset.
func decode(r io.Reader, encoding string) (io.Reader, error) {
	if encoding != "" && !strings.EqualFold(encoding, "utf-8") && !strings.EqualFold(encoding, "utf8") {
		decoded, err := charset.NewReaderLabel(encoding, r)
		if err != nil {
			return nil, fmt.Errorf("decoding table as %q: %w", encoding, err)
		}

		r = decoded
	}

	br := bufio.NewReader(r)

	prefix, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skipping byte order mark: %w", err)
		}
	}

	return br, nil
}
