// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package tabular

// Header is the ordered list of column names of a table.
type Header struct {
	names []string
	index map[string]int
}

func newHeader(names []string) *Header {
	h := &Header{
		names: names,
		index: make(map[string]int, len(names)),
	}

	for i, name := range names {
		// first occurrence wins on duplicated column names
		if _, ok := h.index[name]; !ok {
			h.index[name] = i
		}
	}

	return h
}

// Names returns the column names in table order.
func (h *Header) Names() []string {
	return append([]string(nil), h.names...)
}

// Len returns the number of columns.
func (h *Header) Len() int {
	return len(h.names)
}

// Row maps column names to cell values, preserving the column order of the
// table header.
type Row struct {
	header *Header
	values []Value
}

// NewRow builds a row from parallel column and value slices. It is mostly
// useful for tests and for callers that already hold typed data.
func NewRow(columns []string, values []Value) Row {
	return Row{header: newHeader(columns), values: values}
}

// Get returns the value for the given column.
func (r Row) Get(column string) (Value, bool) {
	if r.header == nil {
		return Value{}, false
	}

	i, ok := r.header.index[column]
	if !ok || i >= len(r.values) {
		return Value{}, false
	}

	return r.values[i], true
}

// Each calls fn for every cell in column order.
func (r Row) Each(fn func(column string, v Value)) {
	if r.header == nil {
		return
	}

	for i, v := range r.values {
		fn(r.header.names[i], v)
	}
}

// Len returns the number of cells.
func (r Row) Len() int {
	return len(r.values)
}

// Table is the result of loading a delimited file.
type Table struct {
	Header *Header
	Rows   []Row
	// Dropped counts data rows discarded because they were malformed.
	Dropped int
}
