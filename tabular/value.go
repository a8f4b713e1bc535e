// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"math"
	"strconv"
	"strings"
)

// Value is a single table cell. When number typing is enabled and the whole
// trimmed cell parses as a finite number, the value is numeric.
type Value struct {
	raw     string
	num     float64
	numeric bool
}

// Text returns a non-numeric value holding s.
func Text(s string) Value {
	return Value{raw: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'f', -1, 64), num: f, numeric: true}
}

// parseValue types a raw cell.
func parseValue(raw string, typeNumbers bool) Value {
	v := Value{raw: raw}
	if !typeNumbers {
		return v
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return v
	}

	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}

	v.num = f
	v.numeric = true

	return v
}

// IsNumber reports whether the cell was typed as a number.
func (v Value) IsNumber() bool {
	return v.numeric
}

// IsEmpty reports whether the cell has no content.
func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.raw) == ""
}

// Float returns the numeric content of the cell.
func (v Value) Float() (float64, bool) {
	return v.num, v.numeric
}

// Int returns the numeric content rounded to the nearest integer.
func (v Value) Int() (int64, bool) {
	if !v.numeric {
		return 0, false
	}

	return int64(math.Round(v.num)), true
}

// String returns the trimmed raw content of the cell.
func (v Value) String() string {
	return strings.TrimSpace(v.raw)
}
