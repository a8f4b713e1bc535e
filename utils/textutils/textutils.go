// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds text helpers shared by search and the CLI.
package textutils

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Lower normalizes a name for case-insensitive matching: composed form,
// Unicode lowercase, trimmed. Diacritics are kept since "й" and "и" are
// different letters in Bulgarian.
func Lower(s string) string {
	return cases.Lower(language.Bulgarian).String(norm.NFC.String(strings.TrimSpace(s)))
}

// SplitList splits a comma separated list, dropping blank items.
func SplitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// FormatInt formats an integer with thousands separators for human readability.
func FormatInt(n int64) string {
	in := strconv.FormatInt(n, 10)

	numOfDigits := len(in)
	if n < 0 {
		numOfDigits-- // First character is the - sign (not a digit)
	}

	numOfSeps := (numOfDigits - 1) / 3

	out := make([]byte, len(in)+numOfSeps)
	if n < 0 {
		in, out[0] = in[1:], '-'
	}

	for i, j, k := len(in)-1, len(out)-1, 0; ; i, j = i-1, j-1 {
		out[j] = in[i]
		if i == 0 {
			return string(out)
		}

		if k++; k == 3 {
			j, k = j-1, 0
			out[j] = ','
		}
	}
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}
