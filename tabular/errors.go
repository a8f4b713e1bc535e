// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"errors"
	"fmt"
)

// ErrMalformedTable is matched by every structural table error.
var ErrMalformedTable = errors.New("malformed table")

// MalformedError describes where a table stopped making sense.
type MalformedError struct {
	Line   int
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	msg := e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedTable, msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", ErrMalformedTable, msg)
}

func (e *MalformedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedTable, e.Err}
	}

	return []error{ErrMalformedTable}
}
