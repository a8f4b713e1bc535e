// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package elections

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is matched when a results table cannot be read.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMissingKey is returned for rows without a usable region identifier.
	ErrMissingKey = errors.New("missing region key")
	// ErrUnknownElection is returned for election ids outside the catalog.
	ErrUnknownElection = errors.New("unknown election")
	// ErrUnknownGranularity is returned for unsupported region types.
	ErrUnknownGranularity = errors.New("unknown granularity")
)

// SourceError reports a table that could not be read for an election and
// region granularity.
type SourceError struct {
	ElectionID  string
	Granularity Granularity
	Err         error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s/%s: %v", ErrSourceUnavailable, e.ElectionID, e.Granularity, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}
