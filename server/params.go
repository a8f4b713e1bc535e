// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

func fmtBad(name, value string) error {
	return fmt.Errorf("%w: invalid %s %q", errBadParameter, name, value)
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(ctx *gin.Context, name string, def int) (int, error) {
	v := ctx.Query(name)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmtBad(name, v)
	}

	return n, nil
}
