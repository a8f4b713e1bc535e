// Copyright 2025 The Izbori Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/izbori/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
