// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/nearby/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
