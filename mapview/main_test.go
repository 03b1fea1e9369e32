// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import "time"

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
