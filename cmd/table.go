// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// table prints rows inside a box, truncating cells to the column widths.
type table struct {
	w      io.Writer
	widths []int
}

func newTable(w io.Writer, widths ...int) *table {
	return &table{w: w, widths: widths}
}

func (t *table) rule(left, mid, right string) {
	parts := make([]string, len(t.widths))
	for i, width := range t.widths {
		parts[i] = strings.Repeat("─", width+2)
	}

	fmt.Fprintf(t.w, "%s%s%s\n", left, strings.Join(parts, mid), right)
}

func (t *table) row(cells ...string) {
	parts := make([]string, len(t.widths))

	for i, width := range t.widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}

		if utf8.RuneCountInString(cell) > width {
			cell = string([]rune(cell)[:width-1]) + "…"
		}

		parts[i] = fmt.Sprintf(" %-*s ", width, cell)
	}

	fmt.Fprintf(t.w, "│%s│\n", strings.Join(parts, "│"))
}

func (t *table) header(cells ...string) {
	t.rule("╭", "┬", "╮")
	t.row(cells...)
	t.rule("├", "┼", "┤")
}

func (t *table) footer() {
	t.rule("╰", "┴", "╯")
}
