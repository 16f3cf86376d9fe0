package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TableFormatter renders rows as a box-drawn table for CLI output.
type TableFormatter struct {
	headers  []string
	rows     [][]string
	widths   []int
	maxWidth int
}

// NewTableFormatter creates a new table formatter with headers
func NewTableFormatter(headers ...string) *TableFormatter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	return &TableFormatter{
		headers:  headers,
		widths:   widths,
		maxWidth: 48,
	}
}

// WithMaxCellWidth truncates cells longer than n runes.
func (t *TableFormatter) WithMaxCellWidth(n int) *TableFormatter {
	t.maxWidth = n
	return t
}

// AddRow adds a row to the table. Rows with the wrong number of cells are ignored.
func (t *TableFormatter) AddRow(cells ...string) {
	if len(cells) != len(t.headers) {
		return
	}
	row := make([]string, len(cells))
	for i, cell := range cells {
		cell = strings.ReplaceAll(cell, "\n", " ")
		if t.maxWidth > 1 && utf8.RuneCountInString(cell) > t.maxWidth {
			cell = string([]rune(cell)[:t.maxWidth-1]) + "…"
		}
		row[i] = cell
		if n := utf8.RuneCountInString(cell); n > t.widths[i] {
			t.widths[i] = n
		}
	}
	t.rows = append(t.rows, row)
}

// String returns the formatted table
func (t *TableFormatter) String() string {
	var sb strings.Builder
	t.writeBorder(&sb, "┌", "┬", "┐")
	t.writeRow(&sb, t.headers)
	t.writeBorder(&sb, "├", "┼", "┤")
	for _, row := range t.rows {
		t.writeRow(&sb, row)
	}
	t.writeBorder(&sb, "└", "┴", "┘")
	return sb.String()
}

func (t *TableFormatter) writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString("│")
	for i, cell := range cells {
		pad := t.widths[i] - utf8.RuneCountInString(cell)
		sb.WriteString(fmt.Sprintf(" %s%s │", cell, strings.Repeat(" ", pad)))
	}
	sb.WriteString("\n")
}

func (t *TableFormatter) writeBorder(sb *strings.Builder, left, middle, right string) {
	sb.WriteString(left)
	for i, w := range t.widths {
		sb.WriteString(strings.Repeat("─", w+2))
		if i < len(t.widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}
