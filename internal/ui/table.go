package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = "  "

// Table lays out rows in borderless columns. Widths are measured on the
// rendered cell, so styled text lines up with plain text.
type Table struct {
	cols int
	rows [][]string
}

func NewTable(cols int) *Table {
	return &Table{cols: cols}
}

// AddRow appends a row, truncating or padding it to the column count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, t.cols)
	copy(row, cells)
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) String() string {
	widths := make([]int, t.cols)
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var sb strings.Builder
	for _, row := range t.rows {
		last := len(row) - 1
		for i, cell := range row {
			sb.WriteString(cell)
			if i < last {
				sb.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
				sb.WriteString(columnGap)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
