// Package table prints result tables in the terminal or in a file format.
package table

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
)

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	textStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = textStyle.Align(lipgloss.Right)
	nanStyle    = numberStyle.Foreground(lipgloss.Color("#888888"))
)

// Render draws t with a border. Numeric cells are right-aligned and NaN
// is dimmed.
func Render(t evaluation.Table) string {
	records := t.Records()
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(t.Header()...).
		Rows(records...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(records) || col >= len(records[row]) {
				return textStyle
			}
			return cellStyle(records[row][col])
		}).
		String()
}

func cellStyle(cell string) lipgloss.Style {
	if cell == "NaN" {
		return nanStyle
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return numberStyle
	}
	return textStyle
}

// Write prints t to w in format. YAML writes the table value itself, so it
// keeps every field of the result rather than the formatted cells.
func Write(w io.Writer, t evaluation.Table, format string) error {
	switch format {
	case FormatTable, "":
		_, err := fmt.Fprintln(w, Render(t))
		return errors.WithStack(err)
	case FormatCSV:
		return evaluation.WriteCSV(w, t)
	case FormatYAML:
		return evaluation.WriteYAML(w, t)
	default:
		return errors.NewValidationError("format", "must be table, csv or yaml", format)
	}
}
