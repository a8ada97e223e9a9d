// Package render prints grids, trees and validation results to a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rana718/Portal/internal/grid"
	"github.com/Rana718/Portal/internal/tree"
	"github.com/Rana718/Portal/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorAccent = lipgloss.Color("#7aa2f7")
	colorMuted  = lipgloss.Color("#565f89")
	colorError  = lipgloss.Color("#f7768e")

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle = cellStyle.Reverse(true)
	editingStyle  = cellStyle.Foreground(colorAccent).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
)

const (
	markTrue  = "✓"
	markFalse = "✗"
	markNull  = "–"
)

type GridOptions struct {
	// Selected and Editing are row indexes; -1 means none.
	Selected int
	Editing  int
	// RowNumbers prefixes each row with its index.
	RowNumbers bool
}

// CellText renders one cell the way the grid shows it.
func CellText(col grid.Column, row types.DataRow) string {
	v := col.Cell(row)
	switch col.Kind {
	case grid.KindCheckbox:
		if v != nil && grid.IsTruthy(types.FormatScalar(v)) {
			return markTrue
		}
		return markFalse
	case grid.KindCheckboxNull:
		if v == nil || grid.DecodeCell(col.Kind, v) == grid.NullSentinel {
			return markNull
		}
		if grid.IsTruthy(types.FormatScalar(v)) {
			return markTrue
		}
		return markFalse
	}
	return types.FormatScalar(v)
}

// Grid prints the projected rows as a table.
func Grid(w io.Writer, p *grid.Projection, rows []types.DataRow, opts GridOptions) error {
	if len(p.Columns) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no visible columns"))
		return err
	}

	offset := 0
	headers := make([]string, 0, len(p.Columns)+1)
	if opts.RowNumbers {
		headers = append(headers, "#")
		offset = 1
	}
	for _, c := range p.Columns {
		label := c.Label
		if c.Required {
			label += "*"
		}
		headers = append(headers, label)
	}

	data := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, 0, len(headers))
		if opts.RowNumbers {
			cells = append(cells, fmt.Sprint(i))
		}
		for _, c := range p.Columns {
			cells = append(cells, CellText(c, row))
		}
		data[i] = cells
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == opts.Editing:
				return editingStyle
			case row == opts.Selected:
				return selectedStyle
			case col < offset:
				return cellStyle.Foreground(colorMuted)
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// Tree prints the visible part of a tree cache, descending into expanded rows.
func Tree(w io.Writer, c *tree.Cache) error {
	var b strings.Builder
	var walk func(p tree.Path, depth int)
	walk = func(p tree.Path, depth int) {
		for _, n := range c.Children(p) {
			marker := "▸"
			switch {
			case n.Loading:
				marker = "…"
			case n.Err != nil:
				marker = errorStyle.Render("!")
			case n.Expanded:
				marker = "▾"
			}
			label := n.Display
			if n.Display != n.Value {
				label += mutedStyle.Render(" (" + n.Value + ")")
			}
			fmt.Fprintf(&b, "%s%s %s\n", strings.Repeat("  ", depth), marker, label)
			if n.Expanded {
				walk(n.Path, depth+1)
			}
		}
	}
	walk(nil, 0)

	if b.Len() == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("tree is empty"))
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Validation prints the labels of the missing required fields.
func Validation(w io.Writer, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render("Required fields are empty:"))
	b.WriteString("\n")
	for _, m := range missing {
		b.WriteString("  • " + m + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// References prints each reference group with its items in order.
func References(w io.Writer, groups []types.ReferenceGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no reference groups"))
		return err
	}

	var rows [][]string
	for _, g := range groups {
		label := g.Alias
		if label == "" {
			label = fmt.Sprintf("column %d", g.WidgetColumnID)
		}
		if len(g.References) == 0 {
			rows = append(rows, []string{fmt.Sprint(g.WidgetColumnID), label, "", "", "", ""})
			continue
		}
		for _, r := range g.References {
			visible := markTrue
			if !r.Visible {
				visible = markFalse
			}
			rows = append(rows, []string{
				fmt.Sprint(g.WidgetColumnID),
				label,
				fmt.Sprint(r.RefColumnOrder),
				fmt.Sprint(r.TableColumnID),
				fmt.Sprint(r.Width),
				visible,
			})
			label = ""
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("group", "alias", "order", "table column", "width", "visible").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}
