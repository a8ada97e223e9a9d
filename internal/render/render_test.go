package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/Rana718/Portal/internal/grid"
	"github.com/Rana718/Portal/internal/tree"
	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projection() *grid.Projection {
	return grid.Project([]types.ColumnDescriptor{
		{WidgetColumnID: 1, TableColumnID: types.IntPtr(10), ColumnName: "name", Required: true},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(20), WriteTableColumnID: types.IntPtr(11), ColumnName: "status", Type: "combobox", Primary: true},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(21), WriteTableColumnID: types.IntPtr(11), ColumnName: "code", Type: "combobox"},
		{WidgetColumnID: 3, TableColumnID: types.IntPtr(12), ColumnName: "active", Type: "checkbox"},
		{WidgetColumnID: 4, TableColumnID: types.IntPtr(13), ColumnName: "verified", Type: "checkboxNull"},
	}, grid.ProjectOptions{})
}

func TestCellText(t *testing.T) {
	p := projection()
	row := types.DataRow{Values: []any{"Alice", "Active", "A", "yes", nil}}

	assert.Equal(t, "Alice", CellText(p.Columns[0], row))
	assert.Equal(t, "Active", CellText(p.Columns[1], row))
	assert.Equal(t, markTrue, CellText(p.Columns[2], row))
	assert.Equal(t, markNull, CellText(p.Columns[3], row))

	row.Values[4] = false
	assert.Equal(t, markFalse, CellText(p.Columns[3], row))
}

func TestGrid(t *testing.T) {
	rows := []types.DataRow{
		{Values: []any{"Alice", "Active", "A", true, nil}},
		{Values: []any{"Bob", "Inactive", "I", false, true}},
	}
	var buf bytes.Buffer
	require.NoError(t, Grid(&buf, projection(), rows, GridOptions{Selected: 1, Editing: -1, RowNumbers: true}))

	out := buf.String()
	for _, want := range []string{"#", "name*", "status", "Alice", "Inactive", markTrue, markFalse, markNull} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "code")
}

func TestGridWithoutColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Grid(&buf, grid.Project(nil, grid.ProjectOptions{}), nil, GridOptions{Selected: -1, Editing: -1}))
	assert.Contains(t, buf.String(), "no visible columns")
}

type staticFetcher map[string][]types.TreeLevel

func (f staticFetcher) FetchTree(_ context.Context, _ int, filters []types.Filter) ([]types.TreeLevel, error) {
	return f[tree.Path(filters).String()], nil
}

func TestTree(t *testing.T) {
	root := tree.Path{{TableColumnID: 1, Value: "1"}}
	f := staticFetcher{
		"":            {{TableColumnID: 1, Name: "region", Values: []any{float64(1), float64(2)}, DisplayValues: []any{"North", "South"}}},
		root.String(): {{TableColumnID: 2, Name: "city", Values: []any{"Oslo"}, DisplayValues: []any{"Oslo"}}},
	}
	c := tree.New(f, 1, nil)
	ctx := context.Background()
	_, err := c.Roots(ctx)
	require.NoError(t, err)
	_, err = c.Toggle(ctx, root)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Tree(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "▾ North")
	assert.Contains(t, out, "\n  ▸ Oslo\n")
	assert.Contains(t, out, "▸ South")
}

func TestValidation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Validation(&buf, nil))
	assert.Empty(t, buf.String())

	require.NoError(t, Validation(&buf, []string{"name", "city"}))
	assert.Contains(t, buf.String(), "• name")
	assert.Contains(t, buf.String(), "• city")
}

func TestReferences(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, References(&buf, nil))
	assert.Contains(t, buf.String(), "no reference groups")

	buf.Reset()
	require.NoError(t, References(&buf, []types.ReferenceGroup{
		{WidgetColumnID: 1, Alias: "Name", References: []types.Reference{
			{TableColumnID: 201, RefColumnOrder: 0, Width: 120, Visible: true},
			{TableColumnID: 205, RefColumnOrder: 1, Width: 80},
		}},
		{WidgetColumnID: 2},
	}))
	out := buf.String()
	for _, want := range []string{"Name", "201", "205", "120", markTrue, markFalse, "column 2"} {
		assert.Contains(t, out, want)
	}
}
