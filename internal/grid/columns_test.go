package grid

import (
	"bytes"
	"testing"

	"github.com/Rana718/Portal/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		desc types.ColumnDescriptor
		want Kind
	}{
		{types.ColumnDescriptor{Type: "combobox"}, KindCombobox},
		{types.ColumnDescriptor{Type: "checkboxNull"}, KindCheckboxNull},
		{types.ColumnDescriptor{Type: "rls"}, KindRLS},
		{types.ColumnDescriptor{Datatype: "boolean"}, KindCheckbox},
		{types.ColumnDescriptor{Datatype: "text"}, KindText},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.desc), "%+v", tt.desc)
	}
}

func TestProjectGroupsCombobox(t *testing.T) {
	p := Project(sampleColumns(), ProjectOptions{StylesColumn: "styles"})

	require.Len(t, p.Columns, 4)
	status := p.Columns[1]
	require.NotNil(t, status.Combo)
	assert.Len(t, status.Combo.Members, 2)
	assert.Equal(t, 0, status.Combo.Primary)
	assert.Equal(t, 11, *status.WriteID)
	assert.Equal(t, 1, status.Index)

	row := sampleRows()[0]
	assert.Equal(t, []string{"Active", "A"}, status.Tokens(row))

	assert.Equal(t, 6, p.Width())
	i, ok := p.ValueIndex(2, types.IntPtr(21))
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	var spans []int
	for _, h := range p.Headers {
		spans = append(spans, h.Span)
	}
	assert.Equal(t, []int{1, 1, 1, 1}, spans)
}

func TestProjectSplitsComboRunOnWriteTarget(t *testing.T) {
	descs := []types.ColumnDescriptor{
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(20), WriteTableColumnID: types.IntPtr(11), Type: "combobox", ColumnName: "a"},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(21), WriteTableColumnID: types.IntPtr(15), Type: "combobox", ColumnName: "b"},
	}
	p := Project(descs, ProjectOptions{})

	require.Len(t, p.Columns, 2)
	assert.Equal(t, 11, *p.Columns[0].WriteID)
	assert.Equal(t, 15, *p.Columns[1].WriteID)
	require.Len(t, p.Headers, 1)
	assert.Equal(t, 2, p.Headers[0].Span)
}

func TestProjectPrimaryMember(t *testing.T) {
	descs := []types.ColumnDescriptor{
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(20), Type: "combobox", ColumnName: "code"},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(21), WriteTableColumnID: types.IntPtr(11), Type: "combobox", ColumnName: "label", Primary: true},
	}
	p := Project(descs, ProjectOptions{})

	require.Len(t, p.Columns, 1)
	c := p.Columns[0]
	assert.Equal(t, 1, c.Combo.Primary)
	assert.Equal(t, "label", c.Combo.PrimaryMember().Label)
	assert.Equal(t, 1, c.Index)
	assert.False(t, c.ReadOnly)
}

func TestProjectComboWithoutWriteTargetIsReadOnly(t *testing.T) {
	var buf bytes.Buffer
	descs := []types.ColumnDescriptor{
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(20), Type: "combobox", ColumnName: "code"},
	}
	p := Project(descs, ProjectOptions{Logger: zerolog.New(&buf)})

	require.Len(t, p.Columns, 1)
	assert.True(t, p.Columns[0].ReadOnly)
	assert.Nil(t, p.Columns[0].WriteID)
	assert.Contains(t, buf.String(), "no write target")
	assert.Empty(t, p.Writable())
}

func TestProjectSkipsHiddenAndReadOnlyKinds(t *testing.T) {
	descs := []types.ColumnDescriptor{
		{WidgetColumnID: 1, TableColumnID: types.IntPtr(10), ColumnName: "id", Visible: new(bool)},
		{WidgetColumnID: 2, TableColumnID: types.IntPtr(11), ColumnName: "owner", Type: "rls"},
	}
	p := Project(descs, ProjectOptions{})

	require.Len(t, p.Columns, 1)
	assert.Equal(t, KindRLS, p.Columns[0].Kind)
	assert.True(t, p.Columns[0].ReadOnly)
	assert.Equal(t, 1, p.Columns[0].Index)
}
