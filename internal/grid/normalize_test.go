package grid

import (
	"testing"

	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestIsTruthy(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "t", "Yes", "да", " Да "} {
		assert.True(t, IsTruthy(s), s)
	}
	for _, s := range []string{"false", "0", "", "no", "null"} {
		assert.False(t, IsTruthy(s), s)
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.False(t, IsEmpty("  "), "whitespace is submitted verbatim, so it is a value")
	assert.True(t, IsEmpty((*string)(nil)))
	assert.False(t, IsEmpty("false"))
	assert.False(t, IsEmpty(float64(0)))
	assert.False(t, IsEmpty(false))
}

func TestBlankAgreesWithSubmission(t *testing.T) {
	for _, v := range []string{"", " ", "\t", "x"} {
		assert.Equal(t, IsEmpty(v), NormalizeValue(v) == nil, "%q", v)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		kind Kind
		in   string
		want *string
	}{
		{KindCheckbox, "", types.StrPtr("false")},
		{KindCheckbox, "yes", types.StrPtr("true")},
		{KindCheckbox, "garbage", types.StrPtr("false")},
		{KindCheckboxNull, NullSentinel, nil},
		{KindCheckboxNull, "", nil},
		{KindCheckboxNull, "1", types.StrPtr("true")},
		{KindCheckboxNull, "false", types.StrPtr("false")},
		{KindText, "", nil},
		{KindText, "0", types.StrPtr("0")},
		{KindCombobox, "12", types.StrPtr("12")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.kind, tt.in), "%s %q", tt.kind, tt.in)
	}
}

func TestDecodeCell(t *testing.T) {
	assert.Equal(t, NullSentinel, DecodeCell(KindCheckboxNull, nil))
	assert.Equal(t, "false", DecodeCell(KindCheckboxNull, false))
	assert.Equal(t, "true", DecodeCell(KindCheckboxNull, "t"))
	assert.Equal(t, "false", DecodeCell(KindCheckbox, nil))
	assert.Equal(t, "true", DecodeCell(KindCheckbox, float64(1)))
	assert.Equal(t, "3.5", DecodeCell(KindText, 3.5))
	assert.Equal(t, "", DecodeCell(KindText, nil))
}

func TestMissingRequiredFallsBackToOriginal(t *testing.T) {
	p := Project(sampleColumns(), ProjectOptions{})
	row := sampleRows()[0]

	assert.Empty(t, MissingRequired(p, Draft{}, &row))
	assert.Equal(t, []string{"name"}, MissingRequired(p, Draft{}, nil))
	assert.Equal(t, []string{"name"}, MissingRequired(p, Draft{10: ""}, &row))
}

func TestMissingRequiredTriStateNull(t *testing.T) {
	descs := []types.ColumnDescriptor{
		{WidgetColumnID: 1, TableColumnID: types.IntPtr(13), ColumnName: "verified", Type: "checkboxNull", Required: true},
	}
	p := Project(descs, ProjectOptions{})

	assert.Equal(t, []string{"verified"}, MissingRequired(p, Draft{13: NullSentinel}, nil))
	assert.Empty(t, MissingRequired(p, Draft{13: "false"}, nil))
}

func TestBuildValuesOrdersByColumn(t *testing.T) {
	p := Project(sampleColumns(), ProjectOptions{})
	values := BuildValues(p, Draft{13: "yes", 10: "x", 99: ""})

	ids := make([]int, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.TableColumnID)
	}
	assert.Equal(t, []int{10, 13, 99}, ids)
	assert.Equal(t, "true", *values[1].Value)
	assert.Nil(t, values[2].Value)
}
