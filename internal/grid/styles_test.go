package grid

import (
	"testing"

	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleDraftRejectsUnknownProperty(t *testing.T) {
	d := StyleDraft{}
	assert.Error(t, d.Set("name", "border", types.StrPtr("1px")))
	assert.NoError(t, d.Set("name", StyleFontSize, types.StrPtr("12px")))
}

func TestMergeStyles(t *testing.T) {
	overrides := StyleDraft{}
	require.NoError(t, overrides.Set("name", StyleColor, nil))
	require.NoError(t, overrides.Set("city", StyleBackground, types.StrPtr("#fff")))

	got, err := MergeStyles(`{"name":{"color":"red"},"age":{"font-size":"10px"}}`, overrides)
	require.NoError(t, err)
	assert.JSONEq(t, `{"age":{"font-size":"10px"},"city":{"background":"#fff"}}`, got)

	got, err = MergeStyles(nil, overrides)
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":{"background":"#fff"}}`, got)

	got, err = MergeStyles(map[string]any{"name": map[string]any{"color": "red"}}, StyleDraft{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":{"color":"red"}}`, got)

	_, err = MergeStyles("{not json", overrides)
	assert.Error(t, err)
}
