package template

import (
	"encoding/json"
	"testing"

	"github.com/Rana718/Portal/internal/studio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionsParse(t *testing.T) {
	cat, err := studio.ParseDefinitions([]byte(NewProjectTemplate(SQLite).GetDefinitions()))
	require.NoError(t, err)
	assert.Len(t, cat.Tables(), 3)
	require.Len(t, cat.Forms(), 1)
	assert.Equal(t, []int{203, 204}, cat.Forms()[0].TreeFields)
}

func TestPortalConfigIsJSON(t *testing.T) {
	for _, db := range []DatabaseType{SQLite, PostgreSQL, MySQL} {
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(NewProjectTemplate(db).GetPortalConfig()), &doc), db)
		studioSection := doc["studio"].(map[string]any)
		assert.Equal(t, string(db), studioSection["provider"])
	}
}

func TestValidateDatabaseType(t *testing.T) {
	assert.Equal(t, PostgreSQL, ValidateDatabaseType("postgres"))
	assert.Equal(t, MySQL, ValidateDatabaseType("mysql"))
	assert.Equal(t, SQLite, ValidateDatabaseType("oracle"))
}
