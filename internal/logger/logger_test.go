package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}

func TestInitWritesJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "portal.log")

	l := Init(Config{Level: "info", File: file, Out: &buf})
	l.Info().Str("form", "7").Msg("reloaded")
	l.Debug().Msg("hidden")

	assert.Contains(t, buf.String(), `"form":"7"`)
	assert.Contains(t, buf.String(), `"message":"reloaded"`)
	assert.NotContains(t, buf.String(), "hidden")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reloaded")
}

func TestComponentTag(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Out: &buf})
	l := Component("tree")
	l.Debug().Msg("expand")
	assert.Contains(t, buf.String(), `"component":"tree"`)
}
