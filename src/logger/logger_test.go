package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"elmo_middleware/src/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

// TestNewJSON verifies the json format and level gate.
func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json", zerolog.InfoLevel)

	l.Debug().Msg("hidden")
	l.Info().Str("node", "vision").Msg("running")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"node":"vision"`)
	assert.Contains(t, buf.String(), `"message":"running"`)
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(model.LogConfig{Level: "loud", Format: "json", Output: "stdout"})
	assert.Error(t, err)
}

// TestInitLoggerFile verifies file output creates the log directory.
func TestInitLoggerFile(t *testing.T) {
	saved := Logger
	t.Cleanup(func() { Logger = saved })

	path := filepath.Join(t.TempDir(), "logs", "middleware.log")
	require.NoError(t, InitLogger(model.LogConfig{
		Level:      "info",
		Format:     "json",
		Output:     "file",
		FilePath:   path,
		TimeFormat: "unix",
	}))
	Info().Msg("written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written")
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}
