package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/profilelens/internal/config"
)

func TestFileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := NewLogger(config.LogConfig{
		Level:              "warn",
		Format:             FormatNone,
		FileLoggingEnabled: true,
		Directory:          dir,
		Filename:           "profilelens.log",
		MaxSize:            1,
	})
	require.NoError(t, err)

	logger.Info("filtered out")
	logger.Warn("Expression failed", zap.String("profile", "bytes-out"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "profilelens.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Expression failed", entry["msg"])
	assert.Equal(t, "bytes-out", entry["profile"])
	assert.Equal(t, "profilelens", entry["logger"])
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(config.LogConfig{Format: FormatNone})
	assert.ErrorIs(t, err, ErrNoLogOutputs)

	_, err = NewLogger(config.LogConfig{Format: "xml"})
	assert.ErrorIs(t, err, ErrUnknownLogFormat)
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, "debug", level.String())

	_, err = parseLevel("loud")
	assert.Error(t, err)
}
