package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesConsoleAndJSONFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")

	logger, closeFn, err := New(Options{Level: "debug", File: path, Console: &console})
	require.NoError(t, err)
	logger.Info().Str("url", "https://example.com").Msg("fetched")
	logger.Debug().Msg("detail")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "fetched")
	assert.NotContains(t, console.String(), "\x1b[", "non-terminal output must not be colored")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "https://example.com", rec["url"])
	assert.Equal(t, "fetched", rec["message"])
}

func TestNewAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"old\":true}\n"), 0o644))

	logger, closeFn, err := New(Options{File: path, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	logger.Warn().Msg("again")
	require.NoError(t, closeFn())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "{\"old\":true}\n"))
	assert.Contains(t, string(b), "again")
}

func TestNewLevelFilters(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Console: &console})
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud", Console: &bytes.Buffer{}})
	require.Error(t, err)
}
