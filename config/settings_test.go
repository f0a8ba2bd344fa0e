package config

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("ZIMSHELF_DATA_DIR", "")
	t.Setenv("ZIMSHELF_DB_PATH", "")
	t.Setenv("ZIMSHELF_LOG_LEVEL", "")

	settings, err := New()
	require.NoError(t, err)
	assert.Equal(t, "info", settings.LogLevel)
	assert.Equal(t, filepath.Join("data", "zimshelf.db"), filepath.Clean(settings.DBPath))
	assert.Empty(t, settings.LegacyPath)
}

func TestNewDerivesDBPathFromDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZIMSHELF_DATA_DIR", dir)
	t.Setenv("ZIMSHELF_DB_PATH", "")

	settings, err := New()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "zimshelf.db"), settings.DBPath)
}

func TestNewExplicitDBPathWins(t *testing.T) {
	t.Setenv("ZIMSHELF_DATA_DIR", "/ignored")
	t.Setenv("ZIMSHELF_DB_PATH", "/tmp/custom.db")
	t.Setenv("ZIMSHELF_LEGACY_PATH", "/tmp/objectbox.db")

	settings, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", settings.DBPath)
	assert.Equal(t, "/tmp/objectbox.db", settings.LegacyPath)
}

func TestNewLogLevel(t *testing.T) {
	t.Setenv("ZIMSHELF_LOG_LEVEL", "DEBUG")

	settings, err := New()
	require.NoError(t, err)
	assert.Equal(t, "debug", settings.LogLevel)
	assert.Equal(t, zerolog.DebugLevel, settings.Level())
}

func TestNewInvalidLogLevel(t *testing.T) {
	t.Setenv("ZIMSHELF_LOG_LEVEL", "loud")

	_, err := New()
	assert.Error(t, err)
}
