package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.json"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 2.0, cfg.BackoffBase)
	assert.Equal(t, 300, cfg.DefaultTimeout)
}

func TestSetPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.json")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Set("max_retries", "5"))
	assert.Equal(t, 5, cfg.MaxRetries)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.MaxRetries)
}

func TestSetTypeMismatchErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "overrides.json"))
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Set("max_retries", "not-a-number")
	assert.Error(t, err)
}

func TestSetUnknownKeyErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "overrides.json"))
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Set("nonexistent", "value")
	assert.Error(t, err)
}
