package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZenFlux/rollup-toolkit/pkg/faults"
	"github.com/ZenFlux/rollup-toolkit/pkg/toolkit"
)

// unsetenv removes keys for the duration of the test
func unsetenv(t *testing.T, keys ...string) {
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "DEVELOPMENT", "PRODUCTION", "MANIFEST", "CLEAR_SCREEN", "LOG_LEVEL")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "toolkit.star", cfg.Manifest)
	assert.True(t, cfg.ClearScreen)
	assert.Equal(t, toolkit.Production, cfg.Mode())
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel())
}

func TestLoadDevelopment(t *testing.T) {
	unsetenv(t, "PRODUCTION", "MANIFEST", "LOG_LEVEL")
	t.Setenv("DEVELOPMENT", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, toolkit.Development, cfg.Mode())
}

func TestLoadRejectsBothModes(t *testing.T) {
	unsetenv(t, "MANIFEST", "LOG_LEVEL")
	t.Setenv("DEVELOPMENT", "true")
	t.Setenv("PRODUCTION", "true")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, faults.CannotSetBothDevelopmentAndProduction, faults.CodeOf(err))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	unsetenv(t, "DEVELOPMENT", "PRODUCTION", "MANIFEST", "LOG_LEVEL")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MANIFEST=build.star\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MANIFEST") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "build.star", cfg.Manifest)
}

func TestLoadToml(t *testing.T) {
	dir := t.TempDir()
	unsetenv(t, "DEVELOPMENT", "PRODUCTION", "MANIFEST", "CLEAR_SCREEN", "LOG_LEVEL")

	content := "manifest = \"custom.star\"\nclear_screen = false\n\n[log]\nlevel = \"debug\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "toolkit.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom.star", cfg.Manifest)
	assert.False(t, cfg.ClearScreen)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())

	t.Setenv("MANIFEST", "env.star")
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "env.star", cfg.Manifest, "the environment overrides toolkit.toml")
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Settings{Manifest: "toolkit.star"}
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())

	cfg.Log.Level = "warn"
	assert.NoError(t, cfg.Validate())
}
