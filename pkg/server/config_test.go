package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 6282, cfg.Port)
	require.Equal(t, 100*time.Millisecond, cfg.TickInterval())
	require.Equal(t, "The Foyer", cfg.EntryRoom)
	require.Equal(t, 1024, cfg.MaxOutputBacklog)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Port, cfg.Port)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: 7000\ntick_ms: 50\nlog_level: debug\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Port)
	require.Equal(t, 50*time.Millisecond, cfg.TickInterval())
	require.Equal(t, "debug", cfg.LogLevel)
	// Unset keys keep their defaults.
	require.Equal(t, "The Foyer", cfg.EntryRoom)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: -1\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
