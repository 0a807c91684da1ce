package config

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "najdeno.sqlite3", cfg.DBPath)
	assert.Equal(t, "admin@najdeno.local", cfg.AdminEmail)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
	assert.False(t, cfg.NoSeed)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("NAJDENO_ADDR", ":9000")
	t.Setenv("NAJDENO_DB", "/data/board.db")
	t.Setenv("NAJDENO_LOG_LEVEL", "debug")
	t.Setenv("NAJDENO_STORE_TIMEOUT", "3s")

	cfg, err := Load(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/data/board.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("NAJDENO_ADDR", ":9000")

	cfg, err := Load([]string{"-a", ":7000", "-u", "boss@uni.edu", "-no-seed", "-log-level", "warn"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "boss@uni.edu", cfg.AdminEmail)
	assert.True(t, cfg.NoSeed)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load([]string{"-h"}, io.Discard)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = Load([]string{"extra"}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"-log-level", "loud"}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"-admin", "admin"}, io.Discard)
	assert.Error(t, err)

	t.Setenv("NAJDENO_STORE_TIMEOUT", "soon")
	_, err = Load(nil, io.Discard)
	assert.Error(t, err)
}
