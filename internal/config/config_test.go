package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/resist/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 5*time.Second, cfg.DefaultBaseResist)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
locale: pt-BR
tick_interval: 250ms
hand_range_factor: 2
default_base_resist: 3s
redis:
  addr: localhost:6379
  db: 2
  ttl: 1h
sqlite:
  path: /tmp/journal.db
profiles:
  dir: ./profiles
state:
  dir: ./state
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "pt-BR", cfg.Locale)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 2.0, cfg.HandRangeFactor)
	assert.Equal(t, 3*time.Second, cfg.DefaultBaseResist)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "/tmp/journal.db", cfg.SQLite.Path)
	assert.Equal(t, "./profiles", cfg.Profiles.Dir)
	assert.Equal(t, "./state", cfg.State.Dir)

	// Untouched keys keep their defaults.
	assert.Equal(t, 5.0, cfg.SwallowedMultiplier)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "locale: pt-BR\nhttp:\n  addr: :9000\n")
	t.Setenv("RESIST_LOCALE", "en-US")
	t.Setenv("RESIST_HTTP_ADDR", ":9100")
	t.Setenv("RESIST_METRICS_ENABLED", "false")
	t.Setenv("RESIST_SWALLOWED_MULTIPLIER", "7.5")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en-US", cfg.Locale)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 7.5, cfg.SwallowedMultiplier)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "bogus: 1\n"},
		{"bad duration", "tick_interval: soon\n"},
		{"bad yaml", "locale: [\n"},
		{"zero tick", "tick_interval: 0s\n"},
		{"bad level", "log_level: loud\n"},
		{"mass below one", "max_mass_disadvantage: 0.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecode_EmptyDocument(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, config.Decode([]byte(""), &cfg))
	assert.Equal(t, config.Default(), cfg)
}
