package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFrom(vars map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: vars})
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := parseFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.True(t, filepath.IsAbs(cfg.TempDir))
	assert.Equal(t, "temp_downloads", filepath.Base(cfg.TempDir))
	assert.Equal(t, "wizard_secret_key", cfg.SessionSecret)
	assert.Equal(t, time.Hour, cfg.MaxAge)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 5*time.Minute, cfg.HeartbeatInterval)
	assert.Equal(t, "yt-dlp", cfg.YTDLPPath)
	assert.Equal(t, "ytdlp", cfg.ProbeBackend)
	assert.Empty(t, cfg.ArchiveURL)

	u, err := cfg.archiveURL()
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestConfigOverrides(t *testing.T) {
	cfg, err := parseFrom(map[string]string{
		"LISTEN_ADDR":      "127.0.0.1:8080",
		"TEMP_DIR":         "/srv/wizard",
		"MAX_AGE":          "30m",
		"CLEANUP_INTERVAL": "10m",
		"PROBE_BACKEND":    "native",
		"ARCHIVE_URL":      "b2://key:secret@bucket",
		"DISCORD_TOKEN":    "token",
		"PUBLIC_URL":       "https://wiz.example",
	})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "/srv/wizard", cfg.TempDir)
	assert.Equal(t, 30*time.Minute, cfg.MaxAge)
	assert.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, "native", cfg.ProbeBackend)

	u, err := cfg.archiveURL()
	require.NoError(t, err)
	assert.Equal(t, "b2", u.Scheme)
	assert.Equal(t, "bucket", u.Hostname())
}

func TestConfigErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad backend":       {"PROBE_BACKEND": "python"},
		"bad duration":      {"MAX_AGE": "soon"},
		"zero max age":      {"MAX_AGE": "0s"},
		"negative interval": {"CLEANUP_INTERVAL": "-1m"},
		"token without url": {"DISCORD_TOKEN": "token"},
		"archive no scheme": {"ARCHIVE_URL": "/var/lib/archive"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseFrom(vars)
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("chatty"))
}
