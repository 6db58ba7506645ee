package main

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr        string        `env:"LISTEN_ADDR" envDefault:":5000"`
	TempDir           string        `env:"TEMP_DIR" envDefault:"./temp_downloads"`
	SessionSecret     string        `env:"SESSION_SECRET" envDefault:"wizard_secret_key"`
	MaxAge            time.Duration `env:"MAX_AGE" envDefault:"1h"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"5m"`
	YTDLPPath         string        `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	ProbeBackend      string        `env:"PROBE_BACKEND" envDefault:"ytdlp"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`

	// ArchiveURL selects an archive destination, empty disables it.
	ArchiveURL string `env:"ARCHIVE_URL"`

	DiscordToken string `env:"DISCORD_TOKEN"`
	PublicURL    string `env:"PUBLIC_URL"`
}

func loadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parsing env: %w", err)
	}

	switch cfg.ProbeBackend {
	case "ytdlp", "native":
	default:
		return Config{}, fmt.Errorf("PROBE_BACKEND must be ytdlp or native, got %q", cfg.ProbeBackend)
	}
	if cfg.MaxAge <= 0 {
		return Config{}, fmt.Errorf("MAX_AGE must be positive, got %s", cfg.MaxAge)
	}
	if cfg.CleanupInterval <= 0 {
		return Config{}, fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", cfg.CleanupInterval)
	}
	if cfg.DiscordToken != "" && cfg.PublicURL == "" {
		return Config{}, fmt.Errorf("PUBLIC_URL is required when DISCORD_TOKEN is set")
	}
	if _, err := cfg.archiveURL(); err != nil {
		return Config{}, err
	}

	cfg.TempDir, err = filepath.Abs(cfg.TempDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolving TEMP_DIR: %w", err)
	}

	return cfg, nil
}

func (cfg Config) archiveURL() (*url.URL, error) {
	if cfg.ArchiveURL == "" {
		return nil, nil
	}
	u, err := url.Parse(cfg.ArchiveURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ARCHIVE_URL: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("ARCHIVE_URL needs a scheme (fs, b2, rclone+webdav)")
	}
	return u, nil
}
