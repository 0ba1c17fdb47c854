package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIURL              = "http://localhost:8000/api"
	defaultLeaderboardInterval = 30 * time.Second
	defaultHTTPTimeout         = 30 * time.Second
)

// Config holds all configuration for the client and the dashboard.
type Config struct {
	// APIURL is the backend base URL, e.g. http://localhost:8000/api.
	APIURL string

	// StorePath is the SQLite file holding persisted credentials.
	StorePath string

	// LeaderboardInterval is the delay between leaderboard refreshes.
	LeaderboardInterval time.Duration

	// HTTPTimeout bounds every backend call.
	HTTPTimeout time.Duration

	// Port is the dashboard HTTP port.
	Port int

	// LogLevel is the minimum level written by NewLogger.
	LogLevel slog.Level
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory, if present, is loaded
// first; variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	apiURL := firstEnv("KARMAFEED_API_URL", "VITE_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	apiURL = strings.TrimRight(apiURL, "/")
	if u, err := url.Parse(apiURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid KARMAFEED_API_URL %q", apiURL)
	}

	storePath := os.Getenv("KARMAFEED_STORE")
	if storePath == "" {
		storePath = defaultStorePath()
	}

	interval, err := durationEnv("KARMAFEED_LEADERBOARD_INTERVAL", defaultLeaderboardInterval)
	if err != nil {
		return nil, err
	}

	timeout, err := durationEnv("KARMAFEED_HTTP_TIMEOUT", defaultHTTPTimeout)
	if err != nil {
		return nil, err
	}

	port := 3000
	if p := os.Getenv("PORT"); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	level := slog.LevelInfo
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		if err := level.UnmarshalText([]byte(l)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	return &Config{
		APIURL:              apiURL,
		StorePath:           storePath,
		LeaderboardInterval: interval,
		HTTPTimeout:         timeout,
		Port:                port,
		LogLevel:            level,
	}, nil
}

// NewLogger returns a JSON logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: c.LogLevel,
	}))
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "karmafeed", "session.db")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
