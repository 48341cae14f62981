// Package config resolves the console's settings from the environment, with
// explicit overrides from command-line flags taking precedence.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by Load.
const (
	EnvAPIURL    = "SWITCHBOARD_API_URL"
	EnvHome      = "SWITCHBOARD_HOME"
	EnvAddr      = "SWITCHBOARD_ADDR"
	EnvLogLevel  = "SWITCHBOARD_LOG_LEVEL"
	EnvLogFormat = "SWITCHBOARD_LOG_FORMAT"
)

// Defaults used when neither an override nor the environment sets a value.
const (
	DefaultAPIURL    = "http://localhost:8000/api/v1"
	DefaultAddr      = "127.0.0.1:3000"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

type Config struct {
	// APIURL is the base URL of the gateway HTTP API.
	APIURL string
	// Home is the directory holding the console's local state.
	Home string
	// DBPath is the bbolt database holding the sealed session token.
	DBPath string
	// KeyPath is the wrapping key file sealing the token at rest.
	KeyPath string
	// Addr is the listen address of the local console server.
	Addr string
	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// LogFormat is text or json.
	LogFormat string
}

// Overrides carries values given explicitly on the command line. A nil
// field means "not set" and falls back to the environment.
type Overrides struct {
	APIURL    *string
	Home      *string
	Addr      *string
	LogLevel  *string
	LogFormat *string
}

// Load resolves the configuration and makes sure the home directory exists.
func Load(o Overrides) (*Config, error) {
	home := pick(o.Home, EnvHome, "")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		home = filepath.Join(userHome, ".switchboard")
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create switchboard home: %w", err)
	}

	apiURL := strings.TrimRight(pick(o.APIURL, EnvAPIURL, DefaultAPIURL), "/")
	if err := validateURL(apiURL); err != nil {
		return nil, err
	}

	level := strings.ToLower(pick(o.LogLevel, EnvLogLevel, DefaultLogLevel))
	if _, err := parseLevel(level); err != nil {
		return nil, err
	}
	format := strings.ToLower(pick(o.LogFormat, EnvLogFormat, DefaultLogFormat))
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid %s %q (expected text or json)", EnvLogFormat, format)
	}

	return &Config{
		APIURL:    apiURL,
		Home:      home,
		DBPath:    filepath.Join(home, "console.db"),
		KeyPath:   filepath.Join(home, "console.key"),
		Addr:      pick(o.Addr, EnvAddr, DefaultAddr),
		LogLevel:  level,
		LogFormat: format,
	}, nil
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid %s %q (expected debug, info, warn or error)", EnvLogLevel, s)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvAPIURL, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", EnvAPIURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", EnvAPIURL, raw)
	}
	return nil
}

func pick(override *string, env, def string) string {
	if override != nil && *override != "" {
		return *override
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}
