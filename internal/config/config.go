package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/iptvcatalog/internal/constants"
	"github.com/cesargomez89/iptvcatalog/internal/logger"
)

// Config holds all application configuration
type Config struct {
	Port             string
	DBPath           string
	PlaylistURL      string
	PlaylistUsername string
	PlaylistPassword string
	PlaylistTimeout  time.Duration
	ImportOnStart    bool
	LogLevel         string
	LogFormat        string

	parseErrors []string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	c := &Config{
		Port:             getEnv("PORT", constants.DefaultPort),
		DBPath:           getEnv("DB_PATH", constants.DefaultDBPath),
		PlaylistURL:      getEnv("PLAYLIST_URL", constants.DefaultPlaylistURL),
		PlaylistUsername: getEnv("PLAYLIST_USERNAME", ""),
		PlaylistPassword: getEnv("PLAYLIST_PASSWORD", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	timeout := getEnv("PLAYLIST_TIMEOUT", constants.DefaultPlaylistTimeout.String())
	d, err := time.ParseDuration(timeout)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("PLAYLIST_TIMEOUT must be a duration like 90s or 2m, got: %s", timeout))
		d = constants.DefaultPlaylistTimeout
	}
	c.PlaylistTimeout = d

	importOnStart := getEnv("IMPORT_ON_START", "true")
	b, err := strconv.ParseBool(importOnStart)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("IMPORT_ON_START must be a boolean, got: %s", importOnStart))
		b = true
	}
	c.ImportOnStart = b

	return c
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	errors := append([]string(nil), c.parseErrors...)

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	// Validate DBPath
	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	// Validate PlaylistURL
	if c.PlaylistURL == "" {
		errors = append(errors, "PLAYLIST_URL cannot be empty")
	} else if u, err := url.Parse(c.PlaylistURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("PLAYLIST_URL is not a valid http(s) URL: %s", c.PlaylistURL))
	}

	// Validate PlaylistTimeout
	if c.PlaylistTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("PLAYLIST_TIMEOUT must be positive, got: %s", c.PlaylistTimeout))
	}

	// Validate LogLevel
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	// Credentials come in pairs
	if (c.PlaylistUsername == "") != (c.PlaylistPassword == "") {
		errors = append(errors, "PLAYLIST_USERNAME and PLAYLIST_PASSWORD must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
