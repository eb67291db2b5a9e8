package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Web      WebConfig
	Database DatabaseConfig
	Library  LibraryConfig
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins besides localhost
	Domain         string   // public base URL used to render photo links (e.g., https://photos.example.com)
}

// PhotoURL returns an OSC 8 hyperlink for terminal emulators (iTerm2, etc.)
// Displays the ID but makes it clickable to open the photo via the API
// Returns empty string if Domain is not set
func (c *WebConfig) PhotoURL(id string) string {
	if c.Domain == "" {
		return ""
	}
	url := strings.TrimRight(c.Domain, "/") + "/api/v1/photos/" + id
	// OSC 8 hyperlink format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	return "\x1b]8;;" + url + "\x1b\\" + id + "\x1b]8;;\x1b\\"
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, empty keeps the library in memory only
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LibraryConfig struct {
	SeedPath           string        // YAML seed loaded on start when no database is configured
	VerifyInterval     time.Duration // how often the index is checked against the store (default 10m)
	SuggestLimit       int           // default number of face suggestions (default 5)
	SuggestMaxDistance float64       // maximum cosine distance for face suggestions (default 0.5)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("30s", "5m").
// Returns the default value if the env var is unset, empty, or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envList splits a comma separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() *Config {
	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "0.0.0.0"
	}

	return &Config{
		Web: WebConfig{
			Host:           host,
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			Domain:         os.Getenv("WEB_DOMAIN"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Library: LibraryConfig{
			SeedPath:           os.Getenv("LIBRARY_SEED"),
			VerifyInterval:     envDuration("LIBRARY_VERIFY_INTERVAL", 10*time.Minute),
			SuggestLimit:       envInt("LIBRARY_SUGGEST_LIMIT", 5),
			SuggestMaxDistance: envFloat("LIBRARY_SUGGEST_MAX_DISTANCE", 0.5),
		},
	}
}
