package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
type Config struct {
	ServerPort        int
	CouchbaseHost     string
	LogLevel          string
	ConnectPerRequest bool     // open a fresh bucket connection for every request
	RefreshSchedule   string   // cron schedule of the live feed, empty disables it
	AllowedOrigins    []string // CORS origins
	StaticDir         string
}

// Load loads configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	portStr := getEnv("PORT", "6767")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}

	perRequest, err := strconv.ParseBool(getEnv("CONNECT_PER_REQUEST", "false"))
	if err != nil {
		return nil, fmt.Errorf("CONNECT_PER_REQUEST: %w", err)
	}

	return &Config{
		ServerPort:        port,
		CouchbaseHost:     getEnv("COUCHBASE_HOST", "couchbase.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		ConnectPerRequest: perRequest,
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", "@every 15s"),
		AllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		StaticDir:         getEnv("STATIC_DIR", "./static"),
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
