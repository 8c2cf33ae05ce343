// Package config loads the server configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"forecast_backend/internal/platform/db"
	"forecast_backend/internal/platform/redis"
)

const (
	SourceCSV = "csv"
	SourceDB  = "db"
)

// Config is the server configuration.
type Config struct {
	Port               string
	SeriesSource       string
	DataDir            string
	DB                 db.Config
	Redis              redis.Config
	RateLimitPerMinute int
	CORSAllowOrigins   []string
	JWTSecret          string
}

// LoadConfig reads the configuration from environment variables, applying defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		SeriesSource:     getEnv("SERIES_SOURCE", SourceCSV),
		DataDir:          getEnv("DATA_DIR", "./data"),
		DB:               db.LoadConfigFromEnv(),
		Redis:            redis.LoadConfigFromEnv(),
		CORSAllowOrigins: splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
		JWTSecret:        os.Getenv("JWT_SECRET"),
	}

	switch cfg.SeriesSource {
	case SourceCSV, SourceDB:
	default:
		return Config{}, fmt.Errorf("SERIES_SOURCE must be %q or %q, got %q", SourceCSV, SourceDB, cfg.SeriesSource)
	}

	limit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil || limit < 1 {
		return Config{}, errors.New("RATE_LIMIT_PER_MINUTE must be a positive integer")
	}
	cfg.RateLimitPerMinute = limit

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
