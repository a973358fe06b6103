package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr             string
	DatabaseDriver   string
	DatabaseURL      string
	LogLevel         string
	LogFormat        string
	CORSAllowOrigins string
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		Addr:             getenv("USERS_API_ADDR", ":8000"),
		DatabaseDriver:   strings.ToLower(getenv("DATABASE_DRIVER", DriverPgx)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		LogLevel:         strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getenv("LOG_FORMAT", "json")),
		CORSAllowOrigins: getenv("CORS_ALLOW_ORIGINS", "*"),
		ShutdownTimeout:  10 * time.Second,
	}

	if raw := os.Getenv("SHUTDOWN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		if d < 0 {
			return Config{}, errors.New("SHUTDOWN_TIMEOUT must not be negative")
		}
		cfg.ShutdownTimeout = d
	}

	switch cfg.DatabaseDriver {
	case DriverPgx, DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for driver %q", cfg.DatabaseDriver)
		}
	case DriverSQLite:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = "users.db"
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("unknown LOG_LEVEL %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("unknown LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
