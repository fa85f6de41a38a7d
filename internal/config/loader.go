package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration values for the booking service. Values come
// from an optional YAML file, with environment variables taking precedence.
type Config struct {
	HTTPPort        int           `yaml:"http_port"`
	SQLiteDSN       string        `yaml:"sqlite_dsn"`
	CancelCutoff    time.Duration `yaml:"cancel_cutoff"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		HTTPPort:        8000,
		SQLiteDSN:       "file:booking.db?_foreign_keys=on",
		CancelCutoff:    time.Hour,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, then the YAML file at path if
// one is given, then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("BOOKING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("BOOKING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if cutoffValue := strings.TrimSpace(os.Getenv("BOOKING_CANCEL_CUTOFF")); cutoffValue != "" {
		cutoff, err := time.ParseDuration(cutoffValue)
		if err != nil || cutoff <= 0 {
			invalid = append(invalid, "BOOKING_CANCEL_CUTOFF")
		} else {
			cfg.CancelCutoff = cutoff
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("BOOKING_SHUTDOWN_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "BOOKING_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if level := strings.TrimSpace(os.Getenv("BOOKING_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, "http_port")
	}
	if strings.TrimSpace(cfg.SQLiteDSN) == "" {
		invalid = append(invalid, "sqlite_dsn")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
