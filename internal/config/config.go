package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultTimestampLayout = "1/2/2006, 3:04:05 PM"

// Config keeps runtime settings for the tracker.
type Config struct {
	TelegramToken   string
	DatabaseURL     string
	ReportInterval  time.Duration
	Location        *time.Location
	TimestampLayout string
}

type fileConfig struct {
	TelegramToken       string `yaml:"telegram_token"`
	DatabaseURL         string `yaml:"database_url"`
	ReportIntervalHours int    `yaml:"report_interval_hours"`
	Timezone            string `yaml:"timezone"`
	TimestampLayout     string `yaml:"timestamp_layout"`
}

// Load reads the optional YAML file named by CONFIG_FILE, then lets environment
// variables override it. A missing file is not an error.
func Load() (Config, error) {
	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		loaded, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	cfg := Config{
		TelegramToken:   firstNonEmpty(os.Getenv("TELEGRAM_TOKEN"), file.TelegramToken),
		DatabaseURL:     firstNonEmpty(os.Getenv("DATABASE_URL"), file.DatabaseURL),
		TimestampLayout: firstNonEmpty(os.Getenv("TIMESTAMP_LAYOUT"), file.TimestampLayout),
	}

	cfg.ReportInterval = time.Duration(file.ReportIntervalHours) * time.Hour
	if raw := strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS")); raw != "" {
		cfg.ReportInterval = parseInterval(raw)
	}
	if cfg.ReportInterval < 0 {
		cfg.ReportInterval = 0
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "multi_timer.db"
	}
	if cfg.TimestampLayout == "" {
		cfg.TimestampLayout = defaultTimestampLayout
	}

	cfg.Location = time.Local
	if tz := firstNonEmpty(os.Getenv("TIMEZONE"), file.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var file fileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return file, fmt.Errorf("parse config yaml: %w", err)
	}
	return file, nil
}

// parseInterval reads a whole number of hours; anything else disables the job.
func parseInterval(raw string) time.Duration {
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
