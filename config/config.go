package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from an optional YAML file
// (STICKFINITY_CONFIG), overridden by environment variables; a .env file is
// loaded first if present.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	UploadsDir  string `yaml:"uploads_dir"`
	PublicURL   string `yaml:"public_url"`
	LogLevel    string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Addr:       ":8080",
		UploadsDir: "./uploads",
		PublicURL:  "http://localhost:8080",
		LogLevel:   "info",
	}
}

// Load assembles the configuration. A missing .env is fine; a missing config
// file is fine; a missing database URL is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("STICKFINITY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	override(&cfg.Addr, "STICKFINITY_ADDR")
	override(&cfg.DatabaseURL, "STICKFINITY_DATABASE_URL")
	override(&cfg.UploadsDir, "STICKFINITY_UPLOADS_DIR")
	override(&cfg.PublicURL, "STICKFINITY_PUBLIC_URL")
	override(&cfg.LogLevel, "STICKFINITY_LOG_LEVEL")

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL not configured (set STICKFINITY_DATABASE_URL)")
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	return &cfg, nil
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
