// Package config layers this server's settings from defaults, an optional
// JSON file, and the process environment: a .env file loaded via
// github.com/joho/godotenv and struct-tag-driven environment overrides via
// github.com/caarlos0/env/v11 cover the deployment concerns the spec
// leaves to external collaborators (§1).
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the tunables of the event loop and the snapshot manager:
// the listening port (6379 by default), ring and send-buffer sizes, and
// the snapshot path. LogLevel is loaded and saved with the rest, but
// nothing else in this module reads it.
type Config struct {
	Port         int    `json:"port"          env:"RESPKV_PORT"`
	RingSize     int    `json:"ring_size"      env:"RESPKV_RING_SIZE"`
	SendBufSize  int    `json:"send_buf_size"  env:"RESPKV_SEND_BUF_SIZE"`
	SnapshotPath string `json:"snapshot_path"  env:"RESPKV_SNAPSHOT_PATH"`
	LogLevel     string `json:"log_level"      env:"RESPKV_LOG_LEVEL"`
}

// DefaultConfig returns the out-of-the-box configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         6379,
		RingSize:     64 * 1024,
		SendBufSize:  1 << 20,
		SnapshotPath: "dump.resp",
		LogLevel:     "info",
	}
}

// Load builds a Config by starting from the defaults, overlaying a JSON
// file at path if one exists, loading a .env file into the process
// environment if present, and finally applying any RESPKV_* environment
// variables. Each tier overrides the one before it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	return cfg, nil
}

// Save persists the configuration as indented JSON, so
// `respkv-server -save-config` round-trips cleanly.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
