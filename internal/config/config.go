// Package config loads the core's JSON configuration file, the same
// ambient-configuration shape the rest of this dependency pack reaches
// for (encoding/json over in-code defaults) instead of a config
// framework.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the on-disk configuration for a wallet daemon process.
type Config struct {
	// Database connection for the persisted wallet store.
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_ssl_mode"`
	DBMaxConns int32  `json:"db_max_conns"`

	// Event stream.
	ListenAddrs []string `json:"listen_addrs"`
	EventTopic  string   `json:"event_topic"`

	// Logging.
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Pool identity this wallet scans.
	PoolID string `json:"pool_id"`
}

// Default returns the baseline configuration; every field a caller
// omits from a config file keeps its default value.
func Default() *Config {
	return &Config{
		DBHost:      "localhost",
		DBPort:      5432,
		DBUser:      "shield",
		DBName:      "shield",
		DBSSLMode:   "disable",
		DBMaxConns:  10,
		ListenAddrs: []string{"/ip4/0.0.0.0/tcp/9100"},
		EventTopic:  "shield/events/v1",
		LogLevel:    "info",
	}
}

// Load reads a JSON config file at path, overlaying it onto Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}
