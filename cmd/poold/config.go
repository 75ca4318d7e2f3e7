// config.go - Configuration management for the pool daemon
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
)

// Config represents the daemon configuration
type Config struct {
	// HTTP
	ListenAddr string `json:"listen_addr"`

	// File paths
	JournalPath string `json:"journal_path"`
	KeyDir      string `json:"key_dir"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Accumulator policy
	RootHistorySize int    `json:"root_history_size"`
	StalenessBound  uint64 `json:"staleness_bound"`

	// Pool policy
	CommitCooldownSeconds int `json:"commit_cooldown_seconds"`

	// Principals, decimal field elements
	Publisher string `json:"publisher"`
	Pauser    string `json:"pauser"`
	Admin     string `json:"admin"`

	// Assets authorized at boot, decimal asset addresses
	Assets       []string `json:"assets"`
	EnableNative bool     `json:"enable_native"`

	// Read model
	AutoPublishRoots    bool `json:"auto_publish_roots"`
	SyncIntervalSeconds int  `json:"sync_interval_seconds"`
	SaveIntervalSeconds int  `json:"save_interval_seconds"`

	// Rate limiting per client
	RateLimitBurst     int `json:"rate_limit_burst"`
	RateLimitPerMinute int `json:"rate_limit_per_minute"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:            ":8473",
		JournalPath:           "journal.json",
		KeyDir:                "keys",
		LogLevel:              "info",
		LogFile:               "poold.log",
		RootHistorySize:       100,
		StalenessBound:        1000,
		CommitCooldownSeconds: 5,
		Publisher:             "1",
		Pauser:                "2",
		Admin:                 "3",
		Assets:                nil,
		EnableNative:          true,
		AutoPublishRoots:      true,
		SyncIntervalSeconds:   5,
		SaveIntervalSeconds:   30,
		RateLimitBurst:        20,
		RateLimitPerMinute:    60,
	}
}

// LoadConfig loads configuration from file or creates default
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		var config Config
		if err := json.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
		return &config, nil
	}

	// Create default config and save it
	config := DefaultConfig()
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save default config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	if c.JournalPath == "" {
		return fmt.Errorf("journal_path must be set")
	}
	if c.RootHistorySize <= 0 {
		return fmt.Errorf("root_history_size must be positive")
	}
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive")
	}
	if c.SaveIntervalSeconds <= 0 {
		return fmt.Errorf("save_interval_seconds must be positive")
	}
	if c.RateLimitBurst <= 0 || c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	for _, field := range []struct{ name, value string }{
		{"publisher", c.Publisher},
		{"pauser", c.Pauser},
		{"admin", c.Admin},
	} {
		if _, err := parsePrincipal(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	for _, a := range c.Assets {
		if _, err := parsePrincipal(a); err != nil {
			return fmt.Errorf("asset %q: %w", a, err)
		}
	}
	return nil
}

// parsePrincipal parses a decimal field element string.
func parsePrincipal(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("not a decimal field element: %q", s)
	}
	return v, nil
}
