// Package config handles unichat configuration loading and management.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout is the per-request deadline applied when a provider has no
// timeout configured. Long generations routinely exceed a minute.
const DefaultTimeout = 10 * time.Minute

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Defaults: DefaultsConfig{
			Temperature: 1.0,
			Stream:      true,
		},
		Providers: make(map[string]ProviderConfig),
	}
}

// Load loads the configuration from the given path. The format follows the
// file extension: .yaml/.yml for YAML, anything else for TOML.
// If the file doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(configPath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	cfg.applyEnv()

	return cfg, nil
}

// Save saves the configuration to the given path.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if isYAML(configPath) {
		enc := yaml.NewEncoder(&buf)
		if err := enc.Encode(c); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	} else if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}

	return os.WriteFile(configPath, buf.Bytes(), 0600)
}

// Provider returns the settings for one provider. A missing API key falls
// back to envKey, then to UNICHAT_API_KEY; a missing base URL to
// UNICHAT_BASE_URL; a missing timeout to DefaultTimeout.
func (c *Config) Provider(name, envKey string) ProviderConfig {
	p := c.Providers[strings.ToLower(name)]
	if p.APIKey == "" && envKey != "" {
		p.APIKey = os.Getenv(envKey)
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv("UNICHAT_API_KEY")
	}
	if p.BaseURL == "" {
		p.BaseURL = os.Getenv("UNICHAT_BASE_URL")
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return p
}

// applyEnv overlays environment variables that take precedence over the file.
func (c *Config) applyEnv() {
	if level := os.Getenv("UNICHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("UNICHAT_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
