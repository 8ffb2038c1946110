// Package config provides configuration types for unichat.
package config

import "time"

// Config represents the main unichat configuration.
type Config struct {
	Log       LogConfig                 `toml:"log" yaml:"log"`
	Defaults  DefaultsConfig            `toml:"defaults" yaml:"defaults"`
	Providers map[string]ProviderConfig `toml:"providers" yaml:"providers"`
	Models    []ModelEntry              `toml:"models" yaml:"models"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // trace, debug, info, warn, error, off
	Format string `toml:"format" yaml:"format"` // console, json
}

// DefaultsConfig holds per-request defaults callers may override.
type DefaultsConfig struct {
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	Stream      bool    `toml:"stream" yaml:"stream"`
}

// ProviderConfig holds credentials and endpoint settings for one provider.
type ProviderConfig struct {
	APIKey  string        `toml:"api_key" yaml:"api_key"`
	BaseURL string        `toml:"base_url" yaml:"base_url"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
}

// ModelEntry adds a model to the registry or overrides a built-in one.
type ModelEntry struct {
	Name        string   `toml:"name" yaml:"name"`
	Provider    string   `toml:"provider" yaml:"provider"`
	MaxTokens   int      `toml:"max_tokens" yaml:"max_tokens"`
	SystemMode  string   `toml:"system_mode" yaml:"system_mode"` // merge, relabel
	NoTools     bool     `toml:"no_tools" yaml:"no_tools"`
	Temperature *float64 `toml:"temperature" yaml:"temperature"` // fixed temperature
	Reasoning   bool     `toml:"reasoning" yaml:"reasoning"`
}
