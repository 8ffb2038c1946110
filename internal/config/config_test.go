package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Defaults.Temperature)
	assert.True(t, cfg.Defaults.Stream)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotNil(t, cfg.Providers)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "unichat.toml", `
[log]
level = "debug"

[defaults]
temperature = 0.3

[providers.anthropic]
api_key = "sk-ant"
timeout = "90s"

[providers.grok]
base_url = "http://localhost:9000/v1"

[[models]]
name = "my-local"
provider = "openai"
max_tokens = 2048

[[models]]
name = "o3"
system_mode = "merge"
temperature = 1.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 0.3, cfg.Defaults.Temperature)
	assert.True(t, cfg.Defaults.Stream, "unset keys keep their defaults")

	assert.Equal(t, "sk-ant", cfg.Providers["anthropic"].APIKey)
	assert.Equal(t, 90*time.Second, cfg.Providers["anthropic"].Timeout)
	assert.Equal(t, "http://localhost:9000/v1", cfg.Providers["grok"].BaseURL)

	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "my-local", cfg.Models[0].Name)
	assert.Equal(t, 2048, cfg.Models[0].MaxTokens)
	require.NotNil(t, cfg.Models[1].Temperature)
	assert.Equal(t, 1.0, *cfg.Models[1].Temperature)
	assert.Equal(t, "merge", cfg.Models[1].SystemMode)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "unichat.yaml", `
log:
  format: json
defaults:
  stream: false
providers:
  deepseek:
    api_key: ds-key
    timeout: 2m
models:
  - name: deepseek-coder
    provider: deepseek
    no_tools: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Defaults.Stream)
	assert.Equal(t, 1.0, cfg.Defaults.Temperature)
	assert.Equal(t, "ds-key", cfg.Providers["deepseek"].APIKey)
	assert.Equal(t, 2*time.Minute, cfg.Providers["deepseek"].Timeout)
	require.Len(t, cfg.Models, 1)
	assert.True(t, cfg.Models[0].NoTools)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	_, err := Load(writeFile(t, "bad.toml", "[log\nlevel ="))
	assert.Error(t, err)
}

func TestProviderFallsBackToEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("UNICHAT_API_KEY", "generic")
	t.Setenv("MISTRAL_API_KEY", "")
	t.Setenv("UNICHAT_BASE_URL", "http://gateway.local/v1")

	cfg := Default()
	cfg.Providers["anthropic"] = ProviderConfig{APIKey: "from-file", Timeout: time.Minute}

	assert.Equal(t, "from-file", cfg.Provider("anthropic", "ANTHROPIC_API_KEY").APIKey)
	assert.Equal(t, time.Minute, cfg.Provider("anthropic", "ANTHROPIC_API_KEY").Timeout)

	openai := cfg.Provider("OpenAI", "OPENAI_API_KEY")
	assert.Equal(t, "from-env", openai.APIKey)
	assert.Equal(t, DefaultTimeout, openai.Timeout)

	assert.Equal(t, "http://gateway.local/v1", openai.BaseURL)

	assert.Equal(t, "generic", cfg.Provider("mistral", "MISTRAL_API_KEY").APIKey)
}

func TestEnvironmentOverridesLogSettings(t *testing.T) {
	t.Setenv("UNICHAT_LOG_LEVEL", "warn")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestSaveAndReload(t *testing.T) {
	for _, name := range []string{"out.toml", "out.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := Default()
			cfg.Log.Level = "error"
			cfg.Providers["gemini"] = ProviderConfig{APIKey: "g-key", BaseURL: "http://proxy/v1"}
			cfg.Models = []ModelEntry{{Name: "gemini-exp", Provider: "gemini", MaxTokens: 1000}}
			require.NoError(t, cfg.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "error", got.Log.Level)
			assert.Equal(t, "g-key", got.Providers["gemini"].APIKey)
			assert.Equal(t, "http://proxy/v1", got.Providers["gemini"].BaseURL)
			require.Len(t, got.Models, 1)
			assert.Equal(t, 1000, got.Models[0].MaxTokens)
		})
	}
}
