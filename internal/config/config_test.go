// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATA_DIR", "LOG_DIR", "STATIC_DIR", "DEBUG_MODE", "LOG_JOURNAL",
		"STORE_BACKEND", "LLM_PROVIDER", "LLM_BASE_URL", "OUTLINE_MODEL",
		"CHAPTER_MODEL", "IMAGE_MODEL", "SUGGEST_MODEL", "API_KEY", "GEMINI_API_KEY",
		"CREDENTIAL_SECRET", "DEFAULT_LANGUAGE", "GENERATION_TIMEOUT",
		"RATE_LIMIT_PER_MINUTE", "CORS_ORIGINS", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
	assert.Equal(t, "pt", cfg.DefaultLanguage)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Models.Chapter)
	assert.Equal(t, 3*time.Minute, cfg.Timeout())
	assert.Empty(t, cfg.AmbientAPIKey)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
port = "9090"
store_backend = "sqlite"
default_language = "en"
generation_timeout = "45s"

[models]
chapter = "gemini-custom"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "environment overrides the file")
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "gemini-custom", cfg.Models.Chapter)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Models.Outline)
	assert.Equal(t, 45*time.Second, cfg.Timeout())
	assert.Equal(t, "from-env", cfg.AmbientAPIKey)
}

func TestAPIKeyPrecedence(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("API_KEY", "primary")
	t.Setenv("GEMINI_API_KEY", "secondary")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.AmbientAPIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.StoreBackend = "redis" }},
		{"provider", func(c *Config) { c.LLMProvider = "unknown" }},
		{"language", func(c *Config) { c.DefaultLanguage = "fr" }},
		{"port", func(c *Config) { c.Port = "" }},
		{"timeout", func(c *Config) { c.GenerationTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.LogDir = filepath.Join(root, "logs")
	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.LogDir)
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.AmbientAPIKey = "super-secret-key"
	cfg.CredentialSecret = "sealing-secret"

	out, err := cfg.Redacted()
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret-key")
	assert.NotContains(t, out, "sealing-secret")
	assert.Contains(t, out, "ambient api key set: true")
	assert.Contains(t, out, "store_backend")
}
