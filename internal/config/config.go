// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is read when no explicit path is given and the file exists
const DefaultConfigFile = "ebookgen.toml"

// Store backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Models names the model used for each generation kind
type Models struct {
	Outline string `toml:"outline"`
	Chapter string `toml:"chapter"`
	Image   string `toml:"image"`
	Suggest string `toml:"suggest"`
}

// Duration reads "90s" style values from TOML
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds the application configuration
type Config struct {
	Port       string `toml:"port"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	StaticDir  string `toml:"static_dir"`
	DebugMode  bool   `toml:"debug_mode"`
	LogJournal bool   `toml:"log_journal"`

	StoreBackend string `toml:"store_backend"`

	LLMProvider string `toml:"llm_provider"`
	LLMBaseURL  string `toml:"llm_base_url"`
	Models      Models `toml:"models"`

	// AmbientAPIKey comes from the deployment environment and takes
	// precedence over a key entered by the user. Never read from TOML.
	AmbientAPIKey    string `toml:"-"`
	CredentialSecret string `toml:"-"`

	DefaultLanguage    string   `toml:"default_language"`
	GenerationTimeout  Duration `toml:"generation_timeout"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	CORSOrigins        []string `toml:"cors_origins"`
}

// Timeout returns the generation timeout as a time.Duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.GenerationTimeout)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:         "8080",
		DataDir:      "data",
		LogDir:       "logs",
		StaticDir:    "static",
		StoreBackend: BackendFile,
		LLMProvider:  "google",
		Models: Models{
			Outline: "gemini-3-flash-preview",
			Chapter: "gemini-3-pro-preview",
			Image:   "gemini-2.5-flash-image",
			Suggest: "gemini-3-flash-preview",
		},
		DefaultLanguage:    "pt",
		GenerationTimeout:  Duration(3 * time.Minute),
		RateLimitPerMinute: 30,
		CORSOrigins:        []string{"*"},
	}
}

// Load builds the configuration: defaults, then the TOML file at path (or
// DefaultConfigFile when path is empty and it exists), then .env and the
// process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.StaticDir = getEnv("STATIC_DIR", c.StaticDir)
	c.DebugMode = getEnvBool("DEBUG_MODE", c.DebugMode)
	c.LogJournal = getEnvBool("LOG_JOURNAL", c.LogJournal)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.LLMProvider = getEnv("LLM_PROVIDER", c.LLMProvider)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.Models.Outline = getEnv("OUTLINE_MODEL", c.Models.Outline)
	c.Models.Chapter = getEnv("CHAPTER_MODEL", c.Models.Chapter)
	c.Models.Image = getEnv("IMAGE_MODEL", c.Models.Image)
	c.Models.Suggest = getEnv("SUGGEST_MODEL", c.Models.Suggest)
	c.AmbientAPIKey = getEnv("API_KEY", getEnv("GEMINI_API_KEY", c.AmbientAPIKey))
	c.CredentialSecret = getEnv("CREDENTIAL_SECRET", c.CredentialSecret)
	c.DefaultLanguage = getEnv("DEFAULT_LANGUAGE", c.DefaultLanguage)
	c.GenerationTimeout = Duration(getEnvDuration("GENERATION_TIMEOUT", time.Duration(c.GenerationTimeout)))
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = strings.Split(origins, ",")
	}
}

// Validate rejects values the application cannot run with
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	switch c.LLMProvider {
	case "google", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	switch c.DefaultLanguage {
	case "en", "pt":
	default:
		return fmt.Errorf("unsupported default language %q", c.DefaultLanguage)
	}
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}
	return nil
}

// EnsureDirs creates the data and log directories
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// Redacted renders the configuration as TOML. Secrets are never rendered;
// only their presence is reported.
func (c *Config) Redacted() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	var b strings.Builder
	b.Write(data)
	fmt.Fprintf(&b, "\n# ambient api key set: %t\n", c.AmbientAPIKey != "")
	fmt.Fprintf(&b, "# credential secret set: %t\n", c.CredentialSecret != "")
	return b.String(), nil
}
