package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved configuration shared by the CLI and the server.
//
// The Gemini key is taken from, in order: Vault, ai.apiKey in the config
// file or RESUMECVPRO_AI_APIKEY, then GEMINI_API_KEY.
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Storage       StorageConfig       `mapstructure:"storage"`
	JobFetch      JobFetchConfig      `mapstructure:"jobFetch"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	Sources Sources `mapstructure:"-"`
}

// AppConfig holds settings shared by every command.
type AppConfig struct {
	LogLevel             string        `mapstructure:"logLevel"`
	DefaultFormat        string        `mapstructure:"defaultFormat"`
	SupportedFormats     []string      `mapstructure:"supportedFormats"`
	MaxFileSize          int64         `mapstructure:"maxFileSize"`
	ShareURL             string        `mapstructure:"shareURL"`
	MotivationalInterval time.Duration `mapstructure:"motivationalInterval"`
}

// StorageConfig selects where history and preferences are persisted.
// Driver is one of file, sqlite, redis or memory. Watch reloads history when
// the file store changes on disk.
type StorageConfig struct {
	Driver        string        `mapstructure:"driver"`
	Dir           string        `mapstructure:"dir"`
	SQLitePath    string        `mapstructure:"sqlitePath"`
	RedisURL      string        `mapstructure:"redisURL"`
	KeyPrefix     string        `mapstructure:"keyPrefix"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watchDebounce"`
}

// JobFetchConfig bounds downloads of job postings given by URL.
type JobFetchConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxBytes  int64         `mapstructure:"maxBytes"`
	UserAgent string        `mapstructure:"userAgent"`
}

// LoadConfig reads config.yaml from /etc/resumecvpro, ~/.resumecvpro or the
// working directory, overlays RESUMECVPRO_* variables and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RESUMECVPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumecvpro/")
	v.AddConfigPath("$HOME/.resumecvpro")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
	}

	return load(v, configFileUsed)
}

// LoadFromViper builds a Config from an already populated viper instance.
// Defaults are applied first so partial instances behave like a config file.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	return load(v, v.ConfigFileUsed())
}

func load(v *viper.Viper, configFileUsed string) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.Sources = collectSources(configFileUsed)

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
// The AI API key is not required here: commands that never call the oracle still work without it.
func (c *Config) Validate() error {
	if c.AI.Provider != "gemini" {
		return fmt.Errorf("unsupported AI provider: %s", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("default format '%s' is not in supported formats %v", c.App.DefaultFormat, c.App.SupportedFormats)
	}

	if c.App.MotivationalInterval <= 0 {
		return fmt.Errorf("motivational interval must be positive")
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	return c.ValidateTLSConfig()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "file":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the file driver")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlitePath is required for the sqlite driver")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redisURL is required for the redis driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	return nil
}

// RequireAPIKey reports a missing Gemini key for commands that need the oracle.
func (c *Config) RequireAPIKey() error {
	if c.GetAnalyzeConfig().APIKey == "" {
		return fmt.Errorf("AI API key is required (set RESUMECVPRO_AI_APIKEY or GEMINI_API_KEY, or configure vault.secrets.geminiKey)")
	}
	return nil
}
