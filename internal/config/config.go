package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const FileName = "portal.config.json"

type Config struct {
	Version string `json:"version" mapstructure:"version"`
	API     API    `json:"api" mapstructure:"api"`
	Grid    Grid   `json:"grid" mapstructure:"grid"`
	Sync    Sync   `json:"sync" mapstructure:"sync"`
	Log     Log    `json:"log" mapstructure:"log"`
	Studio  Studio `json:"studio" mapstructure:"studio"`
}

type API struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	TokenEnv  string        `json:"token_env" mapstructure:"token_env"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit float64       `json:"rate_limit,omitempty" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst int           `json:"rate_burst,omitempty" mapstructure:"rate_burst"`
}

type Grid struct {
	PageSize     int    `json:"page_size" mapstructure:"page_size"`
	StylesColumn string `json:"styles_column,omitempty" mapstructure:"styles_column"`
	Locale       string `json:"locale" mapstructure:"locale"`
}

type Sync struct {
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

type Log struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" mapstructure:"max_size_mb"`
	MaxBackups int    `json:"max_backups,omitempty" mapstructure:"max_backups"`
	Colorize   bool   `json:"colorize" mapstructure:"colorize"`
}

type Studio struct {
	Provider    string `json:"provider" mapstructure:"provider"`
	URLEnv      string `json:"url_env" mapstructure:"url_env"`
	Definitions string `json:"definitions" mapstructure:"definitions"`
	Port        int    `json:"port" mapstructure:"port"`
}

// Load reads the config from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set defaults
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.API.TokenEnv == "" {
		cfg.API.TokenEnv = "PORTAL_TOKEN"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.API.RateBurst == 0 && cfg.API.RateLimit > 0 {
		cfg.API.RateBurst = 1
	}
	if cfg.Grid.PageSize == 0 {
		cfg.Grid.PageSize = 50
	}
	if cfg.Grid.Locale == "" {
		cfg.Grid.Locale = "en"
	}
	if cfg.Sync.Debounce == 0 {
		cfg.Sync.Debounce = 250 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !v.IsSet("log.colorize") {
		cfg.Log.Colorize = true
	}
	if cfg.Studio.Provider == "" {
		cfg.Studio.Provider = "sqlite"
	}
	if cfg.Studio.URLEnv == "" {
		cfg.Studio.URLEnv = "PORTAL_DB_URL"
	}
	if cfg.Studio.Definitions == "" {
		cfg.Studio.Definitions = "portal.forms.yaml"
	}
	if cfg.Studio.Port == 0 {
		cfg.Studio.Port = 5555
	}

	return &cfg, nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
	supported := false
	for _, provider := range supportedProviders {
		if c.Studio.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported database provider: %s. Supported providers: %v", c.Studio.Provider, supportedProviders)
	}

	if c.Grid.PageSize <= 0 {
		return fmt.Errorf("grid.page_size must be positive, got %d", c.Grid.PageSize)
	}

	if c.Sync.Debounce < 0 {
		return fmt.Errorf("sync.debounce cannot be negative")
	}

	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit cannot be negative")
	}

	return nil
}

// ValidateClient checks the settings needed to talk to a backend.
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url cannot be empty (set it in %s, PORTAL_API_BASE_URL or --base-url)", FileName)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://, got %q", c.API.BaseURL)
	}
	return nil
}

// Token returns the bearer token from the configured environment variable.
func (c *Config) Token() string {
	return os.Getenv(c.API.TokenEnv)
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Studio.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Studio.URLEnv)
	}
	return dbURL, nil
}

// IsInitialized reports whether a config file exists in the working directory.
func IsInitialized() bool {
	_, err := os.Stat(FileName)
	return err == nil
}
