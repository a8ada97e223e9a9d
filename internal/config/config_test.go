package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Grid.PageSize != 50 {
		t.Errorf("Expected page_size to be 50, got %d", cfg.Grid.PageSize)
	}

	if cfg.Sync.Debounce != 250*time.Millisecond {
		t.Errorf("Expected debounce to be 250ms, got %s", cfg.Sync.Debounce)
	}

	if cfg.API.TokenEnv != "PORTAL_TOKEN" {
		t.Errorf("Expected token_env to be 'PORTAL_TOKEN', got '%s'", cfg.API.TokenEnv)
	}

	if cfg.Studio.Provider != "sqlite" {
		t.Errorf("Expected studio provider to be 'sqlite', got '%s'", cfg.Studio.Provider)
	}

	if !cfg.Log.Colorize {
		t.Error("Expected colorize to default to true")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := `{
  "api": {"base_url": "http://localhost:8000", "timeout": "5s", "rate_limit": 4},
  "grid": {"page_size": 20, "styles_column": "styles"},
  "sync": {"debounce": "100ms"},
  "log": {"level": "debug", "colorize": false}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", cfg.API.Timeout)
	}
	if cfg.API.RateBurst != 1 {
		t.Errorf("Expected rate_burst to default to 1 when rate_limit is set, got %d", cfg.API.RateBurst)
	}
	if cfg.Grid.PageSize != 20 || cfg.Grid.StylesColumn != "styles" {
		t.Errorf("Unexpected grid config: %+v", cfg.Grid)
	}
	if cfg.Sync.Debounce != 100*time.Millisecond {
		t.Errorf("Expected debounce 100ms, got %s", cfg.Sync.Debounce)
	}
	if cfg.Log.Colorize {
		t.Error("Expected colorize to be false when set explicitly")
	}
	if err := cfg.ValidateClient(); err != nil {
		t.Errorf("Expected valid client config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := LoadFrom(viper.New())

	cfg.Studio.Provider = "oracle"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unsupported database provider") {
		t.Errorf("Expected unsupported provider error, got %v", err)
	}

	cfg.Studio.Provider = "postgres"
	for _, size := range []int{0, -5} {
		cfg.Grid.PageSize = size
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "grid.page_size must be positive") {
			t.Errorf("Expected page_size %d to be rejected, got %v", size, err)
		}
	}
	cfg.Grid.PageSize = 50

	if err := cfg.ValidateClient(); err == nil {
		t.Error("Expected missing base_url to fail")
	}

	cfg.API.BaseURL = "localhost:8000"
	if err := cfg.ValidateClient(); err == nil {
		t.Error("Expected base_url without scheme to fail")
	}
}

func TestIsInitialized(t *testing.T) {
	tempDir := t.TempDir()

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	defer os.Chdir(originalDir)

	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	if IsInitialized() {
		t.Error("Expected project to not be initialized, but it was")
	}

	if err := os.WriteFile(filepath.Join(tempDir, FileName), []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	if !IsInitialized() {
		t.Error("Expected project to be initialized, but it wasn't")
	}
}

func TestToken(t *testing.T) {
	cfg, _ := LoadFrom(viper.New())
	t.Setenv("PORTAL_TOKEN", "secret")
	if cfg.Token() != "secret" {
		t.Errorf("Expected token 'secret', got '%s'", cfg.Token())
	}
}
