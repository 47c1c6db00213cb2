package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Vault.Path == "" || cfg.Vault.IndexPath == "" {
		t.Errorf("vault paths = %+v", cfg.Vault)
	}
	if cfg.Server.Mode != "prod" || cfg.Server.TimeoutMs != 5000 || cfg.Server.Retries != 2 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Recovery.MaxRetries != 5 || cfg.Recovery.BaseDelayMs != 1000 {
		t.Errorf("recovery = %+v", cfg.Recovery)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 100 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	vault := t.TempDir()
	t.Setenv("VAULT_PATH", vault)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RECOVERY_MAX_RETRIES", "9")
	t.Setenv("SEARCH_DEFAULT_LIMIT", "42")
	t.Setenv("NOTEVAULT_GIT_SNAPSHOTS", "true")

	cfg := Default()
	applyEnv(cfg)

	if cfg.Vault.Path != vault {
		t.Errorf("vault path = %q", cfg.Vault.Path)
	}
	if cfg.Vault.IndexPath != filepath.Join(vault, ".notevault", "index.db") {
		t.Errorf("index path should follow the vault: %q", cfg.Vault.IndexPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Recovery.MaxRetries != 9 {
		t.Errorf("recovery retries = %d", cfg.Recovery.MaxRetries)
	}
	if cfg.Search.DefaultLimit != 42 {
		t.Errorf("search limit = %d", cfg.Search.DefaultLimit)
	}
	if !cfg.Vault.GitSnapshots {
		t.Error("git snapshots should be on")
	}
}

func TestIndexPathEnvWinsOverVault(t *testing.T) {
	vault := t.TempDir()
	t.Setenv("VAULT_PATH", vault)
	t.Setenv("NOTEVAULT_INDEX_PATH", "/elsewhere/index.db")

	cfg := Default()
	applyEnv(cfg)

	if cfg.Vault.IndexPath != "/elsewhere/index.db" {
		t.Errorf("index path = %q", cfg.Vault.IndexPath)
	}
}

func TestEnvIgnoresUnparsableInts(t *testing.T) {
	t.Setenv("RECOVERY_MAX_RETRIES", "lots")

	cfg := Default()
	applyEnv(cfg)

	if cfg.Recovery.MaxRetries != 5 {
		t.Errorf("unparsable env should keep the default, got %d", cfg.Recovery.MaxRetries)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		code   vaulterr.Code
	}{
		{"empty vault path", func(c *Config) { c.Vault.Path = "" }, vaulterr.VaultPathError},
		{"bad mode", func(c *Config) { c.Server.Mode = "staging" }, vaulterr.ConfigError},
		{"zero timeout", func(c *Config) { c.Server.TimeoutMs = 0 }, vaulterr.ConfigError},
		{"negative retries", func(c *Config) { c.Server.Retries = -1 }, vaulterr.ConfigError},
		{"zero recovery delay", func(c *Config) { c.Recovery.BaseDelayMs = 0 }, vaulterr.ConfigError},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(cfg)
		err := cfg.Validate()
		if !vaulterr.Is(err, c.code) {
			t.Errorf("%s: code = %v, want %v", c.name, vaulterr.CodeOf(err), c.code)
		}
	}
}

func TestTimeout(t *testing.T) {
	cfg := Default()
	cfg.Server.TimeoutMs = 1500
	if cfg.Timeout() != 1500*time.Millisecond {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
}
