// Package config resolves runtime configuration.
// Precedence: CLI flags > env vars > .notevault/config.toml > built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Config holds every tunable the server reads.
type Config struct {
	Vault    VaultConfig    `toml:"vault"`
	Server   ServerConfig   `toml:"server"`
	Recovery RecoveryConfig `toml:"recovery"`
	Search   SearchConfig   `toml:"search"`
	LogLevel string         `toml:"log_level"`
}

// VaultConfig locates the note corpus and its sidecar index.
type VaultConfig struct {
	Path      string `toml:"path"`
	IndexPath string `toml:"index_path"`

	// GitSnapshots commits the vault after each mutating tool call when
	// the vault is a git repository. Best-effort; failures are logged.
	GitSnapshots bool `toml:"git_snapshots"`
}

// ServerConfig tunes the tool dispatcher.
type ServerConfig struct {
	Mode      string `toml:"mode"` // "dev" or "prod"
	TimeoutMs int    `toml:"timeout_ms"`
	Retries   int    `toml:"retries"`
}

// RecoveryConfig tunes the index recovery queue.
type RecoveryConfig struct {
	MaxRetries       int `toml:"max_retries"`
	BaseDelayMs      int `toml:"base_delay_ms"`
	WorkerIntervalMs int `toml:"worker_interval_ms"`
}

// SearchConfig sets search defaults.
type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// Default returns the built-in defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	vault := filepath.Join(home, "notes")
	return &Config{
		Vault: VaultConfig{
			Path:      vault,
			IndexPath: filepath.Join(vault, ".notevault", "index.db"),
		},
		Server: ServerConfig{
			Mode:      "prod",
			TimeoutMs: 5000,
			Retries:   2,
		},
		Recovery: RecoveryConfig{
			MaxRetries:       5,
			BaseDelayMs:      1000,
			WorkerIntervalMs: 2000,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		LogLevel: "info",
	}
}

// Load resolves the config file and environment on top of defaults.
// Flag overrides are applied afterwards by the CLI layer.
func Load() (*Config, error) {
	cfg := Default()

	if path := findConfigFile(); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, vaulterr.Wrap(vaulterr.ConfigError, err, "parse %s", path)
		}
	}

	applyEnv(cfg)
	return cfg, cfg.Validate()
}

// findConfigFile looks for .notevault/config.toml under the vault
// (VAULT_PATH if set), then the working directory.
func findConfigFile() string {
	candidates := []string{}
	if v := os.Getenv("VAULT_PATH"); v != "" {
		candidates = append(candidates, filepath.Join(v, ".notevault", "config.toml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".notevault", "config.toml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VAULT_PATH"); v != "" {
		cfg.Vault.Path = v
		cfg.Vault.IndexPath = filepath.Join(v, ".notevault", "index.db")
	}
	if v := os.Getenv("NOTEVAULT_INDEX_PATH"); v != "" {
		cfg.Vault.IndexPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := envInt("RECOVERY_MAX_RETRIES"); ok {
		cfg.Recovery.MaxRetries = v
	}
	if v, ok := envInt("RECOVERY_BASE_DELAY_MS"); ok {
		cfg.Recovery.BaseDelayMs = v
	}
	if v, ok := envInt("RECOVERY_WORKER_INTERVAL_MS"); ok {
		cfg.Recovery.WorkerIntervalMs = v
	}
	if v, ok := envInt("SEARCH_DEFAULT_LIMIT"); ok {
		cfg.Search.DefaultLimit = v
	}
	if v := os.Getenv("NOTEVAULT_GIT_SNAPSHOTS"); v == "1" || v == "true" {
		cfg.Vault.GitSnapshots = true
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Vault.Path == "" {
		return vaulterr.New(vaulterr.VaultPathError, "vault path is empty")
	}
	if c.Server.Mode != "dev" && c.Server.Mode != "prod" {
		return vaulterr.New(vaulterr.ConfigError, "mode must be dev or prod, got %q", c.Server.Mode)
	}
	if c.Server.TimeoutMs <= 0 {
		return vaulterr.New(vaulterr.ConfigError, "timeout_ms must be positive")
	}
	if c.Server.Retries < 0 {
		return vaulterr.New(vaulterr.ConfigError, "retries must be >= 0")
	}
	if c.Recovery.MaxRetries <= 0 || c.Recovery.BaseDelayMs <= 0 || c.Recovery.WorkerIntervalMs <= 0 {
		return vaulterr.New(vaulterr.ConfigError, "recovery tuning values must be positive")
	}
	return nil
}

// Timeout returns the dispatcher deadline as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutMs) * time.Millisecond
}

// String summarizes the resolved config for the healthcheck report.
func (c *Config) String() string {
	return fmt.Sprintf("vault=%s index=%s mode=%s timeout=%dms retries=%d",
		c.Vault.Path, c.Vault.IndexPath, c.Server.Mode, c.Server.TimeoutMs, c.Server.Retries)
}
