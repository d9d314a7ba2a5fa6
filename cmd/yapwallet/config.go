// ABOUTME: config.go provides configuration file management for the yapwallet CLI.
// ABOUTME: Supports loading, saving, and auto-initialization with environment variable overrides.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in the config file.
const (
	BackendHTTP       = "http"
	BackendSQLite     = "sqlite"
	BackendPocketBase = "pocketbase"
)

// Config represents the yapwallet CLI configuration.
type Config struct {
	Backend    string `yaml:"backend"`
	Server     string `yaml:"server,omitempty"`   // walletd base URL for the http backend
	DB         string `yaml:"db,omitempty"`       // record database for the sqlite backend
	CacheDB    string `yaml:"cache_db,omitempty"` // offline cache; empty disables caching
	PBURL      string `yaml:"pb_url,omitempty"`
	PBToken    string `yaml:"pb_token,omitempty"`
	PBIdentity string `yaml:"pb_identity,omitempty"`
	PBPassword string `yaml:"pb_password,omitempty"`
	Email      string `yaml:"email,omitempty"` // default account for commands run without -email
	DeviceID   string `yaml:"device_id"`
	LogLevel   string `yaml:"log_level,omitempty"`
}

// ConfigPath is a function that returns the path to the yapwallet config file.
// It can be overridden in tests.
var ConfigPath = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".yapwallet", "config.yaml")
	}
	return filepath.Join(home, ".yapwallet", "config.yaml")
}

// ConfigDir returns the directory containing the config file.
func ConfigDir() string {
	return filepath.Dir(ConfigPath())
}

// EnsureConfigDir creates the config directory if it doesn't exist.
// A plain file sitting at that path is backed up first.
func EnsureConfigDir() error {
	dir := ConfigDir()

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		backup := dir + ".backup." + time.Now().Format("20060102-150405")
		if err := os.Rename(dir, backup); err != nil {
			return fmt.Errorf("config path %s is a file, failed to backup: %w", dir, err)
		}
		fmt.Fprintf(os.Stderr, "Warning: %s was a file, backed up to %s\n", dir, backup)
	case !os.IsNotExist(err):
		return fmt.Errorf("check config dir: %w", err)
	}

	return os.MkdirAll(dir, 0o700)
}

// LoadConfig loads config from file and applies environment variable overrides.
// Returns default config if file doesn't exist.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	configPath := ConfigPath()

	info, statErr := os.Stat(configPath)
	if statErr == nil && info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory, not a file", configPath)
	}

	// #nosec G304 -- configPath is derived from user's home directory, not user input
	data, err := os.ReadFile(configPath)
	if err == nil {
		if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
			backup := configPath + ".corrupt." + time.Now().Format("20060102-150405")
			if renameErr := os.Rename(configPath, backup); renameErr == nil {
				fmt.Fprintf(os.Stderr, "Warning: corrupted config backed up to %s\n", backup)
			}
			return nil, fmt.Errorf("config file corrupted: %w\nRun 'yapwallet init' to create a new config", yamlErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.DB == "" {
		cfg.DB = filepath.Join(ConfigDir(), "wallet.db")
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSQLite:
		return nil
	case BackendHTTP:
		if c.Server == "" {
			return errors.New("http backend needs a server URL (YAPWALLET_SERVER)")
		}
		return nil
	case BackendPocketBase:
		if c.PBURL == "" {
			return errors.New("pocketbase backend needs pb_url (YAPWALLET_PB_URL)")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q (want http, sqlite or pocketbase)", c.Backend)
	}
}

// defaultConfig returns a config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Backend:  BackendSQLite,
		DB:       filepath.Join(ConfigDir(), "wallet.db"),
		LogLevel: "warn",
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("YAPWALLET_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("YAPWALLET_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("YAPWALLET_DB"); v != "" {
		cfg.DB = expandPath(v)
	}
	if v := os.Getenv("YAPWALLET_CACHE_DB"); v != "" {
		cfg.CacheDB = expandPath(v)
	}
	if v := os.Getenv("YAPWALLET_PB_URL"); v != "" {
		cfg.PBURL = v
	}
	if v := os.Getenv("YAPWALLET_PB_TOKEN"); v != "" {
		cfg.PBToken = v
	}
	if v := os.Getenv("YAPWALLET_PB_IDENTITY"); v != "" {
		cfg.PBIdentity = v
	}
	if v := os.Getenv("YAPWALLET_PB_PASSWORD"); v != "" {
		cfg.PBPassword = v
	}
	if v := os.Getenv("YAPWALLET_EMAIL"); v != "" {
		cfg.Email = v
	}
	if v := os.Getenv("YAPWALLET_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// SaveConfig writes config to file.
func SaveConfig(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// InitConfig creates and saves a new config with a fresh device ID.
func InitConfig(backend, server string) (*Config, error) {
	cfg := defaultConfig()
	cfg.DeviceID = generateDeviceID()
	cfg.CacheDB = filepath.Join(ConfigDir(), "cache.db")
	if backend != "" {
		cfg.Backend = backend
	}
	switch cfg.Backend {
	case BackendHTTP:
		cfg.Server = server
	case BackendPocketBase:
		cfg.PBURL = server
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := SaveConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigExists returns true if config file exists.
func ConfigExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// generateDeviceID creates a unique device identifier.
func generateDeviceID() string {
	return ulid.Make().String()
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
