package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// ServerConfig points at the media request server the Plex token signs in to.
type ServerConfig struct {
	URL string `toml:"url" env:"SEERRDECK_SERVER_URL"`
}

// PlexConfig holds the Plex login settings.
type PlexConfig struct {
	Product             string `toml:"product" env:"SEERRDECK_PLEX_PRODUCT"`
	Language            string `toml:"language" env:"SEERRDECK_PLEX_LANGUAGE"`
	PollIntervalMS      int    `toml:"poll_interval_ms" env:"SEERRDECK_POLL_INTERVAL_MS"`
	LoginTimeoutSeconds int    `toml:"login_timeout_seconds" env:"SEERRDECK_LOGIN_TIMEOUT_SECONDS"`
	APIURL              string `toml:"api_url"`
	AuthURL             string `toml:"auth_url"`
}

// StorageConfig selects where the device identifier and token are kept.
type StorageConfig struct {
	Driver string `toml:"driver" env:"SEERRDECK_STORAGE_DRIVER"`
	Path   string `toml:"path" env:"SEERRDECK_STORAGE_PATH"`
}

// LogConfig holds the log level name.
type LogConfig struct {
	Level string `toml:"level" env:"SEERRDECK_LOG_LEVEL"`
}

// Config holds all seerrdeck configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Plex    PlexConfig    `toml:"plex"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`
}

const (
	defaultProduct      = "Seerrdeck"
	defaultPollInterval = time.Second
	defaultLoginTimeout = 15 * time.Minute
	defaultDriver       = "file"
	defaultLogLevel     = "info"
)

// ProductOrDefault returns the product name sent to Plex.
func (c Config) ProductOrDefault() string {
	if c.Plex.Product != "" {
		return c.Plex.Product
	}
	return defaultProduct
}

// PollIntervalOrDefault returns the delay between PIN checks.
func (c Config) PollIntervalOrDefault() time.Duration {
	if c.Plex.PollIntervalMS > 0 {
		return time.Duration(c.Plex.PollIntervalMS) * time.Millisecond
	}
	return defaultPollInterval
}

// LoginTimeoutOrDefault returns how long a login may wait for authorization.
func (c Config) LoginTimeoutOrDefault() time.Duration {
	if c.Plex.LoginTimeoutSeconds > 0 {
		return time.Duration(c.Plex.LoginTimeoutSeconds) * time.Second
	}
	return defaultLoginTimeout
}

// StorageDriverOrDefault returns the storage driver name.
func (c Config) StorageDriverOrDefault() string {
	if c.Storage.Driver != "" {
		return c.Storage.Driver
	}
	return defaultDriver
}

// StoragePathOrDefault returns the storage location for the configured driver.
func (c Config) StoragePathOrDefault() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	name := "state.toml"
	if c.StorageDriverOrDefault() == "sqlite" {
		name = "state.db"
	}
	return filepath.Join(configDir(), name)
}

// LogLevelOrDefault returns the configured log level name.
func (c Config) LogLevelOrDefault() string {
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return defaultLogLevel
}

// LoadFrom reads configuration from the given TOML file path.
// If the file does not exist, it returns an empty config without error.
// SEERRDECK_* environment variables always take precedence over file values.
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the default path for the seerrdeck config file.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.toml")
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "seerrdeck")
}

// Save writes cfg to the given TOML file path, creating parent directories as needed.
// Existing file contents are overwritten. Permissions on the written file are 0600.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(cfg); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}

// ValidateServerURL checks that rawURL is an absolute http(s) URL.
func ValidateServerURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("server URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}
