package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete kasten configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (KASTEN_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each kv backend defines its own configuration type. The database section
// holds one map per backend (database.badger, database.bolt) and only the
// map matching database.type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Database selects and tunes the kv backend
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Sessions controls login sessions
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`

	// Passwords holds the argon2id cost parameters for new password hashes
	Passwords PasswordsConfig `mapstructure:"passwords" yaml:"passwords"`

	// Cache sizes the in-memory caches
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// DatabaseConfig specifies the kv store holding all records.
type DatabaseConfig struct {
	// Type selects the backend
	// Valid values: badger, bolt
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=badger bolt"`

	// Path is the badger directory or the bolt file
	Path string `mapstructure:"path" yaml:"path"`

	// Badger contains badger-specific options
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// Bolt contains bbolt-specific options
	// Only used when Type = "bolt"
	Bolt map[string]any `mapstructure:"bolt" yaml:"bolt"`
}

// SessionsConfig controls login sessions.
type SessionsConfig struct {
	// MaxAge is how long a session stays valid after login
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age" validate:"required,gt=0"`

	// FailedLoginInterval is the time a login name needs to regain one
	// failed attempt. 0 disables throttling.
	FailedLoginInterval time.Duration `mapstructure:"failed_login_interval" yaml:"failed_login_interval" validate:"gte=0"`

	// FailedLoginBurst is the number of failed logins allowed in a row
	FailedLoginBurst int `mapstructure:"failed_login_burst" yaml:"failed_login_burst" validate:"gte=0"`
}

// PasswordsConfig holds argon2id parameters.
type PasswordsConfig struct {
	// MemoryKiB is the argon2 memory cost in KiB
	MemoryKiB uint32 `mapstructure:"memory_kib" yaml:"memory_kib" validate:"required,gte=8"`

	// Time is the number of argon2 passes
	Time uint32 `mapstructure:"time" yaml:"time" validate:"required,gt=0"`

	// Threads is the argon2 parallelism
	Threads uint8 `mapstructure:"threads" yaml:"threads" validate:"required,gt=0"`
}

// CacheConfig sizes in-memory caches.
type CacheConfig struct {
	// GroupEntries is the number of decoded groups kept in memory.
	// 0 disables the group cache.
	GroupEntries int `mapstructure:"group_entries" yaml:"group_entries" validate:"gte=0"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where metrics are written when a command finishes, in the
	// node_exporter textfile format. Required when Enabled is true.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KASTEN_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: KASTEN_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("KASTEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a valid explicit value for these, so their defaults can't
	// come from ApplyDefaults
	v.SetDefault("cache.group_entries", 1024)
	v.SetDefault("sessions.failed_login_interval", "30s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/kasten/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// No config file: defaults only
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kasten")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "kasten")
}

// getDataDir returns the directory for database files, following
// XDG_DATA_HOME like getConfigDir follows XDG_CONFIG_HOME.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "kasten")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".local", "share", "kasten")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
