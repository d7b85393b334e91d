package config

import (
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults and explicit values are preserved.
// Backend maps get every known option filled in so a generated config file
// documents them.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDatabaseDefaults(&cfg.Database)
	applySessionsDefaults(&cfg.Sessions)
	applyPasswordsDefaults(&cfg.Passwords)
	// Cache.GroupEntries and Sessions.FailedLoginInterval default through
	// viper and GetDefaultConfig; 0 disables them
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyDatabaseDefaults sets database defaults.
func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Path == "" {
		switch cfg.Type {
		case "bolt":
			cfg.Path = filepath.Join(getDataDir(), "kasten.db")
		default:
			cfg.Path = filepath.Join(getDataDir(), "db")
		}
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Bolt == nil {
		cfg.Bolt = make(map[string]any)
	}

	setDefault(cfg.Badger, "in_memory", false)
	setDefault(cfg.Badger, "sync_writes", false)
	setDefault(cfg.Badger, "block_cache_mb", 64)
	setDefault(cfg.Badger, "index_cache_mb", 32)
	setDefault(cfg.Badger, "max_txn_retries", 16)

	setDefault(cfg.Bolt, "timeout", "5s")
	setDefault(cfg.Bolt, "no_sync", false)
}

func setDefault(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// applySessionsDefaults sets session defaults.
func applySessionsDefaults(cfg *SessionsConfig) {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.FailedLoginBurst == 0 {
		cfg.FailedLoginBurst = 5
	}
}

// applyPasswordsDefaults sets argon2id defaults (RFC 9106, second option).
func applyPasswordsDefaults(cfg *PasswordsConfig) {
	if cfg.MemoryKiB == 0 {
		cfg.MemoryKiB = 64 * 1024
	}
	if cfg.Time == 0 {
		cfg.Time = 3
	}
	if cfg.Threads == 0 {
		cfg.Threads = 4
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Sessions: SessionsConfig{
			FailedLoginInterval: 30 * time.Second,
		},
		Cache: CacheConfig{
			GroupEntries: 1024,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
