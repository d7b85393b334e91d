package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a default config file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default config file to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// configSection is one top-level key of the generated file.
type configSection struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg section by section, each preceded by
// a comment block.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []configSection{
		{"logging", "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json),\noutput (stdout, stderr or a file path)", cfg.Logging},
		{"database", "Database: type selects the kv backend (badger, bolt). Only the\noptions map matching the type is used.", cfg.Database},
		{"sessions", "Sessions: max_age is how long a login stays valid", cfg.Sessions},
		{"passwords", "Passwords: argon2id costs for newly set passwords", cfg.Passwords},
		{"cache", "Cache: group_entries is the number of cached groups (0 disables)", cfg.Cache},
		{"metrics", "Metrics: when enabled, every command writes Prometheus metrics to\ntextfile (node_exporter textfile collector format)", cfg.Metrics},
	}

	var b strings.Builder
	b.WriteString("# Kasten Configuration File\n")
	b.WriteString("#\n")
	b.WriteString("# Every value can be overridden with a KASTEN_ environment variable,\n")
	b.WriteString("# e.g. KASTEN_LOGGING_LEVEL=DEBUG.\n")

	for _, s := range sections {
		out, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s section: %w", s.key, err)
		}

		b.WriteString("\n")
		for _, line := range strings.Split(s.comment, "\n") {
			b.WriteString("# " + line + "\n")
		}
		b.Write(out)
	}

	return b.String(), nil
}
