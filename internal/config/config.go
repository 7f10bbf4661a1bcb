package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// SystemDisk overrides root-disk autodetection for the system-disk
	// protection rule (e.g. "/dev/sda").
	SystemDisk string `yaml:"system_disk,omitempty"`
	// WipeMiB is how many MiB to zero at the head and tail of each device.
	WipeMiB int `yaml:"wipe_mib"`
	// SettleSeconds is the delay before post-wipe verification.
	SettleSeconds int `yaml:"settle_seconds"`
	// ConfirmTimeoutSeconds bounds the interactive confirmation prompt;
	// on timeout the target is skipped.
	ConfirmTimeoutSeconds int `yaml:"confirm_timeout_seconds"`
	// Exclude lists device names always excluded, merged with --exclude.
	Exclude []string `yaml:"exclude,omitempty"`
	// Database is the wipe journal location.
	Database string `yaml:"database,omitempty"`
}

var defaultConfig = Config{
	WipeMiB:               10,
	SettleSeconds:         2,
	ConfirmTimeoutSeconds: 60,
	Database:              "/var/lib/diskzap/journal.db",
}

func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/diskzap/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/diskzap/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	cfg := defaultConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply defaults for zero values
	if cfg.WipeMiB <= 0 {
		cfg.WipeMiB = defaultConfig.WipeMiB
	}
	if cfg.SettleSeconds <= 0 {
		cfg.SettleSeconds = defaultConfig.SettleSeconds
	}
	if cfg.ConfirmTimeoutSeconds <= 0 {
		cfg.ConfirmTimeoutSeconds = defaultConfig.ConfirmTimeoutSeconds
	}
	if cfg.Database == "" {
		cfg.Database = defaultConfig.Database
	}

	return &cfg, nil
}
