// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appDir = "nback"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appDir, "nback.db")
}

// DefaultLogPath returns the default path for the log file.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), appDir, "nback.log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "config.toml")
}

// DBPath returns the configured database path or the default.
func (c FileConfig) DBPath() string {
	if c.Paths.DB != nil && *c.Paths.DB != "" {
		return *c.Paths.DB
	}
	return DefaultDBPath()
}

// LogPath returns the configured log path or the default.
func (c FileConfig) LogPath() string {
	if c.Paths.Log != nil && *c.Paths.Log != "" {
		return *c.Paths.Log
	}
	return DefaultLogPath()
}
