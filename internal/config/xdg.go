// Package config resolves vismem paths and settings.
package config

import (
	"os"
	"path/filepath"
)

const appName = "vismem"

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

// DefaultProgressPath returns the default history log path.
func DefaultProgressPath() string {
	return filepath.Join(XDGDataHome(), appName, "progress.json")
}

// DefaultWordListPath returns the default word list path.
func DefaultWordListPath() string {
	return filepath.Join(XDGConfigHome(), appName, "words.txt")
}

// DefaultImageDir returns the default directory scanned for images.
func DefaultImageDir() string {
	return filepath.Join(XDGConfigHome(), appName, "images")
}

// DefaultDBPath returns the default path for the SQLite session archive.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "vismem.db")
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), appName, "vismem.log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
