package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "folderbridge"

// File names inside the config and data directories.
const (
	configFileName  = "config.toml"
	grantDBFileName = "grants.db"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/folderbridge).
// On macOS, uses ~/Library/Application Support/folderbridge.
// Other platforms fall back to ~/.config/folderbridge.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", home, ".config")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for application
// data (the grant database).
// On Linux, respects XDG_DATA_HOME (defaults to ~/.local/share/folderbridge).
// On macOS, config and data share ~/Library/Application Support/folderbridge.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", home, ".local", "share")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// xdgDir returns $envVar/folderbridge when set, otherwise the fallback path
// under home.
func xdgDir(envVar, home string, fallback ...string) string {
	if xdg := os.Getenv(envVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	parts := append([]string{home}, fallback...)
	parts = append(parts, appName)

	return filepath.Join(parts...)
}

// DefaultConfigPath returns the full path to the default config file.
// This is used as the fallback when neither FOLDERBRIDGE_CONFIG nor
// --config is specified.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultGrantDBPath returns the default location of the grant database.
func DefaultGrantDBPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, grantDBFileName)
}
