package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigDir returns the XDG configuration directory for filehist.
// Uses $XDG_CONFIG_HOME/filehist or ~/.config/filehist on Unix.
// On macOS, uses ~/Library/Application Support/filehist.
func ConfigDir() (string, error) {
	if homeOverride := os.Getenv("FILEHIST_HOME"); homeOverride != "" {
		return filepath.Join(homeOverride, "config"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "filehist"), nil
	}

	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "filehist"), nil
	}

	return filepath.Join(home, ".config", "filehist"), nil
}

// DataDir returns the XDG data directory for filehist.
// Uses $XDG_DATA_HOME/filehist or ~/.local/share/filehist on Unix.
// On macOS, uses ~/Library/Application Support/filehist.
func DataDir() (string, error) {
	if homeOverride := os.Getenv("FILEHIST_HOME"); homeOverride != "" {
		return filepath.Join(homeOverride, "data"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "filehist"), nil
	}

	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "filehist"), nil
	}

	return filepath.Join(home, ".local", "share", "filehist"), nil
}

// ResolveDatabasePath converts a database name or path to an absolute path.
// "default" (or empty) resolves to the configured default database, absolute
// paths pass through, and bare names land in the data directory.
func ResolveDatabasePath(nameOrPath string) (string, error) {
	if nameOrPath == "" || nameOrPath == "default" {
		cfg, err := Load()
		if err != nil {
			return "", err
		}
		return cfg.Database.Default, nil
	}

	if filepath.IsAbs(nameOrPath) {
		return nameOrPath, nil
	}

	if dir := filepath.Dir(nameOrPath); dir != "." {
		return filepath.Abs(nameOrPath)
	}

	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}

	if filepath.Ext(nameOrPath) == "" {
		nameOrPath += ".db"
	}

	return filepath.Join(dataDir, nameOrPath), nil
}
