package config

import "path/filepath"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Default: defaultDatabasePath()},
		Ingest: IngestConfig{
			Branch:    "main",
			Namespace: "item",
			Format:    "json",
		},
		Display: DisplayConfig{Width: 80, ColorOutput: nil},
	}
}

func defaultDatabasePath() string {
	dataDir, err := DataDir()
	if err != nil {
		return "default.db"
	}
	return filepath.Join(dataDir, "default.db")
}
