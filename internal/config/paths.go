package config

import (
	"os"
	"path/filepath"
)

// HomePath returns the root directory for hellotodo data.
// It uses $HELLOTODO_PATH if set, otherwise defaults to ~/.hellotodo.
func HomePath() string {
	if v := os.Getenv("HELLOTODO_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".hellotodo")
	}
	return filepath.Join(home, ".hellotodo")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(HomePath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(HomePath(), ".env")
}

// DataPath returns the default directory for slot storage.
func DataPath() string {
	return filepath.Join(HomePath(), "data")
}

// KeyPath returns the default age identity file.
func KeyPath() string {
	return filepath.Join(HomePath(), ".age-key")
}
