package config

import (
	"os"
	"path/filepath"
)

// FileName is the configuration file name looked up by ResolvePath.
const FileName = "crondeck.yaml"

// ResolvePath searches for a config file in standard locations and returns
// the first one that exists, or "" when there is none.
// Search order: $XDG_CONFIG_HOME/crondeck/crondeck.yaml → ~/.config/crondeck/crondeck.yaml → ./crondeck.yaml
func ResolvePath() string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "crondeck", FileName))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "crondeck", FileName))
	}

	candidates = append(candidates, FileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/crondeck if set, otherwise ~/.local/share/crondeck.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "crondeck")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "crondeck")
}
