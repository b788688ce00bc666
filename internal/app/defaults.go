package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults resolves where tagflow keeps its config file and data.
// TAGFLOW_CONFIG_PATH overrides ~/.config/tagflow.toml and TAGFLOW_HOME
// overrides ~/.local/share/tagflow; log and cache dirs live under the latter.
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome("TAGFLOW_CONFIG_PATH", ".config", "tagflow.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome("TAGFLOW_HOME", ".local", "share", "tagflow")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"cache_dir":   filepath.Join(baseDir, "cache"),
	}, nil
}

// fromEnvOrHome returns the value of env, or the path under the user's
// home directory when env is unset.
func fromEnvOrHome(env string, elem ...string) (string, error) {
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%s is unset and the home directory is unknown: %w", env, err)
	}
	return filepath.Join(append([]string{home}, elem...)...), nil
}
