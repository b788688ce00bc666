package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("TAGFLOW_CONFIG_PATH", "/custom/tagflow.toml")
		t.Setenv("TAGFLOW_HOME", "/custom/tagflow")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := map[string]string{
			"config_path": "/custom/tagflow.toml",
			"base_dir":    "/custom/tagflow",
			"log_dir":     "/custom/tagflow/log",
			"cache_dir":   "/custom/tagflow/cache",
		}
		for k, v := range want {
			if defaults[k] != v {
				t.Errorf("%s = %q, want %q", k, defaults[k], v)
			}
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv("TAGFLOW_CONFIG_PATH", "")
		t.Setenv("TAGFLOW_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		wantConfig := filepath.Join(homeDir, ".config", "tagflow.toml")
		if defaults["config_path"] != wantConfig {
			t.Errorf("config_path = %q, want %q", defaults["config_path"], wantConfig)
		}

		wantBase := filepath.Join(homeDir, ".local", "share", "tagflow")
		if defaults["base_dir"] != wantBase {
			t.Errorf("base_dir = %q, want %q", defaults["base_dir"], wantBase)
		}
		if defaults["log_dir"] != filepath.Join(wantBase, "log") {
			t.Errorf("log_dir = %q", defaults["log_dir"])
		}
	})

	t.Run("fails without env or home", func(t *testing.T) {
		t.Setenv("TAGFLOW_CONFIG_PATH", "")
		t.Setenv("TAGFLOW_HOME", "")
		t.Setenv("HOME", "")

		_, err := GetDefaults()
		if err == nil || !strings.Contains(err.Error(), "TAGFLOW_CONFIG_PATH") {
			t.Errorf("GetDefaults() error = %v, want it to name TAGFLOW_CONFIG_PATH", err)
		}
	})
}
