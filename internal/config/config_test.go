package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "test"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Name != "test" {
		t.Fatalf("name = %q", cfg.Server.Name)
	}
	if cfg.Watch.DebounceWindow != 500*time.Millisecond {
		t.Fatalf("debounce window default = %s", cfg.Watch.DebounceWindow)
	}
	if cfg.Network.BindAddress == "" || cfg.Database.DSN == "" {
		t.Fatalf("network/database defaults missing: %+v", cfg)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatalf("start time not set")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[watch]
debounce_window = "250ms"

[rate_limit]
enabled = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.DebounceWindow != 250*time.Millisecond {
		t.Fatalf("debounce window = %s", cfg.Watch.DebounceWindow)
	}
	if cfg.RateLimit.Enabled {
		t.Fatalf("rate limit not disabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestLoadBadToml(t *testing.T) {
	path := writeConfig(t, `[server`)
	if _, err := Load(path); err == nil {
		t.Fatal("want parse error")
	}
}
