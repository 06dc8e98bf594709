package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DaemonAddress() != "127.0.0.1:7979" {
		t.Fatalf("unexpected address %q", cfg.DaemonAddress())
	}
	if cfg.Comparison.MaxRuns != 5 {
		t.Fatalf("expected default run cap 5, got %d", cfg.Comparison.MaxRuns)
	}
	if cfg.Watcher.DebounceMs != 500 {
		t.Fatalf("expected default debounce 500, got %d", cfg.Watcher.DebounceMs)
	}
}

func TestLoadOverridesAndFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[daemon]
address = "http://localhost:9000/"

[app]
command = "npm"
args = ["run", "dev"]
port = 5173

[providers.anthropic]
label = "Anthropic"
default_model = "opus"

[providers.agent-cli]
command = "agent"
stateful_external = true

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DaemonAddress() != "localhost:9000" {
		t.Fatalf("unexpected address %q", cfg.DaemonAddress())
	}
	if cfg.App.Command != "npm" || cfg.App.Port != 5173 {
		t.Fatalf("unexpected app config %+v", cfg.App)
	}
	if cfg.App.StartupTimeoutMs != 10000 {
		t.Fatalf("expected startup timeout default, got %d", cfg.App.StartupTimeoutMs)
	}
	if !cfg.Providers["agent-cli"].StatefulExternal {
		t.Fatalf("expected agent-cli to be stateful external")
	}
	if cfg.Providers["anthropic"].DefaultModel != "opus" {
		t.Fatalf("unexpected anthropic model %+v", cfg.Providers["anthropic"])
	}
	if cfg.LogLevel() != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel())
	}
}
