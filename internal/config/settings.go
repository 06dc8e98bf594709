package config

import (
	"errors"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const defaultDaemonAddress = "127.0.0.1:7979"

const (
	defaultAppPort           = 3000
	defaultAppStartupMs      = 10000
	defaultWatchDebounceMs   = 500
	defaultComparisonMaxRuns = 5
	defaultBranchPrefix      = "overseer/run-"
)

var defaultWatchExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".css", ".html", ".json", ".go", ".py", ".rb",
}

var defaultWatchIgnoreDirs = []string{
	".git", "node_modules", "dist", "build", ".next", ".overseer", "vendor",
}

type Config struct {
	Daemon     DaemonConfig              `toml:"daemon"`
	App        AppConfig                 `toml:"app"`
	Providers  map[string]ProviderConfig `toml:"providers"`
	Watcher    WatcherConfig             `toml:"watcher"`
	Comparison ComparisonConfig          `toml:"comparison"`
	Logging    LoggingConfig             `toml:"logging"`
}

type DaemonConfig struct {
	Address string `toml:"address"`
}

// AppConfig describes the supervised application process (the user's dev
// server), not this daemon.
type AppConfig struct {
	Command          string   `toml:"command"`
	Args             []string `toml:"args"`
	Port             int      `toml:"port"`
	StartupTimeoutMs int      `toml:"startup_timeout_ms"`
	AutoStart        bool     `toml:"auto_start"`
}

type ProviderConfig struct {
	Label            string   `toml:"label"`
	Command          string   `toml:"command"`
	DefaultModel     string   `toml:"default_model"`
	Models           []string `toml:"models"`
	StatefulExternal bool     `toml:"stateful_external"`
}

type WatcherConfig struct {
	DebounceMs int      `toml:"debounce_ms"`
	Extensions []string `toml:"extensions"`
	IgnoreDirs []string `toml:"ignore_dirs"`
}

type ComparisonConfig struct {
	MaxRuns      int    `toml:"max_runs"`
	BranchPrefix string `toml:"branch_prefix"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

func Default() Config {
	return Config{
		Daemon: DaemonConfig{Address: defaultDaemonAddress},
		App: AppConfig{
			Port:             defaultAppPort,
			StartupTimeoutMs: defaultAppStartupMs,
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {
				Label:        "Anthropic",
				DefaultModel: "sonnet",
				Models:       []string{"sonnet", "opus", "haiku"},
			},
			"openai": {
				Label:        "OpenAI",
				DefaultModel: "gpt-5.1-codex",
				Models:       []string{"gpt-5.1-codex", "gpt-5.1-codex-max"},
			},
			"agent-cli": {
				Label:            "Agent CLI",
				Command:          "agent",
				StatefulExternal: true,
			},
		},
		Watcher: WatcherConfig{
			DebounceMs: defaultWatchDebounceMs,
			Extensions: append([]string{}, defaultWatchExtensions...),
			IgnoreDirs: append([]string{}, defaultWatchIgnoreDirs...),
		},
		Comparison: ComparisonConfig{
			MaxRuns:      defaultComparisonMaxRuns,
			BranchPrefix: defaultBranchPrefix,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the global config file, filling in defaults for anything the
// file leaves out. A missing file yields the defaults.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	return loadFromPath(path)
}

func loadFromPath(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if strings.TrimSpace(c.Daemon.Address) == "" {
		c.Daemon.Address = defaultDaemonAddress
	}
	if c.App.Port <= 0 {
		c.App.Port = defaultAppPort
	}
	if c.App.StartupTimeoutMs <= 0 {
		c.App.StartupTimeoutMs = defaultAppStartupMs
	}
	if c.Watcher.DebounceMs <= 0 {
		c.Watcher.DebounceMs = defaultWatchDebounceMs
	}
	if len(c.Watcher.Extensions) == 0 {
		c.Watcher.Extensions = append([]string{}, defaultWatchExtensions...)
	}
	if len(c.Watcher.IgnoreDirs) == 0 {
		c.Watcher.IgnoreDirs = append([]string{}, defaultWatchIgnoreDirs...)
	}
	if c.Comparison.MaxRuns <= 0 {
		c.Comparison.MaxRuns = defaultComparisonMaxRuns
	}
	if strings.TrimSpace(c.Comparison.BranchPrefix) == "" {
		c.Comparison.BranchPrefix = defaultBranchPrefix
	}
	if c.Providers == nil {
		c.Providers = Default().Providers
	}
	return c
}

func (c Config) DaemonAddress() string {
	addr := strings.TrimSpace(c.Daemon.Address)
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr = strings.TrimRight(addr, "/")
	if addr == "" {
		return defaultDaemonAddress
	}
	return addr
}

func (c Config) DaemonBaseURL() string {
	return "http://" + c.DaemonAddress()
}

func (c Config) LogLevel() string {
	level := strings.TrimSpace(c.Logging.Level)
	if level == "" {
		return "info"
	}
	return level
}
