// Package config loads and saves the allot TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Environment overrides.
const (
	EnvPlan     = "ALLOT_PLAN"
	EnvLogLevel = "ALLOT_LOG_LEVEL"
)

// SamplePlanName selects the built-in sample plan.
const SamplePlanName = "sample"

// Config holds all allot configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Engine     EngineConfig     `toml:"engine"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
	Logging    LoggingConfig    `toml:"logging"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	PlansDir        string `toml:"plans_dir,omitempty"`
	DefaultPlan     string `toml:"default_plan,omitempty"`
	DefaultEditKind string `toml:"default_edit_kind"`
}

// EngineConfig tunes the recompute engine.
type EngineConfig struct {
	// ZeroTotal is "keep" or "equal".
	ZeroTotal string `toml:"zero_total"`
}

// DaemonConfig holds the local HTTP service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	EventsBuffer int    `toml:"events_buffer"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultEditKind: "absolute",
		},
		Engine: EngineConfig{
			ZeroTotal: "keep",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8417",
			EventsBuffer: 200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "allot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "allot")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied last.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPlan); v != "" {
		cfg.General.DefaultPlan = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// PlansDir returns the configured plans directory, defaulting to
// <config dir>/plans. A leading ~ is expanded.
func PlansDir(cfg Config) string {
	dir := cfg.General.PlansDir
	if dir == "" {
		return filepath.Join(ConfigDir(), "plans")
	}
	return expandHome(dir)
}

// ResolvePlanPath turns a plan reference into a file path. ref falls back to
// the configured default plan. A bare name without an extension is looked up
// in the plans directory. An empty result selects the built-in sample.
func ResolvePlanPath(cfg Config, ref string) (string, error) {
	if ref == "" {
		ref = cfg.General.DefaultPlan
	}
	if ref == "" || ref == SamplePlanName {
		return "", nil
	}

	ref = expandHome(ref)
	if filepath.Ext(ref) != "" || strings.ContainsRune(ref, filepath.Separator) {
		return filepath.Abs(ref)
	}

	dir := PlansDir(cfg)
	for _, ext := range []string{".toml", ".json", ".yaml", ".yml"} {
		candidate := filepath.Join(dir, ref+ext)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("plan %q not found in %s", ref, dir)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
