// Package config loads the runtime settings of the wasmcanvas binary.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Display modes.
const (
	ModeWindow   = "window"
	ModeHeadless = "headless"
	ModeTerminal = "terminal"
)

// EnvPrefix prefixes environment overrides, e.g. WASMCANVAS_DISPLAY_MODE.
const EnvPrefix = "WASMCANVAS"

type Settings struct {
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Page     string         `mapstructure:"page" yaml:"page"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Runtime  RuntimeConfig  `mapstructure:"runtime" yaml:"runtime"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

// DisplayConfig selects and tunes the display back-end.
type DisplayConfig struct {
	// One of window, headless or terminal.
	Mode string `mapstructure:"mode" yaml:"mode"`
	// Frame rate of the headless and terminal clocks.
	Hz int `mapstructure:"hz" yaml:"hz"`
	// Stop after this many frames; 0 runs until interrupted.
	Ticks uint64 `mapstructure:"ticks" yaml:"ticks"`
	Title string `mapstructure:"title" yaml:"title"`
	// Window scale factor.
	Scale int `mapstructure:"scale" yaml:"scale"`
}

// RuntimeConfig holds Wasm runtime configuration.
type RuntimeConfig struct {
	// Compilation cache directory. Empty keeps the cache in memory.
	CacheDir string `mapstructure:"cache_dir" yaml:"cache_dir"`
}

// SnapshotConfig controls PNG contact sheets of all canvases.
type SnapshotConfig struct {
	// Written on exit when set.
	Path string `mapstructure:"path" yaml:"path"`
	// Also written every this many frames in headless mode; 0 disables.
	Every uint64 `mapstructure:"every" yaml:"every"`
}

// Load reads settings from defaults, the optional file at configPath and
// WASMCANVAS_* environment variables, in increasing priority.
func Load(configPath string) (*Settings, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("page", "page.yaml")

	v.SetDefault("display.mode", ModeWindow)
	v.SetDefault("display.hz", 60)
	v.SetDefault("display.ticks", 0)
	v.SetDefault("display.title", "wasmcanvas")
	v.SetDefault("display.scale", 1)

	v.SetDefault("runtime.cache_dir", "")

	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.every", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	switch s.Display.Mode {
	case ModeWindow, ModeHeadless, ModeTerminal:
	default:
		return fmt.Errorf("invalid display.mode %q (want %s, %s or %s)", s.Display.Mode, ModeWindow, ModeHeadless, ModeTerminal)
	}
	if s.Display.Hz <= 0 {
		return fmt.Errorf("invalid display.hz: %d", s.Display.Hz)
	}
	if s.Display.Scale <= 0 {
		return fmt.Errorf("invalid display.scale: %d", s.Display.Scale)
	}
	return nil
}

// Dump writes the settings as YAML.
func (s *Settings) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
