// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/popstack/internal/model"
)

// Default configuration values.
const (
	DefaultFallbackHeight = 30
	DefaultMaxVisible     = 3
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or integer milliseconds.
// A value of "0" or 0 means never.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// ReplacePolicy decides where a popup lands when it replaces one of the same type.
type ReplacePolicy string

const (
	// ReplaceMoveToTop removes the old popup and appends the new one.
	ReplaceMoveToTop ReplacePolicy = "move-to-top"
	// ReplaceInPlace swaps the new popup into the old popup's position.
	ReplaceInPlace ReplacePolicy = "in-place"
)

// ValidReplacePolicies returns all valid replace policy values.
func ValidReplacePolicies() []ReplacePolicy {
	return []ReplacePolicy{ReplaceMoveToTop, ReplaceInPlace}
}

// Config is the popstack configuration.
// Loaded from ~/.config/popstack/popstack.toml
type Config struct {
	Stack     StackConfig     `toml:"stack"`
	Display   DisplayConfig   `toml:"display"`
	Top       TopConfig       `toml:"top"`
	Centre    CentreConfig    `toml:"centre"`
	Bottom    BottomConfig    `toml:"bottom"`
	Clipboard ClipboardConfig `toml:"clipboard"`
}

// StackConfig contains stack behaviour settings.
type StackConfig struct {
	FallbackHeight float64 `toml:"fallback_height"` // Initial height when no lower popup is measured
	ReplacePolicy  string  `toml:"replace_policy"`  // "move-to-top" or "in-place"
}

// DisplayConfig contains settings for presentation layers.
type DisplayConfig struct {
	MaxVisible int `toml:"max_visible"` // Popups rendered per anchor group
}

// ClipboardConfig holds clipboard settings (TUI only).
type ClipboardConfig struct {
	Command string `toml:"command"` // Empty = auto-detect wl-copy, xclip or xsel
}

// TopConfig contains defaults for top-anchored popups.
type TopConfig struct {
	CornerRadius   float64  `toml:"corner_radius"`
	IgnoreSafeArea bool     `toml:"ignore_safe_area"`
	DragToDismiss  bool     `toml:"drag_to_dismiss"`
	DragThreshold  float64  `toml:"drag_threshold"` // 0.0-1.0 of popup height
	TapOutside     bool     `toml:"tap_outside_to_dismiss"`
	Stacked        bool     `toml:"stacked"`
	DismissAfter   Duration `toml:"dismiss_after"` // "0" = never
}

// CentreConfig contains defaults for centred popups.
type CentreConfig struct {
	CornerRadius      float64  `toml:"corner_radius"`
	HorizontalPadding float64  `toml:"horizontal_padding"`
	TapOutside        bool     `toml:"tap_outside_to_dismiss"`
	DismissAfter      Duration `toml:"dismiss_after"`
}

// BottomConfig contains defaults for bottom-anchored popups.
type BottomConfig struct {
	CornerRadius   float64   `toml:"corner_radius"`
	IgnoreSafeArea bool      `toml:"ignore_safe_area"`
	DragToDismiss  bool      `toml:"drag_to_dismiss"`
	DragThreshold  float64   `toml:"drag_threshold"`
	DragDetents    []float64 `toml:"drag_detents"`
	TapOutside     bool      `toml:"tap_outside_to_dismiss"`
	Stacked        bool      `toml:"stacked"`
	DismissAfter   Duration  `toml:"dismiss_after"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	defs := model.DefaultDefaults()
	return &Config{
		Stack: StackConfig{
			FallbackHeight: DefaultFallbackHeight,
			ReplacePolicy:  string(ReplaceMoveToTop),
		},
		Display: DisplayConfig{
			MaxVisible: DefaultMaxVisible,
		},
		Top: TopConfig{
			CornerRadius:   defs.Top.CornerRadius,
			IgnoreSafeArea: defs.Top.IgnoreSafeArea,
			DragToDismiss:  defs.Top.DragToDismiss,
			DragThreshold:  defs.Top.DragThreshold,
			TapOutside:     defs.Top.TapOutside,
			Stacked:        defs.Top.Stacked,
			DismissAfter:   Duration(defs.Top.DismissAfter),
		},
		Centre: CentreConfig{
			CornerRadius:      defs.Centre.CornerRadius,
			HorizontalPadding: defs.Centre.HorizontalPadding,
			TapOutside:        defs.Centre.TapOutside,
			DismissAfter:      Duration(defs.Centre.DismissAfter),
		},
		Bottom: BottomConfig{
			CornerRadius:   defs.Bottom.CornerRadius,
			IgnoreSafeArea: defs.Bottom.IgnoreSafeArea,
			DragToDismiss:  defs.Bottom.DragToDismiss,
			DragThreshold:  defs.Bottom.DragThreshold,
			DragDetents:    defs.Bottom.DragDetents,
			TapOutside:     defs.Bottom.TapOutside,
			Stacked:        defs.Bottom.Stacked,
			DismissAfter:   Duration(defs.Bottom.DismissAfter),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "popstack", "popstack.toml"), nil
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validPolicy := false
	for _, p := range ValidReplacePolicies() {
		if c.Stack.ReplacePolicy == string(p) {
			validPolicy = true
			break
		}
	}
	if !validPolicy {
		return fmt.Errorf("invalid replace_policy %q, must be one of: %v", c.Stack.ReplacePolicy, ValidReplacePolicies())
	}

	if c.Stack.FallbackHeight < 0 {
		return fmt.Errorf("fallback_height must not be negative, got %v", c.Stack.FallbackHeight)
	}
	if c.Display.MaxVisible < 1 || c.Display.MaxVisible > 20 {
		return fmt.Errorf("max_visible must be between 1 and 20, got %d", c.Display.MaxVisible)
	}

	for name, threshold := range map[string]float64{
		"top":    c.Top.DragThreshold,
		"bottom": c.Bottom.DragThreshold,
	} {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%s.drag_threshold must be between 0 and 1, got %v", name, threshold)
		}
	}

	for name, d := range map[string]Duration{
		"top":    c.Top.DismissAfter,
		"centre": c.Centre.DismissAfter,
		"bottom": c.Bottom.DismissAfter,
	} {
		if d < 0 {
			return fmt.Errorf("%s.dismiss_after must not be negative, got %s", name, d.Duration())
		}
	}

	return nil
}

// Policy returns the replace policy as a typed value.
func (c *Config) Policy() ReplacePolicy {
	return ReplacePolicy(c.Stack.ReplacePolicy)
}

// PopupDefaults converts the per-anchor sections into descriptor defaults.
func (c *Config) PopupDefaults() model.Defaults {
	return model.Defaults{
		Top: model.TopConfig{
			CornerRadius:   c.Top.CornerRadius,
			IgnoreSafeArea: c.Top.IgnoreSafeArea,
			DragToDismiss:  c.Top.DragToDismiss,
			DragThreshold:  c.Top.DragThreshold,
			TapOutside:     c.Top.TapOutside,
			Stacked:        c.Top.Stacked,
			DismissAfter:   c.Top.DismissAfter.Duration(),
		},
		Centre: model.CentreConfig{
			CornerRadius:      c.Centre.CornerRadius,
			HorizontalPadding: c.Centre.HorizontalPadding,
			TapOutside:        c.Centre.TapOutside,
			DismissAfter:      c.Centre.DismissAfter.Duration(),
		},
		Bottom: model.BottomConfig{
			CornerRadius:   c.Bottom.CornerRadius,
			IgnoreSafeArea: c.Bottom.IgnoreSafeArea,
			DragToDismiss:  c.Bottom.DragToDismiss,
			DragThreshold:  c.Bottom.DragThreshold,
			DragDetents:    append([]float64(nil), c.Bottom.DragDetents...),
			TapOutside:     c.Bottom.TapOutside,
			Stacked:        c.Bottom.Stacked,
			DismissAfter:   c.Bottom.DismissAfter.Duration(),
		},
	}
}
