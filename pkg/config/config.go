// Package config handles loading and saving kerrigan configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/kerrigan/config.yaml
//   - Data:    ~/.local/share/kerrigan/ (records database)
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/kerrigan/pkg/encode"
	"github.com/vanderheijden86/kerrigan/pkg/filter"
	"github.com/vanderheijden86/kerrigan/pkg/layout"
	"github.com/vanderheijden86/kerrigan/pkg/loader"
	"github.com/vanderheijden86/kerrigan/pkg/model"
	"github.com/vanderheijden86/kerrigan/pkg/validate"
)

const appName = "kerrigan"

// DatasetConfig locates the graph dataset.
type DatasetConfig struct {
	Source   string `yaml:"source,omitempty"`                                          // URL or path; empty means auto-discover
	Dangling string `yaml:"dangling,omitempty" validate:"omitempty,oneof=drop reject"` // policy for links to unknown nodes
}

// FilterConfig selects which thresholds are active.
type FilterConfig struct {
	Predicates []string `yaml:"predicates,omitempty" validate:"dive,oneof=strength time risk"`
}

// EncodeConfig tunes the visual encoding.
type EncodeConfig struct {
	ColorBy       string  `yaml:"color_by,omitempty" validate:"omitempty,oneof=strength risk"`
	DistanceScale float64 `yaml:"distance_scale,omitempty" validate:"gte=0"`
	WidthScale    float64 `yaml:"width_scale,omitempty" validate:"gte=0"`
	MinWidth      float64 `yaml:"min_width,omitempty" validate:"gte=0"`
	Highlight     string  `yaml:"highlight,omitempty"` // #rrggbb
	Default       string  `yaml:"default,omitempty"`   // #rrggbb
}

// LayoutConfig tunes the force simulation.
type LayoutConfig struct {
	VelocityDecay float64 `yaml:"velocity_decay,omitempty" validate:"gte=0,lte=1"`
	AlphaDecay    float64 `yaml:"alpha_decay,omitempty" validate:"gte=0,lte=1"`
	Charge        float64 `yaml:"charge,omitempty"`
	LinkStrength  float64 `yaml:"link_strength,omitempty" validate:"gte=0"`
}

// StoreConfig locates the records database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SessionConfig names the signed-in user.
type SessionConfig struct {
	User string `yaml:"user,omitempty"`
}

// ServerConfig configures -serve mode.
type ServerConfig struct {
	Addr        string   `yaml:"addr,omitempty" validate:"required"`
	DataFile    string   `yaml:"data_file,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	HideSliders bool   `yaml:"hide_sliders,omitempty"`
	Timeframe   string `yaml:"timeframe,omitempty" validate:"omitempty,oneof=1D 5D 1M 1Y 5Y Max"`
}

// Config is the top-level configuration for kerrigan.
type Config struct {
	Dataset DatasetConfig `yaml:"dataset,omitempty"`
	Filter  FilterConfig  `yaml:"filter,omitempty"`
	Encode  EncodeConfig  `yaml:"encode,omitempty"`
	Layout  LayoutConfig  `yaml:"layout,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Session SessionConfig `yaml:"session,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	UI      UIConfig      `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	enc := encode.DefaultConfig()
	lp := layout.DefaultParams()
	return Config{
		Dataset: DatasetConfig{Dangling: string(loader.DanglingDrop)},
		Filter:  FilterConfig{Predicates: []string{"strength", "time", "risk"}},
		Encode: EncodeConfig{
			ColorBy:       string(enc.ColorBy),
			DistanceScale: enc.DistanceScale,
			WidthScale:    enc.WidthScale,
			MinWidth:      enc.MinWidth,
			Highlight:     encode.CSS(enc.Highlight),
			Default:       encode.CSS(enc.Default),
		},
		Layout: LayoutConfig{
			VelocityDecay: lp.VelocityDecay,
			AlphaDecay:    lp.AlphaDecay,
			Charge:        lp.Charge,
		},
		Store: StoreConfig{Path: filepath.Join(DataDir(), "records.db")},
		Server: ServerConfig{
			Addr:        ":8080",
			DataFile:    loader.DatasetFileName,
			CORSOrigins: []string{"*"},
		},
		UI: UIConfig{Timeframe: "1D"},
	}
}

// ConfigDir returns the XDG config directory for kerrigan.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory for kerrigan.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)
	if !loader.IsRemote(cfg.Dataset.Source) {
		cfg.Dataset.Source = expandHome(cfg.Dataset.Source)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks field constraints and color syntax.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, hex := range []string{c.Encode.Highlight, c.Encode.Default} {
		if hex == "" {
			continue
		}
		if _, err := parseHex(hex); err != nil {
			return err
		}
	}
	return nil
}

// Predicates returns the active filter predicates. An empty list means all.
func (c Config) Predicates() filter.Predicate {
	if len(c.Filter.Predicates) == 0 {
		return filter.AllPredicates
	}
	p, err := filter.ParsePredicates(c.Filter.Predicates)
	if err != nil {
		return filter.AllPredicates
	}
	return p
}

// DanglingPolicy returns the loader policy.
func (c Config) DanglingPolicy() loader.DanglingPolicy {
	p := loader.DanglingPolicy(c.Dataset.Dangling)
	if !p.IsValid() {
		return loader.DanglingDrop
	}
	return p
}

// Encoder builds the encoder configuration. Invalid colors keep defaults.
func (c Config) Encoder() encode.Config {
	ec := encode.Config{
		ColorBy:       model.Attribute(c.Encode.ColorBy),
		DistanceScale: c.Encode.DistanceScale,
		WidthScale:    c.Encode.WidthScale,
		MinWidth:      c.Encode.MinWidth,
	}
	if rgba, err := parseHex(c.Encode.Highlight); err == nil {
		ec.Highlight = rgba
	}
	if rgba, err := parseHex(c.Encode.Default); err == nil {
		ec.Default = rgba
	}
	return ec
}

// LayoutParams merges the layout section into the simulation defaults.
func (c Config) LayoutParams() layout.Params {
	p := layout.DefaultParams()
	if c.Layout.VelocityDecay > 0 {
		p.VelocityDecay = c.Layout.VelocityDecay
	}
	if c.Layout.AlphaDecay > 0 {
		p.AlphaDecay = c.Layout.AlphaDecay
	}
	if c.Layout.Charge != 0 {
		p.Charge = c.Layout.Charge
	}
	p.LinkStrength = c.Layout.LinkStrength
	return p
}

func parseHex(s string) (color.RGBA, error) {
	var r, g, b uint8
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("color %q must be #rrggbb", s)
	}
	if _, err := fmt.Sscanf(strings.ToLower(s[1:]), "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("color %q must be #rrggbb", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
