// Package config loads Canopy settings from a YAML file and the environment.
//
// Settings are layered: [Default] values, then the YAML file (when it
// exists), then CANOPY_* environment variables. Nested keys use a double
// underscore in the environment:
//
//	CANOPY_SERVER__ADDR=:9000      -> server.addr
//	CANOPY_TREE__ROOT_EXPANDED=1   -> tree.root_expanded
//	CANOPY_DATASET=./tree.yaml     -> dataset
//
// Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CANOPY_"

// DefaultFile is the config file looked up when none is named.
const DefaultFile = "canopy.yaml"

// Config is the top-level Canopy configuration, corresponding to canopy.yaml.
type Config struct {
	// Dataset is the path of the hierarchy to load. Empty selects the
	// built-in Federation sample.
	Dataset  string        `yaml:"dataset" koanf:"dataset"`
	Viewport view.Viewport `yaml:"viewport" koanf:"viewport"`
	Tree     TreeConfig    `yaml:"tree" koanf:"tree"`
	View     ViewConfig    `yaml:"view" koanf:"view"`
	Layout   layout.Config `yaml:"layout" koanf:"layout"`
	Server   ServerConfig  `yaml:"server" koanf:"server"`
	Cache    CacheConfig   `yaml:"cache" koanf:"cache"`
	Log      LogConfig     `yaml:"log" koanf:"log"`
}

// TreeConfig holds the initial visibility settings.
type TreeConfig struct {
	RootExpanded bool   `yaml:"root_expanded" koanf:"root_expanded"`
	Collapse     string `yaml:"collapse" koanf:"collapse"`
}

// ViewConfig controls recentering.
type ViewConfig struct {
	Anchor    string           `yaml:"anchor" koanf:"anchor"`
	Fit       bool             `yaml:"fit" koanf:"fit"`
	Padding   float64          `yaml:"padding" koanf:"padding"`
	TopMargin float64          `yaml:"top_margin" koanf:"top_margin"`
	Scale     view.ScaleExtent `yaml:"scale" koanf:"scale"`
}

// ServerConfig holds settings of the serve host.
type ServerConfig struct {
	Addr           string   `yaml:"addr" koanf:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	// Open launches the system browser once the server listens.
	Open bool `yaml:"open" koanf:"open"`
}

// CacheConfig controls the artifact cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
	// Dir overrides the file cache location (~/.cache/canopy).
	Dir string `yaml:"dir" koanf:"dir"`
	// MaxEntries bounds the in-memory cache of the serve host.
	MaxEntries int `yaml:"max_entries" koanf:"max_entries"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
}

// Default returns a Config with the reference settings.
func Default() *Config {
	return &Config{
		Viewport: view.Viewport{Width: 960, Height: 600},
		Tree:     TreeConfig{Collapse: tree.CollapseDeep.String()},
		View: ViewConfig{
			Anchor:    view.AnchorCenter.String(),
			TopMargin: view.DefaultTopMargin,
			Scale:     view.DefaultScaleExtent,
		},
		Layout: layout.DefaultConfig(),
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Cache:  CacheConfig{Enabled: true, MaxEntries: 256},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CANOPY_*). A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// envKey maps CANOPY_SERVER__ADDR to server.addr.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validLogLevels is the set of recognized log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions must be non-negative")
	}
	if _, err := tree.ParseCollapsePolicy(c.Tree.Collapse); err != nil {
		return fmt.Errorf("tree.collapse: %w", err)
	}
	if _, err := view.ParseAnchor(c.View.Anchor); err != nil {
		return fmt.Errorf("view.anchor: %w", err)
	}
	if c.View.Scale.Min <= 0 || c.View.Scale.Min > c.View.Scale.Max {
		return fmt.Errorf("view.scale: min must be positive and not above max, got [%g, %g]", c.View.Scale.Min, c.View.Scale.Max)
	}
	if c.View.Padding < 0 {
		return fmt.Errorf("view.padding must be non-negative")
	}
	if c.Layout.NodeWidth < 0 || c.Layout.NodeHeight < 0 {
		return fmt.Errorf("layout node size must be non-negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must be non-negative")
	}
	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// TreeOptions converts the tree section. Call Validate first.
func (c *Config) TreeOptions() []tree.Option {
	policy, _ := tree.ParseCollapsePolicy(c.Tree.Collapse)
	return []tree.Option{
		tree.WithRootExpanded(c.Tree.RootExpanded),
		tree.WithCollapsePolicy(policy),
	}
}

// RecenterOptions converts the view section. Call Validate first.
func (c *Config) RecenterOptions() view.RecenterOptions {
	anchor, _ := view.ParseAnchor(c.View.Anchor)
	return view.RecenterOptions{
		Anchor:    anchor,
		Fit:       c.View.Fit,
		Extent:    c.View.Scale,
		Padding:   c.View.Padding,
		TopMargin: c.View.TopMargin,
	}
}

// LayoutConfig returns the layout section with zero fields defaulted.
func (c *Config) LayoutConfig() layout.Config {
	cfg := c.Layout
	cfg.SetDefaults()
	return cfg
}
