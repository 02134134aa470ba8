package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/canopy/pkg/dataset"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Viewport != (view.Viewport{Width: 960, Height: 600}) {
		t.Errorf("viewport = %v", cfg.Viewport)
	}
	if cfg.Tree.RootExpanded {
		t.Error("root should start collapsed")
	}
	if cfg.View.Scale != view.DefaultScaleExtent {
		t.Errorf("scale = %v", cfg.View.Scale)
	}
	if cfg.Layout.NodeWidth != 100 || cfg.Layout.NodeHeight != 80 {
		t.Errorf("node size = %vx%v", cfg.Layout.NodeWidth, cfg.Layout.NodeHeight)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)

	original := Default()
	original.Dataset = "federation.yaml"
	original.Tree.RootExpanded = true
	original.Tree.Collapse = "shallow"
	original.View.Anchor = "top"
	original.Server.AllowedOrigins = []string{"http://localhost:3000"}
	original.Layout.NodeHeight = 120

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Dataset != original.Dataset {
		t.Errorf("dataset: got %q, want %q", loaded.Dataset, original.Dataset)
	}
	if !loaded.Tree.RootExpanded || loaded.Tree.Collapse != "shallow" {
		t.Errorf("tree: got %+v", loaded.Tree)
	}
	if loaded.View.Anchor != "top" {
		t.Errorf("anchor: got %q", loaded.View.Anchor)
	}
	if loaded.Layout.NodeHeight != 120 {
		t.Errorf("node_height: got %v", loaded.Layout.NodeHeight)
	}
	if len(loaded.Server.AllowedOrigins) != 1 || loaded.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("allowed_origins: got %v", loaded.Server.AllowedOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("viewport: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CANOPY_SERVER__ADDR", ":9000")
	t.Setenv("CANOPY_DATASET", "/data/tree.json")
	t.Setenv("CANOPY_LOG__LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Dataset != "/data/tree.json" {
		t.Errorf("dataset = %q", cfg.Dataset)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CANOPY_DATASET", "dataset"},
		{"CANOPY_SERVER__ADDR", "server.addr"},
		{"CANOPY_TREE__ROOT_EXPANDED", "tree.root_expanded"},
		{"CANOPY_VIEW__SCALE__MAX", "view.scale.max"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative viewport", func(c *Config) { c.Viewport.Width = -1 }},
		{"bad collapse", func(c *Config) { c.Tree.Collapse = "sideways" }},
		{"bad anchor", func(c *Config) { c.View.Anchor = "left" }},
		{"inverted scale", func(c *Config) { c.View.Scale = view.ScaleExtent{Min: 2, Max: 1} }},
		{"zero scale", func(c *Config) { c.View.Scale.Min = 0 }},
		{"negative padding", func(c *Config) { c.View.Padding = -4 }},
		{"negative node size", func(c *Config) { c.Layout.NodeWidth = -10 }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"negative cache size", func(c *Config) { c.Cache.MaxEntries = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Tree.Collapse = "shallow"
	cfg.View.Anchor = "top"
	cfg.View.Fit = true
	cfg.Layout.NodeWidth = 0

	tr, err := tree.New(dataset.Federation(), cfg.TreeOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Policy() != tree.CollapseShallow {
		t.Errorf("policy = %v, want shallow", tr.Policy())
	}

	opts := cfg.RecenterOptions()
	if opts.Anchor != view.AnchorTop || !opts.Fit || opts.Extent != view.DefaultScaleExtent {
		t.Errorf("RecenterOptions() = %+v", opts)
	}
	if lc := cfg.LayoutConfig(); lc.NodeWidth != 100 {
		t.Errorf("LayoutConfig().NodeWidth = %v, want defaulted 100", lc.NodeWidth)
	}
}

func TestExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "canopy.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config is invalid: %v", err)
	}
	if cfg.Dataset != "examples/federation.yaml" {
		t.Errorf("Dataset = %q", cfg.Dataset)
	}
	if cfg.View.Padding != 20 || cfg.Layout.NodeWidth != 100 {
		t.Errorf("view/layout not decoded: %+v %+v", cfg.View, cfg.Layout)
	}

	root, _, err := dataset.ReadFile(filepath.Join("..", "..", cfg.Dataset))
	if err != nil {
		t.Fatal(err)
	}
	if root.Count() != dataset.Federation().Count() {
		t.Errorf("example dataset has %d nodes, want %d", root.Count(), dataset.Federation().Count())
	}
}
