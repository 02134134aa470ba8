package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/pkg/pipeline"
	"github.com/matzehuels/canopy/pkg/view"
)

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "dot", []string{"dot"}},
		{"multiple formats", "svg,dot,json", []string{"svg", "dot", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseFormats(tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBasePath(t *testing.T) {
	tests := []struct {
		output, input, want string
	}{
		{"", "", "federation"},
		{"", "data/tree.yaml", "data/tree"},
		{"", "https://example.com/trees/org.json?v=2", "org"},
		{"out/snap.svg", "tree.yaml", "out/snap"},
		{"out/snap.json", "", "out/snap"},
		{"out/snap", "tree.yaml", "out/snap"},
		{"out/snap.txt", "", "out/snap.txt"},
	}

	for _, tt := range tests {
		if got := basePath(tt.output, tt.input); got != tt.want {
			t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
		}
	}
}

func TestOutputPaths(t *testing.T) {
	single := outputPaths([]string{"dot"}, "tree.yaml", "diagram.gv")
	if single["dot"] != "diagram.gv" {
		t.Errorf("single format path = %q, want the output verbatim", single["dot"])
	}

	multi := outputPaths([]string{"svg", "graphviz-svg", "json"}, "tree.yaml", "")
	want := map[string]string{
		"svg":          "tree.svg",
		"graphviz-svg": "tree.graphviz.svg",
		"json":         "tree.json",
	}
	for f, p := range want {
		if multi[f] != p {
			t.Errorf("outputPaths[%s] = %q, want %q", f, multi[f], p)
		}
	}
}

func TestCacheDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("XDG_CACHE_HOME", dir)

		got, err := cacheDir()
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(dir, "canopy"); got != want {
			t.Errorf("cacheDir() = %q, want %q", got, want)
		}
	})

	t.Run("home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("XDG_CACHE_HOME", "")
		t.Setenv("HOME", home)

		got, err := cacheDir()
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(home, ".cache", "canopy"); got != want {
			t.Errorf("cacheDir() = %q, want %q", got, want)
		}
	})

	t.Run("configured", func(t *testing.T) {
		c := New(&bytes.Buffer{}, LogInfo)
		c.Config.Cache.Dir = "/tmp/canopy-cache"

		got, err := c.resolveCacheDir()
		if err != nil {
			t.Fatal(err)
		}
		if got != "/tmp/canopy-cache" {
			t.Errorf("resolveCacheDir() = %q, want the configured directory", got)
		}
	})
}

func TestApplyConfig(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	c.Config.Dataset = "configured.yaml"
	c.Config.Viewport = view.Viewport{Width: 800, Height: 500}
	c.Config.View.Anchor = "top"

	var opts pipeline.Options
	cmd := &cobra.Command{Use: "test"}
	addTreeFlags(cmd, &opts)
	addViewFlags(cmd, &opts)
	if err := cmd.Flags().Set("width", "1200"); err != nil {
		t.Fatal(err)
	}

	c.applyConfig(cmd, &opts)

	if opts.Width != 1200 {
		t.Errorf("Width = %v, want the flag value 1200", opts.Width)
	}
	if opts.Height != 500 {
		t.Errorf("Height = %v, want the configured 500", opts.Height)
	}
	if opts.Dataset != "configured.yaml" {
		t.Errorf("Dataset = %q, want the configured dataset", opts.Dataset)
	}
	if opts.Anchor != "top" {
		t.Errorf("Anchor = %q, want top", opts.Anchor)
	}
	if opts.Logger != c.Logger {
		t.Error("applyConfig should pass the CLI logger on")
	}
}

// runCLI executes the root command with args and no config file.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "snap")

	err := runCLI(t, "render", "-o", base, "-f", "svg,json", "--no-cache", "-e", "Federation/Faction A")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(base + ".svg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "Faction A2") {
		t.Error("svg should contain the expanded node Faction A2")
	}
	if strings.Contains(string(svg), "Faction C1") {
		t.Error("svg should not contain the hidden node Faction C1")
	}

	if _, err := os.Stat(base + ".json"); err != nil {
		t.Errorf("json artifact missing: %v", err)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"render", "-f", "png", "--no-cache"}},
		{"unknown expand path", []string{"render", "-e", "Federation/Nobody", "--no-cache", "-o", "-"}},
		{"missing dataset", []string{"render", "does-not-exist.yaml", "--no-cache"}},
		{"bad collapse policy", []string{"render", "--collapse", "sideways", "--no-cache"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, tt.args...); err == nil {
				t.Errorf("%v: expected an error", tt.args)
			}
		})
	}
}

func TestLayoutCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "layout.json")

	if err := runCLI(t, "layout", "-o", out, "--no-cache", "-e", "Federation"); err != nil {
		t.Fatalf("layout: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var doc layoutDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}

	var paths []string
	for _, n := range doc.Nodes {
		paths = append(paths, n.Path)
	}
	want := []string{"Federation", "Federation/Faction A", "Federation/Faction B", "Federation/Faction C"}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if doc.Source != "builtin:federation" {
		t.Errorf("source = %q", doc.Source)
	}
	if doc.Viewport.Width != pipeline.DefaultWidth {
		t.Errorf("viewport width = %v, want %v", doc.Viewport.Width, pipeline.DefaultWidth)
	}
	if doc.Nodes[1].Y <= doc.Nodes[0].Y {
		t.Errorf("children should sit below the root: %+v", doc.Nodes[:2])
	}
}
