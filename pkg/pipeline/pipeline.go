// Package pipeline provides the static rendering pipeline for Canopy.
//
// This package implements the complete load → state → layout → render
// pipeline used by the CLI commands that write artifacts (render, layout) and
// by the serve host's one-shot export endpoint. By centralizing this logic,
// every entry point produces the same bytes for the same inputs.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Read the dataset (JSON, YAML or TOML) or use the built-in sample
//  2. State: Build the tree and apply the requested expansions
//  3. Layout: Position the visible nodes and recenter the view
//  4. Render: Generate output in various formats (SVG, DOT, Graphviz SVG, JSON)
//
// Layout and render results are cached by content hash.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Dataset: "federation.yaml",
//	    Expand:  []string{"Federation/Faction A"},
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canopy/pkg/cache"
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default viewport width in pixels.
	DefaultWidth = 960.0

	// DefaultHeight is the default viewport height in pixels.
	DefaultHeight = 600.0

	// ExpandAll as an Expand entry shows every node.
	ExpandAll = "*"

	// PathSeparator splits label paths in Expand entries.
	PathSeparator = "/"
)

// Format constants for output formats.
const (
	FormatSVG         = "svg"
	FormatDOT         = "dot"
	FormatGraphvizSVG = "graphviz-svg"
	FormatJSON        = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:         true,
	FormatDOT:         true,
	FormatGraphvizSVG: true,
	FormatJSON:        true,
}

// Extension returns the file extension conventionally used for format.
func Extension(format string) string {
	switch format {
	case FormatDOT:
		return ".dot"
	case FormatGraphvizSVG:
		return ".graphviz.svg"
	case FormatJSON:
		return ".json"
	default:
		return ".svg"
	}
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options
	Dataset string `json:"dataset,omitempty"` // Path; empty uses the built-in sample
	Refresh bool   `json:"refresh,omitempty"`

	// State options
	Expand       []string `json:"expand,omitempty"` // Label paths or "*"
	RootExpanded bool     `json:"root_expanded,omitempty"`
	Collapse     string   `json:"collapse,omitempty"`

	// Layout options
	Width  float64       `json:"width,omitempty"`
	Height float64       `json:"height,omitempty"`
	Fit    bool          `json:"fit,omitempty"` // Fit the tree into the viewport width
	Layout layout.Config `json:"-"`

	// View options
	Anchor     string  `json:"anchor,omitempty"`
	ScaleToFit bool    `json:"scale_to_fit,omitempty"`
	Padding    float64 `json:"padding,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Title       string   `json:"title,omitempty"`
	Static      bool     `json:"static,omitempty"`
	NoGlow      bool     `json:"no_glow,omitempty"`
	Detailed    bool     `json:"detailed,omitempty"`
	LeftToRight bool     `json:"left_to_right,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Tree is the tree in the requested visibility state.
	Tree *tree.Tree

	// DatasetHash is the content hash of the dataset.
	DatasetHash string

	// Layout holds the positions of the visible nodes.
	Layout layout.Result

	// Frame is the first-paint frame the artifacts were rendered from.
	Frame render.Frame

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	VisibleCount int
	LoadTime     time.Duration
	LayoutTime   time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether layout result came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, dot, graphviz-svg, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateExpand checks that every Expand entry is "*" or a non-empty label
// path.
func ValidateExpand(paths []string) error {
	for _, p := range paths {
		if p == ExpandAll {
			continue
		}
		for _, label := range SplitPath(p) {
			if label == "" {
				return fmt.Errorf("invalid expand path %q: empty label", p)
			}
		}
	}
	return nil
}

// SplitPath splits "Federation/Faction A" into its labels.
func SplitPath(p string) []string {
	return strings.Split(p, PathSeparator)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForState(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForState checks the tree construction options.
func (o *Options) ValidateForState() error {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if _, err := tree.ParseCollapsePolicy(o.Collapse); err != nil {
		return err
	}
	return ValidateExpand(o.Expand)
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	o.Layout.SetDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("viewport dimensions must be non-negative, got %vx%v", o.Width, o.Height)
	}
	if _, err := view.ParseAnchor(o.Anchor); err != nil {
		return err
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// TreeOptions returns the tree construction options.
func (o *Options) TreeOptions() []tree.Option {
	policy, _ := tree.ParseCollapsePolicy(o.Collapse)
	return []tree.Option{
		tree.WithRootExpanded(o.RootExpanded),
		tree.WithCollapsePolicy(policy),
	}
}

// Viewport returns the clamped viewport.
func (o *Options) Viewport() view.Viewport {
	return view.Viewport{Width: o.Width, Height: o.Height}.Clamp()
}

// RecenterOptions returns the recenter policy.
func (o *Options) RecenterOptions() view.RecenterOptions {
	anchor, _ := view.ParseAnchor(o.Anchor)
	return view.RecenterOptions{Anchor: anchor, Fit: o.ScaleToFit, Padding: o.Padding}
}

// LayoutConfig returns the engine settings with Fit applied.
func (o *Options) LayoutConfig() layout.Config {
	cfg := o.Layout
	cfg.SetDefaults()
	cfg.Fit = cfg.Fit || o.Fit
	return cfg
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts(t *tree.Tree) cache.LayoutKeyOpts {
	ids := t.ExpandedIDs()
	expanded := make([]string, len(ids))
	for i, id := range ids {
		expanded[i] = string(id)
	}
	engine, _ := cache.HashJSON(o.LayoutConfig())
	vp := o.Viewport()
	return cache.LayoutKeyOpts{
		Expanded: expanded,
		Width:    vp.Width,
		Height:   vp.Height,
		Fit:      o.Fit,
		Engine:   engine,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Title:       o.Title,
		Static:      o.Static,
		NoGlow:      o.NoGlow,
		Detailed:    o.Detailed,
		LeftToRight: o.LeftToRight,
	}
}

// SourceName describes where the dataset comes from, for logs.
func (o *Options) SourceName() string {
	if o.Dataset == "" {
		return "builtin:federation"
	}
	return o.Dataset
}
