// Package layout computes positions for the visible nodes of a [tree.Tree].
//
// The [Engine] interface is the layout collaborator used by the controller.
// [Tidy] implements the Buchheim/Walker tidy-tree algorithm in linear time:
// nodes at the same depth share a generation coordinate (y) and siblings are
// ordered and separated along the breadth axis (x). Only nodes reachable
// through expanded parents take part.
//
// # Sizing
//
// In the default node-size mode each unit of breadth separation is
// NodeWidth pixels and each generation is NodeHeight pixels, with the root
// at (0, 0). In [Config.Fit] mode the diagram is instead scaled to the
// viewport, the same way a fixed-size tree layout would be.
//
// Viewports narrower than [Config.CompactBreakpoint] switch to the compact
// spacing and smaller render [Hints].
package layout

import (
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// Engine computes positions for the currently visible nodes.
type Engine interface {
	Layout(t *tree.Tree, vp view.Viewport) Result
}

// Hints carry size decisions the renderer should apply.
type Hints struct {
	Compact    bool    `json:"compact"`
	NodeRadius float64 `json:"node_radius"`
	FontSize   float64 `json:"font_size"`
}

// Result is the output of a layout pass.
type Result struct {
	Positions map[tree.ID]view.Point `json:"positions"`
	Bounds    view.Rect              `json:"bounds"`
	Viewport  view.Viewport          `json:"viewport"`
	Hints     Hints                  `json:"hints"`
}

// Points returns the positions of the given nodes in order, skipping nodes
// without a position.
func (r Result) Points(nodes []*tree.Node) []view.Point {
	out := make([]view.Point, 0, len(nodes))
	for _, n := range nodes {
		if p, ok := r.Positions[n.ID()]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Config tunes the [Tidy] engine.
type Config struct {
	NodeWidth         float64 `koanf:"node_width" yaml:"node_width"`
	NodeHeight        float64 `koanf:"node_height" yaml:"node_height"`
	CompactNodeWidth  float64 `koanf:"compact_node_width" yaml:"compact_node_width"`
	CompactNodeHeight float64 `koanf:"compact_node_height" yaml:"compact_node_height"`
	CompactBreakpoint float64 `koanf:"compact_breakpoint" yaml:"compact_breakpoint"`
	NodeRadius        float64 `koanf:"node_radius" yaml:"node_radius"`
	CompactNodeRadius float64 `koanf:"compact_node_radius" yaml:"compact_node_radius"`
	FontSize          float64 `koanf:"font_size" yaml:"font_size"`
	CompactFontSize   float64 `koanf:"compact_font_size" yaml:"compact_font_size"`
	// Fit scales the layout into the viewport instead of using fixed
	// node spacing.
	Fit bool `koanf:"fit" yaml:"fit"`
	// Margin is the padding kept on each side in Fit mode.
	Margin float64 `koanf:"margin" yaml:"margin"`
	// Separation returns the breadth gap between two neighbouring nodes in
	// units of node width. Nil uses [DefaultSeparation].
	Separation func(a, b *tree.Node) float64 `json:"-" koanf:"-" yaml:"-"`
}

// Defaults matching the reference diagram.
const (
	DefaultNodeWidth         = 100.0
	DefaultNodeHeight        = 80.0
	DefaultCompactNodeWidth  = 100.0
	DefaultCompactNodeHeight = 70.0
	DefaultCompactBreakpoint = 500.0
	DefaultNodeRadius        = 15.0
	DefaultCompactNodeRadius = 12.0
	DefaultFontSize          = 12.0
	DefaultCompactFontSize   = 10.0
	DefaultMargin            = 40.0
)

// DefaultConfig returns the reference sizing.
func DefaultConfig() Config {
	return Config{
		NodeWidth:         DefaultNodeWidth,
		NodeHeight:        DefaultNodeHeight,
		CompactNodeWidth:  DefaultCompactNodeWidth,
		CompactNodeHeight: DefaultCompactNodeHeight,
		CompactBreakpoint: DefaultCompactBreakpoint,
		NodeRadius:        DefaultNodeRadius,
		CompactNodeRadius: DefaultCompactNodeRadius,
		FontSize:          DefaultFontSize,
		CompactFontSize:   DefaultCompactFontSize,
		Margin:            DefaultMargin,
	}
}

// SetDefaults fills zero-valued fields from [DefaultConfig].
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	setIfZero(&c.NodeWidth, d.NodeWidth)
	setIfZero(&c.NodeHeight, d.NodeHeight)
	setIfZero(&c.CompactNodeWidth, d.CompactNodeWidth)
	setIfZero(&c.CompactNodeHeight, d.CompactNodeHeight)
	setIfZero(&c.CompactBreakpoint, d.CompactBreakpoint)
	setIfZero(&c.NodeRadius, d.NodeRadius)
	setIfZero(&c.CompactNodeRadius, d.CompactNodeRadius)
	setIfZero(&c.FontSize, d.FontSize)
	setIfZero(&c.CompactFontSize, d.CompactFontSize)
	setIfZero(&c.Margin, d.Margin)
}

func setIfZero(dst *float64, v float64) {
	if *dst <= 0 {
		*dst = v
	}
}

// DefaultSeparation keeps siblings one unit apart and cousins two.
func DefaultSeparation(a, b *tree.Node) float64 {
	if a.Parent() == b.Parent() {
		return 1
	}
	return 2
}
