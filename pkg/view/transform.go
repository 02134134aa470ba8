package view

import (
	"fmt"
	"math"
	"strings"
)

// Transform is a translate-then-scale transform: screen = layout*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the transform that leaves coordinates unchanged.
var Identity = Transform{K: 1}

// Apply maps a layout point to screen space.
func (t Transform) Apply(p Point) Point {
	return Point{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to layout space.
func (t Transform) Invert(p Point) Point {
	k := t.K
	if k == 0 {
		k = 1
	}
	return Point{X: (p.X - t.X) / k, Y: (p.Y - t.Y) / k}
}

// String renders t as an SVG transform attribute value.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", trimFloat(t.X), trimFloat(t.Y), trimFloat(t.K))
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// ScaleExtent bounds the zoom factor.
type ScaleExtent struct {
	Min float64 `json:"min" koanf:"min" yaml:"min"`
	Max float64 `json:"max" koanf:"max" yaml:"max"`
}

// DefaultScaleExtent matches the zoom limits of the reference diagram.
var DefaultScaleExtent = ScaleExtent{Min: 0.6, Max: 1.5}

// Clamp limits k to the extent. An invalid extent (Min <= 0 or Min > Max)
// falls back to [DefaultScaleExtent].
func (e ScaleExtent) Clamp(k float64) float64 {
	if e.Min <= 0 || e.Min > e.Max {
		e = DefaultScaleExtent
	}
	if math.IsNaN(k) {
		return 1
	}
	return math.Max(e.Min, math.Min(e.Max, k))
}

// Anchor selects where [Recenter] places the visible bounding box.
type Anchor int

const (
	// AnchorCenter centers the bounding box in the viewport.
	AnchorCenter Anchor = iota
	// AnchorTop centers horizontally and pins the top row near the top edge.
	AnchorTop
)

// ParseAnchor converts "center" or "top" to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch s {
	case "", "center":
		return AnchorCenter, nil
	case "top":
		return AnchorTop, nil
	}
	return AnchorCenter, fmt.Errorf("invalid anchor %q (must be one of: center, top)", s)
}

// String implements fmt.Stringer.
func (a Anchor) String() string {
	if a == AnchorTop {
		return "top"
	}
	return "center"
}

// RecenterOptions tunes [Recenter].
type RecenterOptions struct {
	Anchor Anchor
	// Fit scales the diagram so the bounding box fits inside the padded
	// viewport, limited by Extent. When false the scale is 1.
	Fit       bool
	Extent    ScaleExtent
	Padding   float64
	TopMargin float64
}

// DefaultTopMargin is the distance between the top edge and the root when
// anchoring to the top.
const DefaultTopMargin = 40.0

// Recenter computes the transform that places the bounding box of points in
// vp according to opts. It depends only on its arguments.
func Recenter(points []Point, vp Viewport, opts RecenterOptions) Transform {
	vp = vp.Clamp()
	box, ok := Bounds(points)
	if !ok {
		c := vp.Center()
		return Transform{X: c.X, Y: c.Y, K: 1}
	}

	k := 1.0
	if opts.Fit {
		k = fitScale(box, vp, opts.Padding)
		k = opts.Extent.Clamp(k)
	}

	c := box.Center()
	t := Transform{K: k, X: vp.Width/2 - c.X*k}
	switch opts.Anchor {
	case AnchorTop:
		margin := opts.TopMargin
		if margin <= 0 {
			margin = DefaultTopMargin
		}
		t.Y = margin - box.MinY*k
	default:
		t.Y = vp.Height/2 - c.Y*k
	}
	return t
}

func fitScale(box Rect, vp Viewport, padding float64) float64 {
	availW := math.Max(vp.Width-2*padding, 1)
	availH := math.Max(vp.Height-2*padding, 1)
	k := math.Inf(1)
	if w := box.Width(); w > 0 {
		k = math.Min(k, availW/w)
	}
	if h := box.Height(); h > 0 {
		k = math.Min(k, availH/h)
	}
	if math.IsInf(k, 1) {
		return 1
	}
	return k
}

// Zoom multiplies the scale of t by factor, keeping the screen point focus
// fixed, and clamps the result to extent.
func Zoom(t Transform, factor float64, focus Point, extent ScaleExtent) Transform {
	if t.K == 0 {
		t.K = 1
	}
	world := t.Invert(focus)
	k := extent.Clamp(t.K * factor)
	return Transform{
		X: focus.X - world.X*k,
		Y: focus.Y - world.Y*k,
		K: k,
	}
}

// Pan translates t by (dx, dy) screen pixels.
func Pan(t Transform, dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}
