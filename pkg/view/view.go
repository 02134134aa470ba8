// Package view holds the 2D geometry shared by layout, rendering and hosts:
// points, bounding boxes, the host viewport and the pan/zoom transform
// applied to the diagram's display group.
//
// # Viewport clamping
//
// Hosts report their container size on every resize. A zero, negative or
// NaN dimension is never an error; [Viewport.Clamp] raises it to
// [MinWidth] x [MinHeight] so later arithmetic cannot divide by zero.
//
// # Recentering
//
// [Recenter] is a pure function of the visible positions and the viewport,
// so calling it twice with no state change in between yields the same
// [Transform].
package view

import (
	"fmt"
	"math"
)

// Minimum usable viewport size. Smaller (or invalid) dimensions are clamped.
const (
	MinWidth  = 100.0
	MinHeight = 100.0
)

// Point is a 2D coordinate in layout space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Center returns the midpoint of the box.
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Bounds returns the bounding box of points. ok is false for an empty slice.
func Bounds(points []Point) (r Rect, ok bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	r = Rect{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range points {
		r.MinX = math.Min(r.MinX, p.X)
		r.MinY = math.Min(r.MinY, p.Y)
		r.MaxX = math.Max(r.MaxX, p.X)
		r.MaxY = math.Max(r.MaxY, p.Y)
	}
	return r, true
}

// Viewport is the size of the host container in pixels.
type Viewport struct {
	Width  float64 `json:"width" koanf:"width" yaml:"width"`
	Height float64 `json:"height" koanf:"height" yaml:"height"`
}

// Clamp returns v with each dimension raised to the usable minimum.
// NaN and negative values are treated as zero.
func (v Viewport) Clamp() Viewport {
	if !(v.Width >= MinWidth) {
		v.Width = MinWidth
	}
	if !(v.Height >= MinHeight) {
		v.Height = MinHeight
	}
	if math.IsInf(v.Width, 1) {
		v.Width = MinWidth
	}
	if math.IsInf(v.Height, 1) {
		v.Height = MinHeight
	}
	return v
}

// Center returns the midpoint of the viewport.
func (v Viewport) Center() Point { return Point{X: v.Width / 2, Y: v.Height / 2} }

// String formats the viewport as "WxH".
func (v Viewport) String() string { return fmt.Sprintf("%.0fx%.0f", v.Width, v.Height) }
