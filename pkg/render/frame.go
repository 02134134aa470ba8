package render

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// DefaultDuration is the transition length used by renderers.
const DefaultDuration = 800 * time.Millisecond

// FrameKind distinguishes full layout frames from pure pan/zoom frames.
type FrameKind string

const (
	// KindLayout frames carry node and link transitions.
	KindLayout FrameKind = "layout"
	// KindTransform frames only change the display transform.
	KindTransform FrameKind = "transform"
)

// NodeTransition animates one node from From to the placement's Position.
type NodeTransition struct {
	Placement
	From view.Point `json:"from"`
	To   view.Point `json:"to"`
}

// LinkTransition animates one link, keyed by its target node.
type LinkTransition struct {
	Source tree.ID `json:"source"`
	Target tree.ID `json:"target"`
	From   Path    `json:"from"`
	To     Path    `json:"to"`
}

// Frame is everything a renderer needs to draw one state change.
type Frame struct {
	Seq    uint64    `json:"seq"`
	Kind   FrameKind `json:"kind"`
	Source tree.ID   `json:"source,omitempty"`

	Entered []NodeTransition `json:"entered"`
	Updated []NodeTransition `json:"updated"`
	Exited  []NodeTransition `json:"exited"`

	LinksEntered []LinkTransition `json:"links_entered"`
	LinksUpdated []LinkTransition `json:"links_updated"`
	LinksExited  []LinkTransition `json:"links_exited"`

	Transform view.Transform `json:"transform"`
	Viewport  view.Viewport  `json:"viewport"`
	Hints     layout.Hints   `json:"hints"`
	Duration  time.Duration  `json:"-"`
	// Navigate is the link the host should open in response to this
	// frame's click, if any.
	Navigate string `json:"navigate,omitempty"`
}

// Visible returns the nodes that remain on screen once the frame's
// transitions finish: entered nodes first, then updated ones.
func (f Frame) Visible() []NodeTransition {
	out := make([]NodeTransition, 0, len(f.Entered)+len(f.Updated))
	out = append(out, f.Entered...)
	out = append(out, f.Updated...)
	return out
}

// Empty reports whether the frame changes nothing on screen.
func (f Frame) Empty() bool {
	return len(f.Entered) == 0 && len(f.Exited) == 0 && f.Kind != KindTransform && !f.moved()
}

func (f Frame) moved() bool {
	for _, n := range f.Updated {
		if n.From != n.To {
			return true
		}
	}
	return false
}

// D returns the SVG path data for the vertical cubic curve from p.From to
// p.To.
func (p Path) D() string {
	midY := (p.From.Y + p.To.Y) / 2
	return fmt.Sprintf("M%s,%s C%s,%s %s,%s %s,%s",
		num(p.From.X), num(p.From.Y),
		num(p.From.X), num(midY),
		num(p.To.X), num(midY),
		num(p.To.X), num(p.To.Y))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Renderer draws frames. Implementations must not retain the frame's
// slices after Render returns.
type Renderer interface {
	Render(ctx context.Context, f Frame) error
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, f Frame) error

// Render implements [Renderer].
func (fn RendererFunc) Render(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Discard is a renderer that drops every frame.
var Discard Renderer = RendererFunc(func(context.Context, Frame) error { return nil })

// Multi fans a frame out to several renderers, stopping at the first error.
type Multi []Renderer

// Render implements [Renderer].
func (m Multi) Render(ctx context.Context, f Frame) error {
	for _, r := range m {
		if err := r.Render(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// Latest keeps only the most recent frame. It is the in-memory sink used by
// static exports and tests.
type Latest struct {
	frame Frame
	count int
}

// Render implements [Renderer].
func (l *Latest) Render(_ context.Context, f Frame) error {
	l.frame = f
	l.count++
	return nil
}

// Frame returns the last rendered frame.
func (l *Latest) Frame() Frame { return l.frame }

// Count returns how many frames were rendered.
func (l *Latest) Count() int { return l.count }
