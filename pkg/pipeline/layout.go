package pipeline

import (
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout positions the visible nodes of t with the tidy tree engine.
func GenerateLayout(t *tree.Tree, opts Options) layout.Result {
	return layout.NewTidy(opts.LayoutConfig()).Layout(t, opts.Viewport())
}

// BuildFrame turns a layout into the first-paint frame: every visible node
// enters from the root, and the view is recentered on the result.
func BuildFrame(t *tree.Tree, r layout.Result, opts Options) render.Frame {
	snap := render.Capture(t, r)
	frame := render.Diff(render.Snapshot{}, snap, t.Root().ID())
	frame.Seq = 1
	frame.Viewport = opts.Viewport()
	frame.Transform = view.Recenter(snap.Points(), frame.Viewport, opts.RecenterOptions())
	return frame
}
