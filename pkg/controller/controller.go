// Package controller drives an interactive tree diagram.
//
// A [Controller] owns every piece of mutable view state: the tree's
// visibility, the viewport, the last rendered [render.Snapshot] (the
// "previous positions" transitions start from) and the current display
// transform. Each interaction runs to completion before the next one:
//
//	toggle → layout → diff against the previous snapshot → recenter → render
//
// A Controller is not safe for concurrent use. Hosts that receive events on
// several goroutines funnel them through a [Loop], which applies them one at
// a time and fans the resulting frames out to subscribers.
//
// # Usage
//
//	t, _ := tree.New(dataset.Federation())
//	c := controller.New(t, controller.Options{
//	    Renderer: svgRenderer,
//	    Viewport: view.Viewport{Width: 960, Height: 600},
//	})
//	c.Start(ctx)
//	frame, err := c.Click(ctx, t.Root().ID())
package controller

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	cerrors "github.com/matzehuels/canopy/pkg/errors"
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/observability"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// DefaultViewport is used when Options.Viewport is left zero.
var DefaultViewport = view.Viewport{Width: 960, Height: 600}

// =============================================================================
// Options
// =============================================================================

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	// Engine positions visible nodes. Defaults to a tidy tree engine with
	// layout.DefaultConfig.
	Engine layout.Engine

	// Renderer receives every frame. Defaults to render.Discard.
	Renderer render.Renderer

	// Navigator opens links of clicked nodes. Defaults to NopNavigator.
	Navigator Navigator

	// Logger defaults to a logger that discards everything.
	Logger *log.Logger

	// Viewport is the initial viewport. Defaults to DefaultViewport.
	Viewport view.Viewport

	// Recenter controls how the view is positioned after each layout.
	Recenter view.RecenterOptions

	// Duration overrides render.DefaultDuration on emitted frames.
	Duration time.Duration
}

func (o *Options) setDefaults() {
	if o.Engine == nil {
		o.Engine = layout.NewTidy(layout.DefaultConfig())
	}
	if o.Renderer == nil {
		o.Renderer = render.Discard
	}
	if o.Navigator == nil {
		o.Navigator = NopNavigator{}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Viewport == (view.Viewport{}) {
		o.Viewport = DefaultViewport
	}
	if o.Duration <= 0 {
		o.Duration = render.DefaultDuration
	}
}

// =============================================================================
// Controller
// =============================================================================

// Controller applies interactions to a tree and renders the outcome.
type Controller struct {
	tree      *tree.Tree
	engine    layout.Engine
	renderer  render.Renderer
	navigator Navigator
	logger    *log.Logger
	recenter  view.RecenterOptions
	duration  time.Duration

	viewport  view.Viewport
	snapshot  render.Snapshot
	result    layout.Result
	transform view.Transform
	seq       uint64
	started   bool
}

// New creates a controller for t. Nothing is laid out or rendered until
// [Controller.Start].
func New(t *tree.Tree, opts Options) *Controller {
	opts.setDefaults()
	return &Controller{
		tree:      t,
		engine:    opts.Engine,
		renderer:  opts.Renderer,
		navigator: opts.Navigator,
		logger:    opts.Logger,
		recenter:  opts.Recenter,
		duration:  opts.Duration,
		viewport:  opts.Viewport.Clamp(),
		transform: view.Identity,
	}
}

// Tree returns the controlled tree.
func (c *Controller) Tree() *tree.Tree { return c.tree }

// Viewport returns the current (clamped) viewport.
func (c *Controller) Viewport() view.Viewport { return c.viewport }

// Transform returns the current display transform.
func (c *Controller) Transform() view.Transform { return c.transform }

// Snapshot returns the placements of the last rendered frame.
func (c *Controller) Snapshot() render.Snapshot { return c.snapshot }

// Layout returns the most recent layout result.
func (c *Controller) Layout() layout.Result { return c.result }

// Seq returns the sequence number of the last emitted frame.
func (c *Controller) Seq() uint64 { return c.seq }

// Started reports whether Start has run.
func (c *Controller) Started() bool { return c.started }

// =============================================================================
// Interactions
// =============================================================================

// Start performs the first layout and render. Every visible node enters
// from the root's position.
func (c *Controller) Start(ctx context.Context) (render.Frame, error) {
	c.started = true
	return c.update(ctx, c.tree.Root().ID(), "")
}

// Click toggles the node and, independently, opens its link. A leaf click
// still navigates; a link never prevents the toggle. Only nodes currently
// on screen can be clicked; others return [tree.ErrHiddenNode].
func (c *Controller) Click(ctx context.Context, id tree.ID) (render.Frame, error) {
	n, err := c.tree.Get(id)
	if err != nil {
		return render.Frame{}, err
	}
	if !c.tree.IsVisible(n) {
		return render.Frame{}, cerrors.Wrap(cerrors.ErrCodeHiddenNode, tree.ErrHiddenNode, "id %s", id)
	}
	change, err := c.tree.Toggle(id)
	if err != nil {
		return render.Frame{}, err
	}
	observability.Controller().OnToggle(ctx, string(id), change.Changed)
	c.logger.Debug("toggle", "node", n.Label(), "from", change.Before, "to", change.After)

	link := n.Link()
	if link != "" {
		c.navigate(ctx, link)
	}
	return c.update(ctx, id, link)
}

// Expand shows the node's direct children. Expanding an expanded node or a
// leaf emits a frame that moves nothing.
func (c *Controller) Expand(ctx context.Context, id tree.ID) (render.Frame, error) {
	if _, err := c.tree.Expand(id); err != nil {
		return render.Frame{}, err
	}
	return c.update(ctx, id, "")
}

// Collapse hides the node's subtree.
func (c *Controller) Collapse(ctx context.Context, id tree.ID) (render.Frame, error) {
	if _, err := c.tree.Collapse(id); err != nil {
		return render.Frame{}, err
	}
	return c.update(ctx, id, "")
}

// Reveal expands every ancestor of id so that it becomes visible.
func (c *Controller) Reveal(ctx context.Context, id tree.ID) (render.Frame, error) {
	if _, err := c.tree.Reveal(id); err != nil {
		return render.Frame{}, err
	}
	return c.update(ctx, id, "")
}

// ExpandAll shows every node.
func (c *Controller) ExpandAll(ctx context.Context) (render.Frame, error) {
	n := c.tree.ExpandAll()
	c.logger.Debug("expand all", "changed", n)
	return c.update(ctx, c.tree.Root().ID(), "")
}

// CollapseAll hides everything below the root.
func (c *Controller) CollapseAll(ctx context.Context) (render.Frame, error) {
	n := c.tree.CollapseAll()
	c.logger.Debug("collapse all", "changed", n)
	return c.update(ctx, c.tree.Root().ID(), "")
}

// Resize clamps the new viewport, lays the tree out again and recenters.
func (c *Controller) Resize(ctx context.Context, width, height float64) (render.Frame, error) {
	c.viewport = view.Viewport{Width: width, Height: height}.Clamp()
	observability.Controller().OnResize(ctx, c.viewport.Width, c.viewport.Height)
	c.logger.Debug("resize", "viewport", c.viewport)
	return c.update(ctx, c.tree.Root().ID(), "")
}

// Zoom scales the view by factor around focus (viewport coordinates),
// clamped to the recenter scale extent. Nodes do not move.
func (c *Controller) Zoom(ctx context.Context, factor float64, focus view.Point) (render.Frame, error) {
	c.transform = view.Zoom(c.transform, factor, focus, c.recenter.Extent)
	return c.emitTransform(ctx)
}

// Pan translates the view by (dx, dy) viewport units.
func (c *Controller) Pan(ctx context.Context, dx, dy float64) (render.Frame, error) {
	c.transform = view.Pan(c.transform, dx, dy)
	return c.emitTransform(ctx)
}

// Recenter discards user pan/zoom and re-applies the recenter policy.
func (c *Controller) Recenter(ctx context.Context) (render.Frame, error) {
	c.transform = view.Recenter(c.snapshot.Points(), c.viewport, c.recenter)
	return c.emitTransform(ctx)
}

// Current describes the present state as a frame in which every visible
// node is already in place. Late subscribers are primed with it.
func (c *Controller) Current() render.Frame {
	var root tree.ID
	if r := c.tree.Root(); r != nil {
		root = r.ID()
	}
	f := render.Diff(c.snapshot, c.snapshot, root)
	f.Seq = c.seq
	f.Transform = c.transform
	f.Viewport = c.viewport
	f.Duration = 0
	return f
}

// =============================================================================
// Internals
// =============================================================================

// update re-lays the tree out, diffs against the last snapshot and renders.
func (c *Controller) update(ctx context.Context, source tree.ID, link string) (render.Frame, error) {
	start := time.Now()
	result := c.engine.Layout(c.tree, c.viewport)
	next := render.Capture(c.tree, result)
	observability.Controller().OnLayout(ctx, next.Len(), time.Since(start))

	frame := render.Diff(c.snapshot, next, source)
	frame.Duration = c.duration
	frame.Navigate = link

	// Positions become the starting points of the next transition.
	c.tree.Place(result.Positions)
	c.snapshot = next
	c.result = result
	c.transform = view.Recenter(next.Points(), c.viewport, c.recenter)
	return c.emit(ctx, frame)
}

func (c *Controller) emitTransform(ctx context.Context) (render.Frame, error) {
	frame := render.Frame{
		Kind:     render.KindTransform,
		Hints:    c.snapshot.Hints,
		Duration: c.duration,
	}
	return c.emit(ctx, frame)
}

func (c *Controller) emit(ctx context.Context, frame render.Frame) (render.Frame, error) {
	c.seq++
	frame.Seq = c.seq
	frame.Transform = c.transform
	frame.Viewport = c.viewport

	err := c.renderer.Render(ctx, frame)
	observability.Controller().OnRender(ctx, len(frame.Entered), len(frame.Updated), len(frame.Exited), err)
	if err != nil {
		c.logger.Error("render failed", "seq", frame.Seq, "error", err)
		return frame, err
	}
	c.logger.Debug("rendered frame",
		"seq", frame.Seq,
		"kind", frame.Kind,
		"entered", len(frame.Entered),
		"updated", len(frame.Updated),
		"exited", len(frame.Exited))
	return frame, nil
}

func (c *Controller) navigate(ctx context.Context, link string) {
	err := c.navigator.Open(ctx, link)
	observability.Controller().OnNavigate(ctx, link, err)
	if err != nil {
		c.logger.Warn("navigation failed", "link", link, "error", err)
	}
}
