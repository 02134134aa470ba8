package layout

import (
	"math"

	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// Tidy is the Buchheim/Walker tidy-tree engine.
type Tidy struct {
	cfg Config
}

// NewTidy returns a tidy engine. Zero fields of cfg take their defaults.
func NewTidy(cfg Config) *Tidy {
	cfg.SetDefaults()
	return &Tidy{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Tidy) Config() Config { return e.cfg }

// Layout positions every visible node of t.
func (e *Tidy) Layout(t *tree.Tree, vp view.Viewport) Result {
	vp = vp.Clamp()
	cfg := e.cfg
	sep := cfg.Separation
	if sep == nil {
		sep = DefaultSeparation
	}

	compact := vp.Width < cfg.CompactBreakpoint
	dx, dy := cfg.NodeWidth, cfg.NodeHeight
	hints := Hints{NodeRadius: cfg.NodeRadius, FontSize: cfg.FontSize}
	if compact {
		dx, dy = cfg.CompactNodeWidth, cfg.CompactNodeHeight
		hints = Hints{Compact: true, NodeRadius: cfg.CompactNodeRadius, FontSize: cfg.CompactFontSize}
	}

	root := buildWalk(t.Root())
	w := walker{sep: sep}
	w.eachAfter(root, w.firstWalk)
	root.parent.mod = -root.prelim
	w.eachBefore(root, w.secondWalk)

	positions := make(map[tree.ID]view.Point)
	if cfg.Fit {
		fitPositions(root, vp, cfg.Margin, sep, positions)
	} else {
		w.eachBefore(root, func(v *wnode) {
			positions[v.node.ID()] = view.Point{X: v.x * dx, Y: float64(v.node.Depth()) * dy}
		})
	}

	pts := make([]view.Point, 0, len(positions))
	for _, p := range positions {
		pts = append(pts, p)
	}
	bounds, _ := view.Bounds(pts)

	return Result{
		Positions: positions,
		Bounds:    bounds,
		Viewport:  vp,
		Hints:     hints,
	}
}

// fitPositions scales breadth into the padded viewport width and spreads
// generations over its height.
func fitPositions(root *wnode, vp view.Viewport, margin float64, sep func(a, b *tree.Node) float64, out map[tree.ID]view.Point) {
	width := math.Max(vp.Width-2*margin, 1)
	height := math.Max(vp.Height-2*margin, 1)

	left, right, bottom := root, root, root
	eachBefore(root, func(v *wnode) {
		if v.x < left.x {
			left = v
		}
		if v.x > right.x {
			right = v
		}
		if v.node.Depth() > bottom.node.Depth() {
			bottom = v
		}
	})

	s := 1.0
	if left != right {
		s = sep(left.node, right.node) / 2
	}
	tx := s - left.x
	kx := width / (right.x + s + tx)
	depth := float64(bottom.node.Depth())
	if depth == 0 {
		depth = 1
	}
	ky := height / depth

	eachBefore(root, func(v *wnode) {
		out[v.node.ID()] = view.Point{
			X: margin + (v.x+tx)*kx,
			Y: margin + float64(v.node.Depth())*ky,
		}
	})
}

// =============================================================================
// Buchheim, Jünger and Leipert, "Improving Walker's Algorithm to Run in
// Linear Time" (2002).
// =============================================================================

type wnode struct {
	node     *tree.Node
	parent   *wnode
	children []*wnode
	index    int

	ancestor        *wnode // a
	defaultAncestor *wnode // A
	thread          *wnode // t

	prelim float64 // z
	mod    float64 // m
	change float64 // c
	shift  float64 // s
	x      float64
}

// buildWalk mirrors the visible part of the tree under a virtual parent.
func buildWalk(root *tree.Node) *wnode {
	virtual := &wnode{}
	r := mirror(root, virtual, 0)
	virtual.children = []*wnode{r}
	return r
}

func mirror(n *tree.Node, parent *wnode, index int) *wnode {
	v := &wnode{node: n, parent: parent, index: index}
	v.ancestor = v
	if kids := n.Children(); len(kids) > 0 {
		v.children = make([]*wnode, len(kids))
		for i, c := range kids {
			v.children[i] = mirror(c, v, i)
		}
	}
	return v
}

type walker struct {
	sep func(a, b *tree.Node) float64
}

func (w walker) eachAfter(v *wnode, fn func(*wnode)) {
	for _, c := range v.children {
		w.eachAfter(c, fn)
	}
	fn(v)
}

func (w walker) eachBefore(v *wnode, fn func(*wnode)) { eachBefore(v, fn) }

func eachBefore(v *wnode, fn func(*wnode)) {
	fn(v)
	for _, c := range v.children {
		eachBefore(c, fn)
	}
}

func (w walker) firstWalk(v *wnode) {
	siblings := v.parent.children
	var left *wnode
	if v.index > 0 {
		left = siblings[v.index-1]
	}

	if len(v.children) > 0 {
		executeShifts(v)
		mid := (v.children[0].prelim + v.children[len(v.children)-1].prelim) / 2
		if left != nil {
			v.prelim = left.prelim + w.sep(v.node, left.node)
			v.mod = v.prelim - mid
		} else {
			v.prelim = mid
		}
	} else if left != nil {
		v.prelim = left.prelim + w.sep(v.node, left.node)
	}

	anc := v.parent.defaultAncestor
	if anc == nil {
		anc = siblings[0]
	}
	v.parent.defaultAncestor = w.apportion(v, left, anc)
}

func (w walker) secondWalk(v *wnode) {
	v.x = v.prelim + v.parent.mod
	v.mod += v.parent.mod
}

func (w walker) apportion(v, left, ancestor *wnode) *wnode {
	if left == nil {
		return ancestor
	}
	vip, vop := v, v
	vim := left
	vom := v.parent.children[0]
	sip, sop := vip.mod, vop.mod
	sim, som := vim.mod, vom.mod

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.ancestor = v
		shift := vim.prelim + sim - vip.prelim - sip + w.sep(vim.node, vip.node)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.mod
		sip += vip.mod
		som += vom.mod
		sop += vop.mod
	}

	if vim != nil && nextRight(vop) == nil {
		vop.thread = vim
		vop.mod += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.thread = vip
		vom.mod += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *wnode) *wnode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.thread
}

func nextRight(v *wnode) *wnode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.thread
}

func nextAncestor(vim, v, ancestor *wnode) *wnode {
	if vim.ancestor.parent == v.parent {
		return vim.ancestor
	}
	return ancestor
}

func moveSubtree(wm, wp *wnode, shift float64) {
	change := shift / float64(wp.index-wm.index)
	wp.change -= change
	wp.shift += shift
	wm.change += change
	wp.prelim += shift
	wp.mod += shift
}

func executeShifts(v *wnode) {
	var shift, change float64
	for i := len(v.children) - 1; i >= 0; i-- {
		c := v.children[i]
		c.prelim += shift
		c.mod += shift
		change += c.change
		shift += c.shift + change
	}
}
