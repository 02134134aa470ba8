// Package tree implements the visibility state machine behind a collapsible
// node-link diagram.
//
// A [Tree] is built once from a validated [dataset.Node] and never gains or
// loses nodes. Each node carries a tagged [Visibility]: an expanded node
// shows its direct children, a collapsed node stores them hidden. Because a
// node has one child list exposed through either [Node.Children] or
// [Node.HiddenChildren], the two can never both be populated.
//
// # Initial state
//
// Every node starts collapsed, including the root, so the first paint shows
// the root alone. [WithRootExpanded] shows the root's direct children
// instead.
//
// # Collapse policy
//
// Collapsing a node either resets every descendant to collapsed
// ([CollapseDeep], the default) or leaves each descendant's own state
// untouched ([CollapseShallow]). In both cases expanding a node restores
// exactly its direct children.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/canopy/pkg/dataset"
	cerrors "github.com/matzehuels/canopy/pkg/errors"
	"github.com/matzehuels/canopy/pkg/view"
)

// ErrUnknownNode is returned (wrapped) when an ID or label path does not
// name a node of the tree.
var ErrUnknownNode = errors.New("unknown node")

// ErrHiddenNode is returned (wrapped) when an interaction names a node that
// is not currently on screen.
var ErrHiddenNode = errors.New("node not visible")

// CollapsePolicy decides what happens to descendants when a node collapses.
type CollapsePolicy int

const (
	// CollapseDeep collapses every descendant along with the node.
	CollapseDeep CollapsePolicy = iota
	// CollapseShallow only collapses the node itself.
	CollapseShallow
)

// String implements fmt.Stringer.
func (p CollapsePolicy) String() string {
	if p == CollapseShallow {
		return "shallow"
	}
	return "deep"
}

// ParseCollapsePolicy converts "deep" or "shallow" to a policy.
func ParseCollapsePolicy(s string) (CollapsePolicy, error) {
	switch strings.ToLower(s) {
	case "", "deep":
		return CollapseDeep, nil
	case "shallow":
		return CollapseShallow, nil
	}
	return CollapseDeep, fmt.Errorf("invalid collapse policy %q (must be one of: deep, shallow)", s)
}

// Option configures [New].
type Option func(*options)

type options struct {
	rootExpanded bool
	policy       CollapsePolicy
}

// WithRootExpanded shows the root's direct children on first paint.
func WithRootExpanded(expanded bool) Option {
	return func(o *options) { o.rootExpanded = expanded }
}

// WithCollapsePolicy selects how collapsing treats descendants.
func WithCollapsePolicy(p CollapsePolicy) Option {
	return func(o *options) { o.policy = p }
}

// Tree is a rooted, strict tree with per-node visibility.
// It is not safe for concurrent use.
type Tree struct {
	root   *Node
	byID   map[ID]*Node
	nodes  []*Node
	policy CollapsePolicy
}

// New validates src and builds a tree from it.
func New(src *dataset.Node, opts ...Option) (*Tree, error) {
	if err := dataset.Validate(src); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tree{
		byID:   make(map[ID]*Node, src.Count()),
		policy: o.policy,
	}
	t.root = t.build(src, nil, nil, 0)
	if o.rootExpanded {
		t.root.vis = Expanded
	}
	return t, nil
}

func (t *Tree) build(src *dataset.Node, parent *Node, path []int, index int) *Node {
	n := &Node{
		id:     newID(path),
		label:  src.Name,
		link:   src.Link,
		index:  index,
		parent: parent,
		vis:    Collapsed,
	}
	if parent != nil {
		n.depth = parent.depth + 1
	}
	t.byID[n.id] = n
	t.nodes = append(t.nodes, n)

	if len(src.Children) > 0 {
		n.children = make([]*Node, len(src.Children))
		for i, c := range src.Children {
			childPath := append(append([]int(nil), path...), i)
			n.children[i] = t.build(c, n, childPath, i)
		}
	}
	return n
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the total number of nodes, visible or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Policy returns the collapse policy in effect.
func (t *Tree) Policy() CollapsePolicy { return t.policy }

// Lookup returns the node with the given ID.
func (t *Tree) Lookup(id ID) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Get is like Lookup but returns ErrUnknownNode for a missing ID.
func (t *Tree) Get(id ID) (*Node, error) {
	n, ok := t.byID[id]
	if !ok {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnknownNode, ErrUnknownNode, "id %s", id)
	}
	return n, nil
}

// FindLabel returns every node whose label equals label, in pre-order.
func (t *Tree) FindLabel(label string) []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if n.label == label {
			out = append(out, n)
		}
	}
	return out
}

// FindPath resolves a label path starting at the root, e.g.
// ["Federation", "Faction A"]. The first child matching each label wins.
func (t *Tree) FindPath(labels ...string) (*Node, error) {
	if len(labels) == 0 || labels[0] != t.root.label {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnknownNode, ErrUnknownNode, "path %q", strings.Join(labels, "/"))
	}
	cur := t.root
	for _, label := range labels[1:] {
		var next *Node
		for _, c := range cur.children {
			if c.label == label {
				next = c
				break
			}
		}
		if next == nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeUnknownNode, ErrUnknownNode, "path %q: no child %q under %q", strings.Join(labels, "/"), label, cur.label)
		}
		cur = next
	}
	return cur, nil
}

// Walk visits every node in pre-order regardless of visibility. Returning
// false from fn skips the node's subtree.
func (t *Tree) Walk(fn func(*Node) bool) {
	var visit func(*Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(t.root)
}

// Visible returns the nodes reachable from the root through expanded
// nodes, in pre-order.
func (t *Tree) Visible() []*Node {
	var out []*Node
	var visit func(*Node)
	visit = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(t.root)
	return out
}

// Link is a visible parent-child edge.
type Link struct {
	Source *Node
	Target *Node
}

// Links returns the edges between visible nodes, ordered by target in
// pre-order.
func (t *Tree) Links() []Link {
	var out []Link
	for _, n := range t.Visible() {
		if n.parent != nil {
			out = append(out, Link{Source: n.parent, Target: n})
		}
	}
	return out
}

// IsVisible reports whether every ancestor of n is expanded.
func (t *Tree) IsVisible(n *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.vis != Expanded {
			return false
		}
	}
	return true
}

// Change describes the effect of a visibility operation on one node.
type Change struct {
	Node    ID
	Before  Visibility
	After   Visibility
	Changed bool
}

// Toggle flips the node between expanded and collapsed. Toggling a leaf
// is a no-op that reports Changed == false.
func (t *Tree) Toggle(id ID) (Change, error) {
	n, err := t.Get(id)
	if err != nil {
		return Change{Node: id}, err
	}
	if n.Expanded() {
		return t.collapse(n), nil
	}
	return t.expand(n), nil
}

// Expand shows the node's direct children. Expanding an expanded node or
// a leaf changes nothing.
func (t *Tree) Expand(id ID) (Change, error) {
	n, err := t.Get(id)
	if err != nil {
		return Change{Node: id}, err
	}
	return t.expand(n), nil
}

// Collapse hides the node's children according to the collapse policy.
func (t *Tree) Collapse(id ID) (Change, error) {
	n, err := t.Get(id)
	if err != nil {
		return Change{Node: id}, err
	}
	return t.collapse(n), nil
}

func (t *Tree) expand(n *Node) Change {
	c := Change{Node: n.id, Before: n.Visibility()}
	if !n.IsLeaf() && n.vis != Expanded {
		n.vis = Expanded
		c.Changed = true
	}
	c.After = n.Visibility()
	return c
}

func (t *Tree) collapse(n *Node) Change {
	c := Change{Node: n.id, Before: n.Visibility()}
	if !n.IsLeaf() && n.vis == Expanded {
		n.vis = Collapsed
		c.Changed = true
	}
	if !n.IsLeaf() && t.policy == CollapseDeep {
		for _, child := range n.children {
			collapseAll(child)
		}
	}
	c.After = n.Visibility()
	return c
}

func collapseAll(n *Node) {
	n.vis = Collapsed
	for _, c := range n.children {
		collapseAll(c)
	}
}

// Reveal expands every ancestor of the node so that it becomes visible.
// It returns the number of ancestors that changed state.
func (t *Tree) Reveal(id ID) (int, error) {
	n, err := t.Get(id)
	if err != nil {
		return 0, err
	}
	changed := 0
	for p := n.parent; p != nil; p = p.parent {
		if p.vis != Expanded {
			p.vis = Expanded
			changed++
		}
	}
	return changed, nil
}

// ExpandAll expands every node with descendants and returns how many
// changed state.
func (t *Tree) ExpandAll() int {
	changed := 0
	for _, n := range t.nodes {
		if !n.IsLeaf() && n.vis != Expanded {
			n.vis = Expanded
			changed++
		}
	}
	return changed
}

// CollapseAll collapses every node, including the root, and returns how
// many changed state.
func (t *Tree) CollapseAll() int {
	changed := 0
	for _, n := range t.nodes {
		if !n.IsLeaf() && n.vis == Expanded {
			changed++
		}
		n.vis = Collapsed
	}
	return changed
}

// ExpandedIDs returns the IDs of expanded nodes in pre-order. Together with
// the dataset it fully determines the visible set.
func (t *Tree) ExpandedIDs() []ID {
	var out []ID
	for _, n := range t.nodes {
		if n.Expanded() {
			out = append(out, n.id)
		}
	}
	return out
}

// Place records positions as each node's previous-position memo. Nodes
// missing from positions keep their old memo.
func (t *Tree) Place(positions map[ID]view.Point) {
	for id, p := range positions {
		if n, ok := t.byID[id]; ok {
			n.pos = p
		}
	}
}

// String renders the visible tree with ▾/▸ indicators, one node per line.
func (t *Tree) String() string {
	var b strings.Builder
	for _, n := range t.Visible() {
		b.WriteString(strings.Repeat("  ", n.depth))
		switch {
		case n.IsLeaf():
			b.WriteString("  ")
		case n.Expanded():
			b.WriteString("▾ ")
		default:
			b.WriteString("▸ ")
		}
		b.WriteString(n.label)
		b.WriteByte('\n')
	}
	return b.String()
}
