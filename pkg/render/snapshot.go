package render

import (
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// Placement is one visible node at its laid-out position.
type Placement struct {
	ID       tree.ID    `json:"id"`
	Parent   tree.ID    `json:"parent,omitempty"`
	Label    string     `json:"label"`
	Link     string     `json:"link,omitempty"`
	Depth    int        `json:"depth"`
	Position view.Point `json:"position"`
	// Collapsed is true when the node hides children.
	Collapsed bool `json:"collapsed"`
	Leaf      bool `json:"leaf"`
}

// Snapshot is the keyed set of visible placements after one layout pass,
// in pre-order.
type Snapshot struct {
	Nodes []Placement
	Hints layout.Hints

	index map[tree.ID]int
}

// NewSnapshot indexes nodes by ID. nodes must be in pre-order.
func NewSnapshot(nodes []Placement, hints layout.Hints) Snapshot {
	s := Snapshot{Nodes: nodes, Hints: hints, index: make(map[tree.ID]int, len(nodes))}
	for i, p := range nodes {
		s.index[p.ID] = i
	}
	return s
}

// Capture builds a snapshot from the visible nodes of t and a layout result.
// Visible nodes missing from r fall back to their memoised position.
func Capture(t *tree.Tree, r layout.Result) Snapshot {
	visible := t.Visible()
	nodes := make([]Placement, 0, len(visible))
	for _, n := range visible {
		pos, ok := r.Positions[n.ID()]
		if !ok {
			pos = n.Position()
		}
		p := Placement{
			ID:        n.ID(),
			Label:     n.Label(),
			Link:      n.Link(),
			Depth:     n.Depth(),
			Position:  pos,
			Collapsed: len(n.HiddenChildren()) > 0,
			Leaf:      n.IsLeaf(),
		}
		if parent := n.Parent(); parent != nil {
			p.Parent = parent.ID()
		}
		nodes = append(nodes, p)
	}
	return NewSnapshot(nodes, r.Hints)
}

// Len returns the number of placements.
func (s Snapshot) Len() int { return len(s.Nodes) }

// Lookup returns the placement for id.
func (s Snapshot) Lookup(id tree.ID) (Placement, bool) {
	if s.index == nil {
		for _, p := range s.Nodes {
			if p.ID == id {
				return p, true
			}
		}
		return Placement{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return Placement{}, false
	}
	return s.Nodes[i], true
}

// Positions returns the placement positions keyed by ID.
func (s Snapshot) Positions() map[tree.ID]view.Point {
	out := make(map[tree.ID]view.Point, len(s.Nodes))
	for _, p := range s.Nodes {
		out[p.ID] = p.Position
	}
	return out
}

// Points returns the placement positions in pre-order.
func (s Snapshot) Points() []view.Point {
	out := make([]view.Point, len(s.Nodes))
	for i, p := range s.Nodes {
		out[i] = p.Position
	}
	return out
}

// Links returns the parent-child edges of the snapshot keyed by target.
func (s Snapshot) Links() []Edge {
	var out []Edge
	for _, p := range s.Nodes {
		if p.Parent == "" {
			continue
		}
		parent, ok := s.Lookup(p.Parent)
		if !ok {
			continue
		}
		out = append(out, Edge{Source: parent.ID, Target: p.ID, Path: Path{From: parent.Position, To: p.Position}})
	}
	return out
}

// Edge is a link between two placements.
type Edge struct {
	Source tree.ID `json:"source"`
	Target tree.ID `json:"target"`
	Path   Path    `json:"path"`
}

// Path holds the endpoints of a link curve.
type Path struct {
	From view.Point `json:"from"`
	To   view.Point `json:"to"`
}
