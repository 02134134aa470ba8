package tree

import (
	"github.com/google/uuid"

	"github.com/matzehuels/canopy/pkg/view"
)

// ID identifies a node independently of its display label. IDs are
// name-based UUIDs derived from the node's child-index path, so the same
// dataset always produces the same IDs and duplicate labels never collide.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// namespace scopes the name-based node UUIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("canopy.tree.node"))

func newID(path []int) ID {
	b := make([]byte, 0, 4*len(path)+1)
	b = append(b, '/')
	for _, i := range path {
		b = append(b, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
	}
	return ID(uuid.NewSHA1(namespace, b).String())
}

// Visibility is the tagged expand/collapse state of a node.
type Visibility uint8

const (
	// Collapsed nodes keep their full child list hidden.
	Collapsed Visibility = iota
	// Expanded nodes show their direct children.
	Expanded
)

// String implements fmt.Stringer.
func (v Visibility) String() string {
	if v == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// Node is one entry of the tree. The child list is fixed at construction;
// only the visibility tag and the position memo change afterwards.
type Node struct {
	id       ID
	label    string
	link     string
	depth    int
	index    int
	parent   *Node
	children []*Node
	vis      Visibility
	pos      view.Point
}

// ID returns the stable identifier assigned at construction.
func (n *Node) ID() ID { return n.id }

// Label returns the display name from the dataset.
func (n *Node) Label() string { return n.label }

// Link returns the external locator, or "" if the node has none.
func (n *Node) Link() string { return n.link }

// Depth returns the distance from the root (root = 0).
func (n *Node) Depth() int { return n.depth }

// Index returns the position of n among its parent's children.
func (n *Node) Index() int { return n.index }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// IsLeaf reports whether n has no descendants at all.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Visibility returns the current tag. Leaves always report Collapsed.
func (n *Node) Visibility() Visibility {
	if n.IsLeaf() {
		return Collapsed
	}
	return n.vis
}

// Expanded reports whether n currently shows its children.
func (n *Node) Expanded() bool { return n.Visibility() == Expanded }

// Children returns the visible children: the full child list when n is
// expanded, nil otherwise.
func (n *Node) Children() []*Node {
	if n.Visibility() != Expanded {
		return nil
	}
	return n.children
}

// HiddenChildren returns the stored children when n is collapsed and has
// any, nil otherwise. Exactly one of Children and HiddenChildren is
// non-empty for a node with descendants.
func (n *Node) HiddenChildren() []*Node {
	if n.IsLeaf() || n.vis == Expanded {
		return nil
	}
	return n.children
}

// AllChildren returns every child regardless of visibility.
func (n *Node) AllChildren() []*Node { return n.children }

// Position returns the last layout position recorded with [Tree.Place].
func (n *Node) Position() view.Point { return n.pos }

// Path returns the labels from the root down to n.
func (n *Node) Path() []string {
	var out []string
	for cur := n; cur != nil; cur = cur.parent {
		out = append(out, cur.label)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
