// Package dataset defines the static input shape for tree diagrams and
// decodes it from JSON, YAML or TOML.
//
// A dataset is a nested structure of named nodes:
//
//	{
//	  "name": "Federation",
//	  "children": [
//	    {"name": "Faction A", "link": "https://example.org/a"},
//	    {"name": "Faction B"}
//	  ]
//	}
//
// The same shape is accepted as YAML or as TOML (using [[children]] tables).
// [Validate] rejects nodes without a name, cyclic or shared references and
// links that are not http(s) URLs. Datasets are trusted and loaded once;
// there is no recovery path beyond reporting the first problem found.
package dataset

import (
	"errors"
	"fmt"

	cerrors "github.com/matzehuels/canopy/pkg/errors"
)

// Sentinel errors returned (wrapped) by [Validate].
var (
	// ErrMissingName is returned when a node has an empty name.
	ErrMissingName = errors.New("node has no name")

	// ErrCycle is returned when a node is reachable from itself.
	ErrCycle = errors.New("dataset contains a cycle")

	// ErrSharedSubtree is returned when the same node value is referenced
	// from more than one parent, which would make the input a graph.
	ErrSharedSubtree = errors.New("node referenced by more than one parent")

	// ErrInvalidLink is returned when a link is not an absolute http(s) URL.
	ErrInvalidLink = errors.New("invalid link")

	// ErrEmpty is returned when there is no root node at all.
	ErrEmpty = errors.New("dataset is empty")
)

// Node is one entry of the input hierarchy.
type Node struct {
	Name     string  `json:"name" yaml:"name" toml:"name"`
	Link     string  `json:"link,omitempty" yaml:"link,omitempty" toml:"link,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
}

// Count returns the number of nodes reachable from n, including n.
// It must only be called on validated datasets.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Validate checks the structural rules every dataset must satisfy.
// The returned error is a *cerrors.Error with code INVALID_DATASET wrapping
// one of the package sentinels, and names the offending node by path.
func Validate(root *Node) error {
	if root == nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, ErrEmpty, "no root node")
	}
	v := validator{
		onPath: make(map[*Node]bool),
		seen:   make(map[*Node]bool),
	}
	return v.visit(root, "root")
}

type validator struct {
	onPath map[*Node]bool
	seen   map[*Node]bool
}

func (v *validator) visit(n *Node, path string) error {
	if n == nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, ErrMissingName, "nil node at %s", path)
	}
	if v.onPath[n] {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, ErrCycle, "node %q at %s refers back to an ancestor", n.Name, path)
	}
	if v.seen[n] {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, ErrSharedSubtree, "node %q at %s", n.Name, path)
	}
	if n.Name == "" {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, ErrMissingName, "node at %s", path)
	}
	if err := cerrors.ValidateLabel(n.Name); err != nil {
		return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "node at %s", path)
	}
	if n.Link != "" {
		if err := cerrors.ValidateURL(n.Link); err != nil {
			return cerrors.Wrap(cerrors.ErrCodeInvalidDataset, fmt.Errorf("%w: %v", ErrInvalidLink, cerrors.UserMessage(err)), "node %q at %s", n.Name, path)
		}
	}

	v.onPath[n] = true
	v.seen[n] = true
	for i, c := range n.Children {
		if err := v.visit(c, fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	delete(v.onPath, n)
	return nil
}

// Federation returns the reference dataset used by the demo commands.
func Federation() *Node {
	return &Node{
		Name: "Federation",
		Children: []*Node{
			{Name: "Faction A", Children: []*Node{{Name: "Faction A1"}, {Name: "Faction A2"}}},
			{Name: "Faction B"},
			{Name: "Faction C", Children: []*Node{{Name: "Faction C1"}}},
		},
	}
}
