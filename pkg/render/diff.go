package render

import (
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// Diff computes the keyed transitions from prev to next. source is the node
// whose interaction caused the change (the clicked node, or the root for
// resizes); it anchors entries and exits that have no better reference.
//
// Entered and updated transitions follow the pre-order of next; exited
// transitions follow the pre-order of prev.
func Diff(prev, next Snapshot, source tree.ID) Frame {
	f := Frame{
		Kind:     KindLayout,
		Source:   source,
		Hints:    next.Hints,
		Duration: DefaultDuration,
	}

	for _, p := range next.Nodes {
		if old, ok := prev.Lookup(p.ID); ok {
			f.Updated = append(f.Updated, NodeTransition{Placement: p, From: old.Position, To: p.Position})
			continue
		}
		f.Entered = append(f.Entered, NodeTransition{Placement: p, From: entryPoint(prev, next, p, source), To: p.Position})
	}

	for _, p := range prev.Nodes {
		if _, ok := next.Lookup(p.ID); ok {
			continue
		}
		f.Exited = append(f.Exited, NodeTransition{Placement: p, From: p.Position, To: exitPoint(prev, next, p, source)})
	}

	prevLinks := make(map[tree.ID]Edge)
	for _, e := range prev.Links() {
		prevLinks[e.Target] = e
	}
	nextLinks := next.Links()
	entered := make(map[tree.ID]view.Point, len(f.Entered))
	for _, n := range f.Entered {
		entered[n.ID] = n.From
	}
	for _, e := range nextLinks {
		if old, ok := prevLinks[e.Target]; ok {
			f.LinksUpdated = append(f.LinksUpdated, LinkTransition{Source: e.Source, Target: e.Target, From: old.Path, To: e.Path})
			continue
		}
		start, ok := entered[e.Target]
		if !ok {
			start = e.Path.From
		}
		f.LinksEntered = append(f.LinksEntered, LinkTransition{
			Source: e.Source,
			Target: e.Target,
			From:   Path{From: start, To: start},
			To:     e.Path,
		})
	}

	nextTargets := make(map[tree.ID]bool, len(nextLinks))
	for _, e := range nextLinks {
		nextTargets[e.Target] = true
	}
	exited := make(map[tree.ID]view.Point, len(f.Exited))
	for _, n := range f.Exited {
		exited[n.ID] = n.To
	}
	for _, e := range prev.Links() {
		if nextTargets[e.Target] {
			continue
		}
		end, ok := exited[e.Target]
		if !ok {
			end = e.Path.From
		}
		f.LinksExited = append(f.LinksExited, LinkTransition{
			Source: e.Source,
			Target: e.Target,
			From:   e.Path,
			To:     Path{From: end, To: end},
		})
	}
	return f
}

// entryPoint is the previous position of the nearest ancestor that was
// already on screen.
func entryPoint(prev, next Snapshot, p Placement, source tree.ID) view.Point {
	for id := p.Parent; id != ""; {
		if old, ok := prev.Lookup(id); ok {
			return old.Position
		}
		anc, ok := next.Lookup(id)
		if !ok {
			break
		}
		id = anc.Parent
	}
	if old, ok := prev.Lookup(source); ok {
		return old.Position
	}
	if src, ok := next.Lookup(source); ok {
		return src.Position
	}
	return p.Position
}

// exitPoint is the new position of the nearest ancestor that stays on
// screen.
func exitPoint(prev, next Snapshot, p Placement, source tree.ID) view.Point {
	for id := p.Parent; id != ""; {
		if cur, ok := next.Lookup(id); ok {
			return cur.Position
		}
		anc, ok := prev.Lookup(id)
		if !ok {
			break
		}
		id = anc.Parent
	}
	if src, ok := next.Lookup(source); ok {
		return src.Position
	}
	return p.Position
}
