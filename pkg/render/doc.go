// Package render turns successive layout states into keyed render frames.
//
// # Overview
//
// After every toggle or resize the controller captures a [Snapshot] of the
// visible nodes and their positions. [Diff] compares it with the previous
// snapshot and produces a [Frame] that tells a renderer which elements
// enter, move or leave:
//
//	prev := render.Capture(t, before)
//	next := render.Capture(t, after)
//	frame := render.Diff(prev, next, clicked)
//
// Every element is keyed by [tree.ID], never by position in a slice, so
// collapsing or expanding a subtree cannot attribute an animation to the
// wrong node.
//
// # Transitions
//
//   - Entered nodes start at their parent's previous position.
//   - Updated nodes move from their previous to their new position.
//   - Exited nodes move to their nearest surviving ancestor before the
//     renderer removes them.
//
// Links are keyed by their target node and follow the same split.
//
// # Renderers
//
// A [Renderer] consumes frames. Concrete sinks live in subpackages:
//
//   - [svg]: standalone animated SVG documents
//   - [dot]: Graphviz DOT source and Graphviz-rendered SVG
//
// Frames are also the JSON wire format pushed to browser hosts; see
// [Encode] and [Envelope].
//
// [svg]: github.com/matzehuels/canopy/pkg/render/svg
// [dot]: github.com/matzehuels/canopy/pkg/render/dot
package render
