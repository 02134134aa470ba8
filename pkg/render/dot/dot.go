// Package dot renders the visible tree as a Graphviz diagram.
//
// # Usage
//
// Convert a snapshot to DOT source, then let Graphviz lay it out and draw
// it as SVG:
//
//	src := dot.ToDOT(snap, dot.Options{})
//	svg, err := dot.RenderSVG(ctx, src)
//
// Graphviz computes its own positions; the snapshot only contributes the
// visible nodes, their labels, links and collapse state. Collapsed nodes
// are filled with the accent colour, and linked nodes carry a URL so the
// rendered SVG is clickable.
//
// # Dependencies
//
// [RenderSVG] uses [github.com/goccy/go-graphviz] in-process; no Graphviz
// installation is required.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/canopy/pkg/render"
)

// Options configures DOT generation.
type Options struct {
	// Detailed adds depth and link to each node label.
	Detailed bool
	// LeftToRight lays the tree out horizontally instead of top-down.
	LeftToRight bool
}

// ToDOT converts the visible part of a snapshot to Graphviz DOT source.
// Node identifiers are the stable tree IDs, so two renders of the same
// state produce identical output.
func ToDOT(s render.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph Tree {\n")
	if opts.LeftToRight {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, color=\"#ff9900\", penwidth=2, fixedsize=false, fontsize=12];\n")
	buf.WriteString("  edge [color=\"#888888\", penwidth=2, arrowhead=none];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, p := range s.Nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", string(p.ID), strings.Join(fmtAttrs(p, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Links() {
		fmt.Fprintf(&buf, "  %q -> %q;\n", string(e.Source), string(e.Target))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(p render.Placement, detailed bool) string {
	if !detailed {
		return p.Label
	}
	parts := []string{p.Label, fmt.Sprintf("depth: %d", p.Depth)}
	if p.Link != "" {
		parts = append(parts, "link: "+p.Link)
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(p render.Placement, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(p, detailed))}
	if p.Collapsed {
		attrs = append(attrs, "fillcolor=\"#ff9900\"")
	}
	if p.Link != "" {
		attrs = append(attrs, fmt.Sprintf("URL=%q", p.Link), "target=\"_blank\"")
	}
	if p.Parent == "" {
		attrs = append(attrs, "penwidth=4")
	}
	return attrs
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing starts at the
// origin and scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// Renderer writes DOT source (or Graphviz SVG when SVG is set) for the
// nodes that remain visible after each frame.
type Renderer struct {
	W    io.Writer
	Opts Options
	SVG  bool
}

// Render implements [render.Renderer].
func (r *Renderer) Render(ctx context.Context, f render.Frame) error {
	src := ToDOT(FrameSnapshot(f), r.Opts)
	if !r.SVG {
		_, err := io.WriteString(r.W, src)
		return err
	}
	out, err := RenderSVG(ctx, src)
	if err != nil {
		return err
	}
	_, err = r.W.Write(out)
	return err
}

// FrameSnapshot rebuilds the post-transition snapshot described by f.
func FrameSnapshot(f render.Frame) render.Snapshot {
	visible := f.Visible()
	nodes := make([]render.Placement, len(visible))
	for i, n := range visible {
		p := n.Placement
		p.Position = n.To
		nodes[i] = p
	}
	return render.NewSnapshot(nodes, f.Hints)
}
