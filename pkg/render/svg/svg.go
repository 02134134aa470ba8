// Package svg renders frames as standalone, animated SVG documents.
//
// Each document reproduces one [render.Frame]: entered nodes grow out of
// their entry point, updated nodes glide to their new position and exited
// nodes shrink into their surviving ancestor and fade out. Transitions use
// SMIL animation so the file plays in any browser without scripts. The
// root node carries a pulsing glow, and nodes with a link are wrapped in an
// anchor.
//
//	var buf bytes.Buffer
//	err := svg.Write(&buf, frame, svg.Options{Title: "Federation"})
//
// Coordinates are rounded to whole pixels.
package svg

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	svgo "github.com/ajstarks/svgo"

	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/render"
)

// Palette of the reference diagram.
const (
	ColorAccent     = "#f90"
	ColorExpanded   = "#fff"
	ColorLink       = "#888"
	ColorText       = "#fff"
	ColorBackground = "#1b1e24"
)

// Options controls document generation.
type Options struct {
	Title      string
	Background string
	// Static disables transitions; the document shows the final state.
	Static bool
	// NoGlow disables the pulsing root highlight.
	NoGlow bool
}

// Renderer writes one document per frame to W.
type Renderer struct {
	W    io.Writer
	Opts Options
}

// Render implements [render.Renderer].
func (r *Renderer) Render(_ context.Context, f render.Frame) error {
	return Write(r.W, f, r.Opts)
}

// Bytes renders f and returns the document.
func Bytes(f render.Frame, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders f as an SVG document to w.
func Write(w io.Writer, f render.Frame, opts Options) error {
	ew := &errWriter{w: w}
	doc := document{
		canvas: svgo.New(ew),
		frame:  f,
		opts:   opts,
		dur:    seconds(f),
		hints:  hintsOf(f.Hints),
	}
	doc.write()
	return ew.err
}

type document struct {
	canvas *svgo.SVG
	frame  render.Frame
	opts   Options
	dur    float64
	hints  layout.Hints
}

func (d *document) write() {
	vp := d.frame.Viewport.Clamp()
	width, height := px(vp.Width), px(vp.Height)
	c := d.canvas

	c.Start(width, height)
	if d.opts.Title != "" {
		c.Title(d.opts.Title)
	}
	d.defs()

	bg := d.opts.Background
	if bg == "" {
		bg = ColorBackground
	}
	c.Rect(0, 0, width, height, "fill:"+bg)

	c.Gtransform(d.frame.Transform.String())
	for _, l := range d.frame.LinksExited {
		d.link(l, true)
	}
	for _, l := range d.frame.LinksUpdated {
		d.link(l, false)
	}
	for _, l := range d.frame.LinksEntered {
		d.link(l, false)
	}
	for _, n := range d.frame.Exited {
		d.node(n, exiting)
	}
	for _, n := range d.frame.Updated {
		d.node(n, updating)
	}
	for _, n := range d.frame.Entered {
		d.node(n, entering)
	}
	c.Gend()
	c.End()
}

func (d *document) defs() {
	c := d.canvas
	c.Def()
	fmt.Fprint(c.Writer, `<filter id="glow" x="-50%" y="-50%" width="200%" height="200%">`+
		`<feGaussianBlur stdDeviation="4" result="blur"/>`+
		`<feMerge><feMergeNode in="blur"/><feMergeNode in="SourceGraphic"/></feMerge>`+
		"</filter>\n")
	c.DefEnd()
	c.Style("text/css", `
    .node circle { stroke: `+ColorAccent+`; stroke-width: 2; }
    .node text { fill: `+ColorText+`; font-family: sans-serif; }
    .link { fill: none; stroke: `+ColorLink+`; stroke-width: 2; }
    a { cursor: pointer; }`)
}

type phase int

const (
	entering phase = iota
	updating
	exiting
)

func (d *document) node(n render.NodeTransition, ph phase) {
	c := d.canvas
	from, to := n.From, n.To
	if d.opts.Static && ph == exiting {
		return
	}

	if n.Link != "" && ph != exiting {
		c.Link(escapeAttr(n.Link), escapeAttr(n.Label))
	}
	c.Group(`class="node"`, fmt.Sprintf(`id="n-%s"`, n.ID), fmt.Sprintf(`transform="translate(%d,%d)"`, px(to.X), px(to.Y)))
	if !d.opts.Static {
		fmt.Fprintf(c.Writer, `<animateTransform attributeName="transform" type="translate" from="%d %d" to="%d %d" dur="%.2fs" fill="freeze"/>`+"\n",
			px(from.X), px(from.Y), px(to.X), px(to.Y), d.dur)
	}

	radius := px(d.hints.NodeRadius)
	fill := ColorExpanded
	if n.Collapsed {
		fill = ColorAccent
	}
	isRoot := n.Parent == ""
	if isRoot && !d.opts.NoGlow {
		fmt.Fprintf(c.Writer, `<circle r="%d" fill="%s" opacity="0.35" filter="url(#glow)">`, radius+6, ColorAccent)
		fmt.Fprintf(c.Writer, `<animate attributeName="r" values="%d;%d;%d" dur="2s" repeatCount="indefinite"/>`, radius+4, radius+10, radius+4)
		fmt.Fprint(c.Writer, `<animate attributeName="opacity" values="0.35;0.1;0.35" dur="2s" repeatCount="indefinite"/>`)
		fmt.Fprint(c.Writer, "</circle>\n")
	}

	switch {
	case d.opts.Static:
		c.Circle(0, 0, radius, "fill:"+fill)
	case ph == entering:
		fmt.Fprintf(c.Writer, `<circle cx="0" cy="0" r="%d" style="fill:%s"><animate attributeName="r" from="0" to="%d" dur="%.2fs" fill="freeze"/></circle>`+"\n",
			radius, fill, radius, d.dur)
	case ph == exiting:
		fmt.Fprintf(c.Writer, `<circle cx="0" cy="0" r="0" style="fill:%s"><animate attributeName="r" from="%d" to="0" dur="%.2fs" fill="freeze"/></circle>`+"\n",
			fill, radius, d.dur)
	default:
		c.Circle(0, 0, radius, "fill:"+fill)
	}

	offset, anchor := 20, "start"
	if n.Collapsed {
		offset, anchor = -20, "end"
	}
	style := fmt.Sprintf("font-size:%gpx;text-anchor:%s", d.hints.FontSize, anchor)
	if d.opts.Static || ph == updating {
		c.Text(offset, 0, n.Label, style, `dy=".35em"`)
	} else {
		fromOp, toOp := 0, 1
		if ph == exiting {
			fromOp, toOp = 1, 0
		}
		fmt.Fprintf(c.Writer, `<text x="%d" y="0" dy=".35em" style="%s" opacity="%d">`, offset, style, toOp)
		_ = xml.EscapeText(c.Writer, []byte(n.Label))
		fmt.Fprintf(c.Writer, `<animate attributeName="opacity" from="%d" to="%d" dur="%.2fs" fill="freeze"/></text>`+"\n", fromOp, toOp, d.dur)
	}
	c.Gend()
	if n.Link != "" && ph != exiting {
		c.LinkEnd()
	}
}

func (d *document) link(l render.LinkTransition, exiting bool) {
	c := d.canvas
	if d.opts.Static {
		if !exiting {
			c.Path(l.To.D(), `class="link"`)
		}
		return
	}
	fmt.Fprintf(c.Writer, `<path class="link" id="l-%s" d="%s">`, l.Target, l.To.D())
	fmt.Fprintf(c.Writer, `<animate attributeName="d" from="%s" to="%s" dur="%.2fs" fill="freeze"/>`, l.From.D(), l.To.D(), d.dur)
	fmt.Fprint(c.Writer, "</path>\n")
}

func hintsOf(h layout.Hints) layout.Hints {
	if h.NodeRadius <= 0 {
		h.NodeRadius = layout.DefaultNodeRadius
	}
	if h.FontSize <= 0 {
		h.FontSize = layout.DefaultFontSize
	}
	return h
}

func seconds(f render.Frame) float64 {
	dur := f.Duration
	if dur <= 0 {
		dur = render.DefaultDuration
	}
	return dur.Seconds()
}

func px(v float64) int { return int(math.Round(v)) }

// errWriter records the first write error so the canvas calls can stay
// unchecked.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// escapeAttr escapes s for a double-quoted attribute. svgo writes link
// attributes verbatim.
func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
