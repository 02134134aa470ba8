package render

import (
	"context"
	"errors"
	"testing"

	"github.com/matzehuels/canopy/pkg/dataset"
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

var vp = view.Viewport{Width: 960, Height: 600}

type fixture struct {
	t      *testing.T
	tree   *tree.Tree
	engine layout.Engine
	snap   Snapshot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr, err := tree.New(dataset.Federation())
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{t: t, tree: tr, engine: layout.NewTidy(layout.DefaultConfig())}
}

func (f *fixture) id(label string) tree.ID {
	f.t.Helper()
	nodes := f.tree.FindLabel(label)
	if len(nodes) != 1 {
		f.t.Fatalf("FindLabel(%q) = %d nodes", label, len(nodes))
	}
	return nodes[0].ID()
}

// step lays out the current state, diffs it against the previous snapshot
// and remembers the new one.
func (f *fixture) step(source tree.ID) Frame {
	next := Capture(f.tree, f.engine.Layout(f.tree, vp))
	frame := Diff(f.snap, next, source)
	f.snap = next
	return frame
}

func (f *fixture) toggle(label string) Frame {
	f.t.Helper()
	id := f.id(label)
	if _, err := f.tree.Toggle(id); err != nil {
		f.t.Fatal(err)
	}
	return f.step(id)
}

func labelsOf(ns []NodeTransition) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Label
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiffInitialFrame(t *testing.T) {
	f := newFixture(t)
	frame := f.step(f.tree.Root().ID())

	if got := labelsOf(frame.Entered); !equal(got, []string{"Federation"}) {
		t.Fatalf("entered = %v", got)
	}
	if len(frame.Updated) != 0 || len(frame.Exited) != 0 {
		t.Errorf("initial frame has updates/exits: %+v", frame)
	}
	if e := frame.Entered[0]; e.From != e.To {
		t.Errorf("root enters from %v, want its own position %v", e.From, e.To)
	}
	if !frame.Entered[0].Collapsed {
		t.Error("collapsed root should be flagged")
	}
}

func TestDiffExpandEntersFromParent(t *testing.T) {
	f := newFixture(t)
	f.step(f.tree.Root().ID())
	rootBefore, _ := f.snap.Lookup(f.id("Federation"))

	frame := f.toggle("Federation")
	if got := labelsOf(frame.Entered); !equal(got, []string{"Faction A", "Faction B", "Faction C"}) {
		t.Fatalf("entered = %v", got)
	}
	for _, e := range frame.Entered {
		if e.From != rootBefore.Position {
			t.Errorf("%s enters from %v, want parent's previous position %v", e.Label, e.From, rootBefore.Position)
		}
	}
	if got := labelsOf(frame.Updated); !equal(got, []string{"Federation"}) {
		t.Errorf("updated = %v", got)
	}
	if len(frame.LinksEntered) != 3 {
		t.Fatalf("links entered = %d, want 3", len(frame.LinksEntered))
	}
	for _, l := range frame.LinksEntered {
		if l.From.From != rootBefore.Position || l.From.To != rootBefore.Position {
			t.Errorf("link to %s starts at %+v", l.Target, l.From)
		}
	}
}

func TestDiffCollapseExitsToAncestor(t *testing.T) {
	f := newFixture(t)
	f.tree.ExpandAll()
	f.step(f.tree.Root().ID())

	frame := f.toggle("Federation")
	want := []string{"Faction A", "Faction A1", "Faction A2", "Faction B", "Faction C", "Faction C1"}
	if got := labelsOf(frame.Exited); !equal(got, want) {
		t.Fatalf("exited = %v, want %v", got, want)
	}
	root, _ := f.snap.Lookup(f.id("Federation"))
	for _, e := range frame.Exited {
		if e.To != root.Position {
			t.Errorf("%s exits to %v, want surviving ancestor at %v", e.Label, e.To, root.Position)
		}
	}
	if len(frame.LinksExited) != 6 {
		t.Errorf("links exited = %d, want 6", len(frame.LinksExited))
	}
	if len(frame.Entered) != 0 {
		t.Errorf("entered = %v", labelsOf(frame.Entered))
	}
}

func TestDiffKeyedByID(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tree.Expand(f.id("Federation")); err != nil {
		t.Fatal(err)
	}
	f.step(f.tree.Root().ID())
	before, _ := f.snap.Lookup(f.id("Faction B"))

	// Expanding A inserts two nodes ahead of B in pre-order; B must still be
	// reported as an update of the same element.
	frame := f.toggle("Faction A")
	var moved *NodeTransition
	for i := range frame.Updated {
		if frame.Updated[i].ID == f.id("Faction B") {
			moved = &frame.Updated[i]
		}
	}
	if moved == nil {
		t.Fatal("Faction B not in updated set")
	}
	if moved.From != before.Position {
		t.Errorf("B moves from %v, want %v", moved.From, before.Position)
	}
	if got := labelsOf(frame.Entered); !equal(got, []string{"Faction A1", "Faction A2"}) {
		t.Errorf("entered = %v", got)
	}
}

func TestDiffEntryFallsBackToNearestAncestor(t *testing.T) {
	f := newFixture(t)
	f.step(f.tree.Root().ID())
	root, _ := f.snap.Lookup(f.id("Federation"))

	// Reveal A1 from a fully collapsed tree: A and A1 both enter, and A1's
	// parent was not on screen before.
	a1 := f.id("Faction A1")
	if _, err := f.tree.Reveal(a1); err != nil {
		t.Fatal(err)
	}
	frame := f.step(a1)
	for _, e := range frame.Entered {
		if e.From != root.Position {
			t.Errorf("%s enters from %v, want root's previous position %v", e.Label, e.From, root.Position)
		}
	}
}

func TestPathD(t *testing.T) {
	p := Path{From: view.Point{X: 0, Y: 0}, To: view.Point{X: 100, Y: 80}}
	if got, want := p.D(), "M0,0 C0,40 100,40 100,80"; got != want {
		t.Errorf("D() = %q, want %q", got, want)
	}
}

func TestFrameEmpty(t *testing.T) {
	f := newFixture(t)
	f.step(f.tree.Root().ID())
	if frame := f.step(f.tree.Root().ID()); !frame.Empty() {
		t.Errorf("re-layout without changes should be empty: %+v", frame)
	}
	if !(Frame{Kind: KindLayout}).Empty() {
		t.Error("zero layout frame should be empty")
	}
	if (Frame{Kind: KindTransform}).Empty() {
		t.Error("transform frames are never empty")
	}
}

func TestWire(t *testing.T) {
	f := newFixture(t)
	frame := f.step(f.tree.Root().ID())
	frame.Navigate = "https://example.org"

	data, err := Encode(frame)
	if err != nil {
		t.Fatal(err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if env.Type != MessageFrame || env.Frame == nil {
		t.Fatalf("envelope = %+v", env)
	}
	if env.DurationMS != DefaultDuration.Milliseconds() {
		t.Errorf("duration = %d", env.DurationMS)
	}
	if env.Frame.Navigate != "https://example.org" || len(env.Frame.Entered) != 1 {
		t.Errorf("frame = %+v", env.Frame)
	}

	data, err = EncodeError(errors.New("boom"))
	if err != nil {
		t.Fatal(err)
	}
	if env, _ := Decode(data); env.Type != MessageError || env.Error != "boom" {
		t.Errorf("error envelope = %+v", env)
	}
}

func TestRenderers(t *testing.T) {
	var latest Latest
	calls := 0
	counting := RendererFunc(func(context.Context, Frame) error { calls++; return nil })
	failing := RendererFunc(func(context.Context, Frame) error { return errors.New("sink closed") })

	m := Multi{counting, &latest}
	if err := m.Render(context.Background(), Frame{Seq: 7}); err != nil {
		t.Fatal(err)
	}
	if calls != 1 || latest.Count() != 1 || latest.Frame().Seq != 7 {
		t.Errorf("calls=%d count=%d seq=%d", calls, latest.Count(), latest.Frame().Seq)
	}
	if err := (Multi{failing, &latest}).Render(context.Background(), Frame{}); err == nil {
		t.Error("Multi should stop at the first error")
	}
	if latest.Count() != 1 {
		t.Error("renderers after a failure should not run")
	}
	if err := Discard.Render(context.Background(), Frame{}); err != nil {
		t.Error(err)
	}
}
