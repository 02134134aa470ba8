package view

import (
	"fmt"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestViewportClamp(t *testing.T) {
	tests := []struct {
		name string
		in   Viewport
		want Viewport
	}{
		{"usable", Viewport{960, 600}, Viewport{960, 600}},
		{"zero", Viewport{0, 0}, Viewport{MinWidth, MinHeight}},
		{"negative", Viewport{-10, 400}, Viewport{MinWidth, 400}},
		{"nan", Viewport{math.NaN(), math.NaN()}, Viewport{MinWidth, MinHeight}},
		{"inf", Viewport{math.Inf(1), 300}, Viewport{MinWidth, 300}},
		{"tiny", Viewport{20, 30}, Viewport{MinWidth, MinHeight}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBounds(t *testing.T) {
	if _, ok := Bounds(nil); ok {
		t.Error("Bounds(nil) should report !ok")
	}
	r, ok := Bounds([]Point{{-100, 0}, {100, 80}, {0, 160}})
	if !ok {
		t.Fatal("Bounds() should report ok")
	}
	want := Rect{MinX: -100, MinY: 0, MaxX: 100, MaxY: 160}
	if r != want {
		t.Errorf("Bounds() = %+v, want %+v", r, want)
	}
	if c := r.Center(); c != (Point{0, 80}) {
		t.Errorf("Center() = %v, want {0 80}", c)
	}
}

func TestRecenterCentersBoundingBox(t *testing.T) {
	points := []Point{{-100, 0}, {100, 80}}
	vp := Viewport{Width: 800, Height: 600}

	tr := Recenter(points, vp, RecenterOptions{})
	if tr.K != 1 {
		t.Errorf("K = %v, want 1", tr.K)
	}
	box, _ := Bounds(points)
	if got := tr.Apply(box.Center()); got != vp.Center() {
		t.Errorf("box center maps to %v, want %v", got, vp.Center())
	}
}

func TestRecenterSingleNode(t *testing.T) {
	vp := Viewport{Width: 400, Height: 300}
	tr := Recenter([]Point{{0, 0}}, vp, RecenterOptions{Fit: true})
	if got := tr.Apply(Point{}); got != (Point{200, 150}) {
		t.Errorf("single node maps to %v, want {200 150}", got)
	}
	if tr.K != 1 {
		t.Errorf("single node K = %v, want 1", tr.K)
	}
}

func TestRecenterEmpty(t *testing.T) {
	tr := Recenter(nil, Viewport{}, RecenterOptions{})
	if tr != (Transform{X: MinWidth / 2, Y: MinHeight / 2, K: 1}) {
		t.Errorf("Recenter(nil) = %+v", tr)
	}
}

func TestRecenterAnchorTop(t *testing.T) {
	points := []Point{{0, 0}, {-50, 80}, {50, 80}}
	vp := Viewport{Width: 600, Height: 600}

	tr := Recenter(points, vp, RecenterOptions{Anchor: AnchorTop, TopMargin: 30})
	if got := tr.Apply(Point{0, 0}); got != (Point{300, 30}) {
		t.Errorf("root maps to %v, want {300 30}", got)
	}

	tr = Recenter(points, vp, RecenterOptions{Anchor: AnchorTop})
	if got := tr.Apply(Point{0, 0}).Y; got != DefaultTopMargin {
		t.Errorf("default top margin = %v, want %v", got, DefaultTopMargin)
	}
}

func TestRecenterFitClampsScale(t *testing.T) {
	wide := []Point{{-5000, 0}, {5000, 80}}
	tr := Recenter(wide, Viewport{Width: 800, Height: 600}, RecenterOptions{Fit: true})
	if tr.K != DefaultScaleExtent.Min {
		t.Errorf("K = %v, want clamped to %v", tr.K, DefaultScaleExtent.Min)
	}

	narrow := []Point{{-10, 0}, {10, 10}}
	tr = Recenter(narrow, Viewport{Width: 800, Height: 600}, RecenterOptions{Fit: true, Extent: ScaleExtent{0.5, 2}})
	if tr.K != 2 {
		t.Errorf("K = %v, want clamped to 2", tr.K)
	}
}

func TestRecenterIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")
		points := make([]Point, n)
		for i := range points {
			points[i] = Point{
				X: rapid.Float64Range(-2000, 2000).Draw(t, fmt.Sprintf("x%d", i)),
				Y: rapid.Float64Range(0, 2000).Draw(t, fmt.Sprintf("y%d", i)),
			}
		}
		vp := Viewport{
			Width:  rapid.Float64Range(-100, 3000).Draw(t, "w"),
			Height: rapid.Float64Range(-100, 3000).Draw(t, "h"),
		}
		opts := RecenterOptions{
			Anchor: Anchor(rapid.IntRange(0, 1).Draw(t, "anchor")),
			Fit:    rapid.Bool().Draw(t, "fit"),
		}

		first := Recenter(points, vp, opts)
		second := Recenter(points, vp, opts)
		if first != second {
			t.Fatalf("Recenter not idempotent: %+v then %+v", first, second)
		}
		if math.IsNaN(first.X) || math.IsNaN(first.Y) || math.IsNaN(first.K) {
			t.Fatalf("Recenter produced NaN: %+v", first)
		}
	})
}

func TestZoomKeepsFocusFixed(t *testing.T) {
	tr := Transform{X: 100, Y: 50, K: 1}
	focus := Point{400, 300}

	zoomed := Zoom(tr, 1.2, focus, DefaultScaleExtent)
	if math.Abs(zoomed.K-1.2) > 1e-9 {
		t.Errorf("K = %v, want 1.2", zoomed.K)
	}
	before := tr.Invert(focus)
	after := zoomed.Invert(focus)
	if math.Abs(before.X-after.X) > 1e-9 || math.Abs(before.Y-after.Y) > 1e-9 {
		t.Errorf("focus moved: %v -> %v", before, after)
	}

	if k := Zoom(tr, 100, focus, DefaultScaleExtent).K; k != DefaultScaleExtent.Max {
		t.Errorf("zoom in K = %v, want clamped to %v", k, DefaultScaleExtent.Max)
	}
	if k := Zoom(tr, 0.01, focus, DefaultScaleExtent).K; k != DefaultScaleExtent.Min {
		t.Errorf("zoom out K = %v, want clamped to %v", k, DefaultScaleExtent.Min)
	}
}

func TestPan(t *testing.T) {
	got := Pan(Transform{X: 1, Y: 2, K: 1.5}, 10, -5)
	if got != (Transform{X: 11, Y: -3, K: 1.5}) {
		t.Errorf("Pan() = %+v", got)
	}
}

func TestTransformString(t *testing.T) {
	tests := []struct {
		in   Transform
		want string
	}{
		{Identity, "translate(0,0) scale(1)"},
		{Transform{X: 480, Y: 300.5, K: 1.25}, "translate(480,300.5) scale(1.25)"},
		{Transform{X: -0.001, Y: 10, K: 0.6}, "translate(0,10) scale(0.6)"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseAnchor(t *testing.T) {
	for _, s := range []string{"", "center", "top"} {
		a, err := ParseAnchor(s)
		if err != nil {
			t.Errorf("ParseAnchor(%q) error: %v", s, err)
		}
		if s == "top" && a != AnchorTop {
			t.Errorf("ParseAnchor(top) = %v", a)
		}
	}
	if _, err := ParseAnchor("bottom"); err == nil {
		t.Error("ParseAnchor(bottom) should fail")
	}
}

func ExampleRecenter() {
	points := []Point{{0, 0}, {-50, 80}, {50, 80}}
	t := Recenter(points, Viewport{Width: 400, Height: 300}, RecenterOptions{})
	fmt.Println(t)
	// Output: translate(200,110) scale(1)
}
