package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/matzehuels/canopy/pkg/observability"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// ErrLoopStopped is returned by [Loop.Send] once the loop has exited.
var ErrLoopStopped = errors.New("controller loop stopped")

// =============================================================================
// Events
// =============================================================================

// Event is one interaction applied by a [Loop].
type Event interface {
	apply(ctx context.Context, c *Controller) (render.Frame, error)
}

// ClickEvent toggles a node.
type ClickEvent struct{ ID tree.ID }

// ResizeEvent changes the viewport.
type ResizeEvent struct{ Width, Height float64 }

// ZoomEvent scales the view around a viewport point.
type ZoomEvent struct {
	Factor float64
	Focus  view.Point
}

// PanEvent translates the view.
type PanEvent struct{ DX, DY float64 }

// ExpandAllEvent shows every node.
type ExpandAllEvent struct{}

// CollapseAllEvent hides everything below the root.
type CollapseAllEvent struct{}

// RecenterEvent resets user pan and zoom.
type RecenterEvent struct{}

func (e ClickEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.Click(ctx, e.ID)
}

func (e ResizeEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.Resize(ctx, e.Width, e.Height)
}

func (e ZoomEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.Zoom(ctx, e.Factor, e.Focus)
}

func (e PanEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.Pan(ctx, e.DX, e.DY)
}

func (ExpandAllEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.ExpandAll(ctx)
}

func (CollapseAllEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.CollapseAll(ctx)
}

func (RecenterEvent) apply(ctx context.Context, c *Controller) (render.Frame, error) {
	return c.Recenter(ctx)
}

// =============================================================================
// Loop
// =============================================================================

// Loop owns a Controller and applies events to it on a single goroutine.
// Each event runs to completion (toggle, layout, render) before the next is
// taken. Resulting frames are published to every [Subscription].
//
// A frame's Navigate link only reaches the subscription that sent the
// click (see [Subscription.Send]).
type Loop struct {
	c        *Controller
	requests chan request
	done     chan struct{}

	mu      sync.Mutex
	subs    map[uint64]*Subscription
	nextSub uint64
	current render.Frame
	last    render.Snapshot // state after the last published frame
	primed  bool
	stopped bool
}

type request struct {
	ev     Event
	origin uint64 // sending subscription, 0 for none
	reply  chan outcome
}

type outcome struct {
	frame render.Frame
	err   error
}

// NewLoop wraps c. buffer is the number of events that may wait while one
// is applied; values below 1 mean 16.
func NewLoop(c *Controller, buffer int) *Loop {
	if buffer < 1 {
		buffer = 16
	}
	return &Loop{
		c:        c,
		requests: make(chan request, buffer),
		done:     make(chan struct{}),
		subs:     make(map[uint64]*Subscription),
		last:     c.Snapshot(),
	}
}

// Run starts the controller (if needed) and applies events until ctx is
// cancelled. Subscriptions are closed when Run returns. A cancelled context
// is a normal shutdown and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	if !l.c.Started() {
		f, err := l.c.Start(ctx)
		if err != nil {
			return err
		}
		l.publish(ctx, f, 0)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-l.requests:
			f, err := req.ev.apply(ctx, l.c)
			if err == nil {
				l.publish(ctx, f, req.origin)
			} else {
				l.c.logger.Debug("event rejected", "error", err)
			}
			if req.reply != nil {
				req.reply <- outcome{frame: f, err: err}
			}
		}
	}
}

// Send queues ev and waits until it has been applied. The returned frame
// keeps its Navigate link; subscribers never see it.
func (l *Loop) Send(ctx context.Context, ev Event) (render.Frame, error) {
	return l.send(ctx, ev, 0)
}

func (l *Loop) send(ctx context.Context, ev Event, origin uint64) (render.Frame, error) {
	req := request{ev: ev, origin: origin, reply: make(chan outcome, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return render.Frame{}, ErrLoopStopped
	case <-ctx.Done():
		return render.Frame{}, ctx.Err()
	}
	select {
	case out := <-req.reply:
		return out.frame, out.err
	case <-l.done:
		return render.Frame{}, ErrLoopStopped
	case <-ctx.Done():
		return render.Frame{}, ctx.Err()
	}
}

// Post queues ev without waiting. It reports false when the queue is full
// or the loop has stopped.
func (l *Loop) Post(ev Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.requests <- request{ev: ev}:
		return true
	default:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Current returns the latest full-state frame, and false before the first
// frame has been produced.
func (l *Loop) Current() (render.Frame, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.primed
}

// Subscribe registers a frame consumer. The subscription immediately holds
// the current state (when there is one) so late joiners can draw it.
func (l *Loop) Subscribe(name string) *Subscription {
	s := &Subscription{ch: make(chan render.Frame, 1), name: name, loop: l}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		close(s.ch)
		s.closed = true
		return s
	}
	l.nextSub++
	s.id = l.nextSub
	l.subs[s.id] = s
	if l.primed {
		// base stays empty: the subscriber holds nothing yet.
		s.ch <- l.current
	}
	return s
}

// Subscribers returns the number of open subscriptions.
func (l *Loop) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

func (l *Loop) publish(ctx context.Context, f render.Frame, origin uint64) {
	next := l.c.Snapshot()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = l.c.Current()
	l.primed = true
	for id, s := range l.subs {
		g := f
		if id != origin {
			g.Navigate = ""
		}
		s.offer(ctx, g, l.last, next)
	}
	l.last = next
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for id, s := range l.subs {
		delete(l.subs, id)
		s.closed = true
		close(s.ch)
	}
	close(l.done)
}

// =============================================================================
// Subscription
// =============================================================================

// Subscription receives frames from a Loop. It holds at most one pending
// frame. A newer frame replaces an unread one, so slow consumers skip
// stale states instead of building a backlog. The replacement is diffed
// against the state the consumer last received, so no node entry or exit
// is lost.
type Subscription struct {
	ch     chan render.Frame
	id     uint64
	name   string
	loop   *Loop
	closed bool

	// base is the state the consumer holds before the pending frame.
	// Guarded by the loop mutex.
	base render.Snapshot
}

// C returns the frame channel. It is closed when the subscription or the
// loop ends.
func (s *Subscription) C() <-chan render.Frame { return s.ch }

// Name returns the name given to Subscribe.
func (s *Subscription) Name() string { return s.name }

// Send is like [Loop.Send], but the resulting Navigate link is also
// delivered on this subscription.
func (s *Subscription) Send(ctx context.Context, ev Event) (render.Frame, error) {
	return s.loop.send(ctx, ev, s.id)
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	l := s.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(l.subs, s.id)
	close(s.ch)
}

// offer delivers f, which moves the tree from prev to next, replacing an
// unread frame. Called with the loop mutex held; only the loop goroutine
// sends, so the last send cannot block.
func (s *Subscription) offer(ctx context.Context, f render.Frame, prev, next render.Snapshot) {
	select {
	case s.ch <- f:
		s.base = prev
		return
	default:
	}
	select {
	case stale := <-s.ch:
		observability.Session().OnDrop(ctx, s.name, stale.Seq)
		f = coalesce(stale, f, s.base, next)
	default:
		// The consumer took the pending frame meanwhile.
		s.base = prev
	}
	select {
	case s.ch <- f:
	default:
	}
}

// coalesce merges an unread frame into its successor. Node and link
// membership is recomputed from base, the state the consumer holds; the
// transform and sequence number come from f.
func coalesce(stale, f render.Frame, base, next render.Snapshot) render.Frame {
	if f.Navigate == "" {
		f.Navigate = stale.Navigate
	}
	if stale.Kind == render.KindTransform && f.Kind == render.KindTransform {
		return f
	}
	source := f.Source
	if source == "" {
		source = stale.Source
	}
	merged := render.Diff(base, next, source)
	merged.Seq = f.Seq
	merged.Transform = f.Transform
	merged.Viewport = f.Viewport
	merged.Duration = f.Duration
	merged.Navigate = f.Navigate
	return merged
}
