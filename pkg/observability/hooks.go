// Package observability provides hooks for metrics, tracing, and logging.
//
// Canopy does not depend on any observability backend. Consumers register
// hooks at startup and receive events about controller interactions, static
// pipeline runs, cache operations and browser sessions.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetControllerHooks(&myControllerHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	observability.Controller().OnToggle(ctx, id, changed)
//	observability.Controller().OnLayout(ctx, visible, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Controller Hooks
// =============================================================================

// ControllerHooks receives events from the interactive controller.
type ControllerHooks interface {
	// OnToggle records a click on a node. changed is false for leaves.
	OnToggle(ctx context.Context, node string, changed bool)

	// OnResize records a viewport change after clamping.
	OnResize(ctx context.Context, width, height float64)

	// OnLayout records a layout pass over the visible nodes.
	OnLayout(ctx context.Context, visible int, duration time.Duration)

	// OnRender records a frame handed to the renderer.
	OnRender(ctx context.Context, entered, updated, exited int, err error)

	// OnNavigate records a link opened in response to a click.
	OnNavigate(ctx context.Context, link string, err error)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the static render pipeline.
type PipelineHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, source string)
	OnLoadComplete(ctx context.Context, source string, nodeCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutStart(ctx context.Context, visible int)
	OnLayoutComplete(ctx context.Context, duration time.Duration, err error)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Session Hooks
// =============================================================================

// SessionHooks receives events from browser sessions of the serve host.
type SessionHooks interface {
	// OnConnect records a new websocket subscriber.
	OnConnect(ctx context.Context, remote string)

	// OnDisconnect records a subscriber leaving.
	OnDisconnect(ctx context.Context, remote string, duration time.Duration)

	// OnDrop records a frame skipped because the subscriber was behind.
	OnDrop(ctx context.Context, remote string, seq uint64)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopControllerHooks is a no-op implementation of ControllerHooks.
type NoopControllerHooks struct{}

func (NoopControllerHooks) OnToggle(context.Context, string, bool)         {}
func (NoopControllerHooks) OnResize(context.Context, float64, float64)     {}
func (NoopControllerHooks) OnLayout(context.Context, int, time.Duration)   {}
func (NoopControllerHooks) OnRender(context.Context, int, int, int, error) {}
func (NoopControllerHooks) OnNavigate(context.Context, string, error)      {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoadStart(context.Context, string) {}
func (NoopPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnLayoutStart(context.Context, int)                               {}
func (NoopPipelineHooks) OnLayoutComplete(context.Context, time.Duration, error)           {}
func (NoopPipelineHooks) OnRenderStart(context.Context, []string)                          {}
func (NoopPipelineHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopSessionHooks is a no-op implementation of SessionHooks.
type NoopSessionHooks struct{}

func (NoopSessionHooks) OnConnect(context.Context, string)                   {}
func (NoopSessionHooks) OnDisconnect(context.Context, string, time.Duration) {}
func (NoopSessionHooks) OnDrop(context.Context, string, uint64)              {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	controllerHooks ControllerHooks = NoopControllerHooks{}
	pipelineHooks   PipelineHooks   = NoopPipelineHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	sessionHooks    SessionHooks    = NoopSessionHooks{}
	hooksMu         sync.RWMutex
)

// SetControllerHooks registers custom controller hooks.
func SetControllerHooks(h ControllerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		controllerHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetSessionHooks registers custom session hooks.
func SetSessionHooks(h SessionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sessionHooks = h
	}
}

// Controller returns the registered controller hooks.
func Controller() ControllerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return controllerHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Session returns the registered session hooks.
func Session() SessionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sessionHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	controllerHooks = NoopControllerHooks{}
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	sessionHooks = NoopSessionHooks{}
}
