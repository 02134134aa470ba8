package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Controller hooks
	ctl := NoopControllerHooks{}
	ctl.OnToggle(ctx, "node", true)
	ctl.OnResize(ctx, 960, 600)
	ctl.OnLayout(ctx, 7, time.Millisecond)
	ctl.OnRender(ctx, 3, 1, 0, nil)
	ctl.OnNavigate(ctx, "https://example.org", nil)

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "federation.json")
	p.OnLoadComplete(ctx, "federation.json", 7, time.Second, nil)
	p.OnLayoutStart(ctx, 7)
	p.OnLayoutComplete(ctx, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "layout")
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "artifact", 1024)

	// Session hooks
	s := NoopSessionHooks{}
	s.OnConnect(ctx, "127.0.0.1:5000")
	s.OnDrop(ctx, "127.0.0.1:5000", 4)
	s.OnDisconnect(ctx, "127.0.0.1:5000", time.Minute)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Controller().(NoopControllerHooks); !ok {
		t.Error("Controller() should return NoopControllerHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Session().(NoopSessionHooks); !ok {
		t.Error("Session() should return NoopSessionHooks by default")
	}

	// Set custom hooks
	customController := &testControllerHooks{}
	SetControllerHooks(customController)
	if Controller() != customController {
		t.Error("SetControllerHooks should set custom hooks")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customSession := &testSessionHooks{}
	SetSessionHooks(customSession)
	if Session() != customSession {
		t.Error("SetSessionHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Controller().(NoopControllerHooks); !ok {
		t.Error("Reset() should restore NoopControllerHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testControllerHooks{}
	SetControllerHooks(custom)

	// Setting nil should be ignored
	SetControllerHooks(nil)

	if Controller() != custom {
		t.Error("SetControllerHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testControllerHooks struct{ NoopControllerHooks }
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testSessionHooks struct{ NoopSessionHooks }
