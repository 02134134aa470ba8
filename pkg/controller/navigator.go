package controller

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Navigator opens a node's external link. Implementations are
// fire-and-forget: they must not block on whatever they launch, and their
// errors are logged by the controller but never stop a toggle.
type Navigator interface {
	Open(ctx context.Context, link string) error
}

// NopNavigator ignores every link. Hosts that navigate on their own (the
// browser page reads Frame.Navigate) use it.
type NopNavigator struct{}

// Open implements [Navigator].
func (NopNavigator) Open(context.Context, string) error { return nil }

// FuncNavigator adapts a function to [Navigator].
type FuncNavigator func(ctx context.Context, link string) error

// Open implements [Navigator].
func (fn FuncNavigator) Open(ctx context.Context, link string) error { return fn(ctx, link) }

// SystemNavigator hands links to the platform's URL opener (open, xdg-open
// or start). Only http and https links are accepted.
type SystemNavigator struct {
	// command overrides the platform lookup; used by tests.
	command func(link string) (*exec.Cmd, error)
}

// Open implements [Navigator]. The launched process is not waited for.
func (n SystemNavigator) Open(_ context.Context, link string) error {
	parsed, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	build := n.command
	if build == nil {
		build = openCommand
	}
	cmd, err := build(link)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func openCommand(link string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", link), nil
	case "linux":
		return exec.Command("xdg-open", link), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", link), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}
