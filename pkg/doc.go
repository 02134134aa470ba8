// Package pkg provides the core libraries for Canopy collapsible tree diagrams.
//
// # Overview
//
// Canopy draws a hierarchy as a tidy tree whose nodes expand and collapse on
// click. Every click re-lays out the visible nodes, animates them from their
// previous positions and recenters the view. The pkg directory is organized
// into four main areas:
//
//  1. Domain model - [dataset], [tree]
//  2. Geometry - [layout], [view]
//  3. Output - [render] with the [render/svg] and [render/dot] sinks
//  4. Orchestration - [controller] (interactive) and [pipeline] (static)
//
// # Architecture
//
// The data flow of one interaction:
//
//	dataset.Node (JSON / YAML / TOML, file or URL)
//	         ↓
//	    [tree] package (visibility state, toggle)
//	         ↓
//	    [layout] package (tidy tree positions)
//	         ↓
//	    [render] package (diff against the previous snapshot)
//	         ↓
//	    [view] package (recenter transform)
//	         ↓
//	    Frame → browser / terminal / SVG / DOT / JSON
//
// # Quick Start
//
// Drive an interactive diagram:
//
//	t, _ := tree.New(dataset.Federation())
//	c := controller.New(t, controller.Options{
//	    Viewport: view.Viewport{Width: 960, Height: 600},
//	})
//	c.Start(ctx)
//	frame, _ := c.Click(ctx, t.Root().ID())
//	fmt.Println(len(frame.Entered)) // 3
//
// Render one state statically:
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, _ := runner.Execute(ctx, pipeline.Options{
//	    Expand:  []string{"Federation/Faction A"},
//	    Formats: []string{pipeline.FormatSVG, pipeline.FormatDOT},
//	})
//
// # Main Packages
//
// [controller] - Owns the mutable view state and runs the
// toggle → layout → diff → recenter → render cycle. [controller.Loop]
// serialises events from concurrent hosts.
//
// [pipeline] - Load → state → layout → render with layout and artifact
// caching. Used by the CLI and by the server's export endpoint.
//
// ## Infrastructure
//
// [cache] - Cache interface with file, memory and null backends and the
// key derivation used by the pipeline.
//
// [config] - canopy.yaml and CANOPY_* environment configuration.
//
// [httputil] - Remote dataset fetching with retries.
//
// [observability] - Hook interfaces for pipeline, cache and controller events.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/tree/...               # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// [dataset]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/dataset
// [tree]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/tree
// [layout]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/layout
// [view]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/view
// [render]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/render
// [render/svg]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/render/svg
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/render/dot
// [controller]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/controller
// [controller.Loop]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/controller#Loop
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/config
// [httputil]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/canopy/pkg/errors
package pkg
