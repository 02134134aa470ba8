package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/pkg/pipeline"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// layoutDocument is the JSON written by the layout command.
type layoutDocument struct {
	Source    string         `json:"source"`
	Viewport  view.Viewport  `json:"viewport"`
	Transform view.Transform `json:"transform"`
	Nodes     []layoutNode   `json:"nodes"`
}

// layoutNode is one visible node in layout coordinates.
type layoutNode struct {
	ID        tree.ID `json:"id"`
	Parent    tree.ID `json:"parent,omitempty"`
	Label     string  `json:"label"`
	Path      string  `json:"path"`
	Depth     int     `json:"depth"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Collapsed bool    `json:"collapsed"`
	Leaf      bool    `json:"leaf"`
}

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "layout [dataset]",
		Short: "Compute node positions for one state of the tree",
		Long: `Compute the tidy tree layout of the visible nodes and write it as JSON.

The output lists every visible node in pre-order with its label path and
layout coordinates, plus the viewport and the recentered display transform.
Use the same --expand paths as 'render' to choose which nodes are visible.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if len(args) == 1 {
				opts.Dataset = args[0]
			}
			return c.runLayout(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <dataset>.layout.json, - for stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	addTreeFlags(cmd, &opts)
	addViewFlags(cmd, &opts)

	return cmd
}

// runLayout loads the dataset, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	root, hash, err := pipeline.Load(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", opts.SourceName(), err)
	}
	t, err := pipeline.BuildTree(root, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	lr, cacheHit, err := runner.GenerateLayoutWithCacheInfo(ctx, t, hash, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	doc := newLayoutDocument(t, pipeline.BuildFrame(t, lr, opts), opts.SourceName())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", opts.Dataset) + ".layout.json"
	}
	if outputPath == stdoutPath {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := writeFile(outputPath, data); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(t.Len(), len(doc.Nodes), cacheHit)
	printNewline()
	printNextStep("Render", appName+" render "+renderHint(opts))

	return nil
}

// newLayoutDocument collects the visible placements of f in pre-order.
func newLayoutDocument(t *tree.Tree, f render.Frame, source string) layoutDocument {
	doc := layoutDocument{
		Source:    source,
		Viewport:  f.Viewport,
		Transform: f.Transform,
	}
	byID := make(map[tree.ID]render.Placement, len(f.Entered)+len(f.Updated))
	for _, n := range f.Visible() {
		byID[n.ID] = n.Placement
	}
	for _, n := range t.Visible() {
		p, ok := byID[n.ID()]
		if !ok {
			continue
		}
		doc.Nodes = append(doc.Nodes, layoutNode{
			ID:        p.ID,
			Parent:    p.Parent,
			Label:     p.Label,
			Path:      strings.Join(n.Path(), pipeline.PathSeparator),
			Depth:     p.Depth,
			X:         p.Position.X,
			Y:         p.Position.Y,
			Collapsed: p.Collapsed,
			Leaf:      p.Leaf,
		})
	}
	return doc
}

// renderHint reproduces the dataset and expand flags for a render command.
func renderHint(opts pipeline.Options) string {
	var parts []string
	if opts.Dataset != "" {
		parts = append(parts, opts.Dataset)
	}
	for _, e := range opts.Expand {
		parts = append(parts, fmt.Sprintf("-e %q", e))
	}
	return strings.Join(parts, " ")
}
