package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/pkg/httputil"
	"github.com/matzehuels/canopy/pkg/pipeline"
)

// stdoutPath selects standard output for -o.
const stdoutPath = "-"

// defaultBase names outputs rendered from the built-in sample.
const defaultBase = "federation"

// renderCommand creates the render command for writing static snapshots.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "render [dataset]",
		Short: "Render one state of the tree to SVG, DOT or JSON",
		Long: `Render one visibility state of the tree to static files.

The tree starts with the root collapsed. Use --expand with label paths to open
nodes (ancestors are opened as needed), or --expand '*' to open everything:

  canopy render tree.yaml -e "Federation/Faction A" -f svg,dot

Formats: svg (animated first paint unless --static), dot, graphviz-svg
(laid out by Graphviz) and json (the frame sent to browser viewers).

Results are cached locally for faster subsequent runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if len(args) == 1 {
				opts.Dataset = args[0]
			}
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format), base path (multiple), or - for stdout")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, graphviz-svg, json (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached")
	addTreeFlags(cmd, &opts)
	addViewFlags(cmd, &opts)

	cmd.Flags().StringVar(&opts.Title, "title", "", "document title (svg)")
	cmd.Flags().BoolVar(&opts.Static, "static", false, "draw the final state without animation (svg)")
	cmd.Flags().BoolVar(&opts.NoGlow, "no-glow", false, "disable the node glow filter (svg)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "label nodes with depth and link (dot)")
	cmd.Flags().BoolVar(&opts.LeftToRight, "left-to-right", false, "lay out left to right (dot)")

	return cmd
}

// runRender executes the pipeline and writes the artifacts.
func (c *CLI) runRender(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Rendering "+opts.SourceName()+"...")
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done(fmt.Sprintf("Rendered %d artifact(s)", len(result.Artifacts)))

	return writeArtifacts(artifactWriteParams{
		artifacts:    result.Artifacts,
		formats:      opts.Formats,
		input:        opts.Dataset,
		output:       output,
		nodeCount:    result.Stats.NodeCount,
		visibleCount: result.Stats.VisibleCount,
		cacheHit:     result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit,
	})
}

// artifactWriteParams describes where rendered artifacts go.
type artifactWriteParams struct {
	artifacts    map[string][]byte
	formats      []string
	input        string
	output       string
	nodeCount    int
	visibleCount int
	cacheHit     bool
}

// writeArtifacts writes each artifact and prints a summary. A single
// artifact goes to output verbatim; several share output as a base path.
func writeArtifacts(p artifactWriteParams) error {
	if p.output == stdoutPath {
		if len(p.formats) != 1 {
			return fmt.Errorf("-o - needs exactly one format, got %d", len(p.formats))
		}
		_, err := os.Stdout.Write(p.artifacts[p.formats[0]])
		return err
	}

	paths := outputPaths(p.formats, p.input, p.output)
	formats := make([]string, 0, len(paths))
	for f := range paths {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	for _, format := range formats {
		if err := writeFile(paths[format], p.artifacts[format]); err != nil {
			return fmt.Errorf("write %s: %w", paths[format], err)
		}
	}

	printSuccess("Render complete")
	for _, format := range formats {
		printFile(paths[format])
	}
	printStats(p.nodeCount, p.visibleCount, p.cacheHit)
	return nil
}

// outputPaths assigns a file to every format.
func outputPaths(formats []string, input, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + pipeline.Extension(f)
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input (or from the last
// path element of a dataset URL).
// If output has a format extension (.svg, .dot, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return defaultBase
		}
		if httputil.IsRemote(input) {
			// Remote datasets are written to the working directory.
			if u, err := url.Parse(input); err == nil {
				input = path.Base(u.Path)
			}
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	switch ext {
	case ".svg", ".dot", ".json":
		return strings.TrimSuffix(output, ext)
	}
	return output
}

func writeFile(path string, data []byte) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty or "-", it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == stdoutPath {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
