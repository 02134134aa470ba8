package pipeline

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/render/dot"
	"github.com/matzehuels/canopy/pkg/render/svg"
)

// Render generates output artifacts in the requested formats.
func Render(ctx context.Context, f render.Frame, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = svg.Bytes(f, svgOptions(opts))
		case FormatDOT:
			data = []byte(dot.ToDOT(dot.FrameSnapshot(f), dotOptions(opts)))
		case FormatGraphvizSVG:
			data, err = dot.RenderSVG(ctx, dot.ToDOT(dot.FrameSnapshot(f), dotOptions(opts)))
		case FormatJSON:
			data, err = json.MarshalIndent(render.Wrap(f), "", "  ")
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func svgOptions(opts Options) svg.Options {
	return svg.Options{
		Title:  opts.Title,
		Static: opts.Static,
		NoGlow: opts.NoGlow,
	}
}

func dotOptions(opts Options) dot.Options {
	return dot.Options{
		Detailed:    opts.Detailed,
		LeftToRight: opts.LeftToRight,
	}
}
