package pipeline

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/matzehuels/canopy/pkg/cache"
	"github.com/matzehuels/canopy/pkg/dataset"
	"github.com/matzehuels/canopy/pkg/httputil"
	"github.com/matzehuels/canopy/pkg/tree"
)

// Load reads the dataset named by opts and returns it together with the
// content hash used for cache keys. An empty Dataset selects the built-in
// Federation sample; http(s) URLs are fetched with retries.
func Load(ctx context.Context, opts Options) (*dataset.Node, string, error) {
	if opts.Dataset == "" {
		root := dataset.Federation()
		data, err := json.Marshal(root)
		if err != nil {
			return nil, "", fmt.Errorf("encode sample: %w", err)
		}
		return root, cache.Hash(data), nil
	}

	if httputil.IsRemote(opts.Dataset) {
		return loadRemote(ctx, opts.Dataset)
	}

	root, data, err := dataset.ReadFile(opts.Dataset)
	if err != nil {
		return nil, "", err
	}
	return root, cache.Hash(data), nil
}

// loadRemote fetches a dataset URL. The format comes from the URL path's
// extension, as for files.
func loadRemote(ctx context.Context, rawURL string) (*dataset.Node, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	format, err := dataset.FormatFromPath(u.Path)
	if err != nil {
		return nil, "", err
	}
	data, err := httputil.FetchWithRetry(ctx, nil, rawURL)
	if err != nil {
		return nil, "", err
	}
	root, err := dataset.Decode(data, format)
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", rawURL, err)
	}
	return root, cache.Hash(data), nil
}

// BuildTree constructs the tree and applies opts.Expand.
func BuildTree(root *dataset.Node, opts Options) (*tree.Tree, error) {
	t, err := tree.New(root, opts.TreeOptions()...)
	if err != nil {
		return nil, err
	}
	if err := ApplyExpand(t, opts.Expand); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyExpand expands the nodes named by label paths, revealing their
// ancestors first. The entry "*" expands every node.
//
//	ApplyExpand(t, []string{"Federation", "Federation/Faction C"})
func ApplyExpand(t *tree.Tree, paths []string) error {
	for _, p := range paths {
		if p == ExpandAll {
			t.ExpandAll()
			continue
		}
		n, err := t.FindPath(SplitPath(p)...)
		if err != nil {
			return fmt.Errorf("expand %q: %w", p, err)
		}
		if _, err := t.Reveal(n.ID()); err != nil {
			return err
		}
		if _, err := t.Expand(n.ID()); err != nil {
			return err
		}
	}
	return nil
}
