package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	cerrors "github.com/matzehuels/canopy/pkg/errors"
)

// Format identifies a dataset encoding.
type Format string

// Supported dataset encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath infers the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", cerrors.New(cerrors.ErrCodeInvalidFormat, "cannot infer dataset format from %q (want .json, .yaml, .yml or .toml)", path)
}

// Decode parses data in the given format and validates the result.
func Decode(data []byte, format Format) (*Node, error) {
	var root Node
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "decode json")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "decode yaml")
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &root); err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeInvalidDataset, err, "decode toml")
		}
	default:
		return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported dataset format %q", format)
	}

	if err := Validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Read decodes a dataset from r.
func Read(r io.Reader, format Format) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return Decode(data, format)
}

// ReadFile reads and validates a dataset file. The format is inferred from
// the extension. The raw bytes are returned alongside the tree so callers
// can derive content hashes for caching.
func ReadFile(path string) (*Node, []byte, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, cerrors.Wrap(cerrors.ErrCodeFileNotFound, err, "dataset %s", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	root, err := Decode(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return root, data, nil
}

// Encode serialises a dataset in the given format.
func Encode(root *Node, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		// Nodes are recursive; indent the compact encoding afterwards.
		data, err := json.Marshal(root)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(root)
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(root); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported dataset format %q", format)
}
