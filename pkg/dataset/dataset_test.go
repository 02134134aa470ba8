package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/matzehuels/canopy/pkg/errors"
)

const federationJSON = `{
  "name": "Federation",
  "children": [
    {"name": "Faction A", "children": [{"name": "Faction A1"}, {"name": "Faction A2"}]},
    {"name": "Faction B", "link": "https://example.org/b"},
    {"name": "Faction C", "children": [{"name": "Faction C1"}]}
  ]
}`

const federationYAML = `
name: Federation
children:
  - name: Faction A
    children:
      - name: Faction A1
      - name: Faction A2
  - name: Faction B
    link: https://example.org/b
  - name: Faction C
    children:
      - name: Faction C1
`

const federationTOML = `
name = "Federation"

[[children]]
name = "Faction A"

  [[children.children]]
  name = "Faction A1"

  [[children.children]]
  name = "Faction A2"

[[children]]
name = "Faction B"
link = "https://example.org/b"

[[children]]
name = "Faction C"

  [[children.children]]
  name = "Faction C1"
`

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", federationJSON, FormatJSON},
		{"yaml", federationYAML, FormatYAML},
		{"toml", federationTOML, FormatTOML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Decode([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if root.Name != "Federation" {
				t.Errorf("root name = %q, want Federation", root.Name)
			}
			if got := root.Count(); got != 7 {
				t.Errorf("Count() = %d, want 7", got)
			}
			if len(root.Children) != 3 {
				t.Fatalf("root has %d children, want 3", len(root.Children))
			}
			if root.Children[1].Link != "https://example.org/b" {
				t.Errorf("Faction B link = %q", root.Children[1].Link)
			}
			if got := root.Children[0].Children[1].Name; got != "Faction A2" {
				t.Errorf("child order not preserved: got %q at A[1]", got)
			}
		})
	}
}

func TestDecodeMissingName(t *testing.T) {
	_, err := Decode([]byte(`{"name":"Federation","children":[{"link":"https://example.org"}]}`), FormatJSON)
	if err == nil {
		t.Fatal("Decode() should fail for a node without a name")
	}
	if !errors.Is(err, ErrMissingName) {
		t.Errorf("error should wrap ErrMissingName: %v", err)
	}
	if !cerrors.Is(err, cerrors.ErrCodeInvalidDataset) {
		t.Errorf("error code = %v, want INVALID_DATASET", cerrors.GetCode(err))
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{"name": `), FormatJSON); err == nil {
		t.Error("truncated JSON should fail")
	}
	if _, err := Decode([]byte(`name = `), FormatTOML); err == nil {
		t.Error("truncated TOML should fail")
	}
	if _, err := Decode([]byte(federationJSON), Format("xml")); !cerrors.Is(err, cerrors.ErrCodeInvalidFormat) {
		t.Errorf("unknown format should be INVALID_FORMAT, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cyclic := &Node{Name: "Federation"}
	child := &Node{Name: "Faction A", Children: []*Node{cyclic}}
	cyclic.Children = []*Node{child}

	shared := &Node{Name: "Shared"}

	tests := []struct {
		name    string
		root    *Node
		wantErr error
	}{
		{"valid", Federation(), nil},
		{"nil root", nil, ErrEmpty},
		{"missing root name", &Node{}, ErrMissingName},
		{"nil child", &Node{Name: "Federation", Children: []*Node{nil}}, ErrMissingName},
		{"cycle", cyclic, ErrCycle},
		{"shared subtree", &Node{Name: "Federation", Children: []*Node{shared, shared}}, ErrSharedSubtree},
		{"bad link", &Node{Name: "Federation", Link: "javascript:alert(1)"}, ErrInvalidLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.root)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"tree.json", FormatJSON, false},
		{"tree.YAML", FormatYAML, false},
		{"tree.yml", FormatYAML, false},
		{"conf/tree.toml", FormatTOML, false},
		{"tree.xml", "", true},
		{"tree", "", true},
	}

	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "federation.yaml")
	if err := os.WriteFile(path, []byte(federationYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	root, raw, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if root.Count() != 7 {
		t.Errorf("Count() = %d, want 7", root.Count())
	}
	if string(raw) != federationYAML {
		t.Error("ReadFile() should return the raw file contents")
	}

	_, _, err = ReadFile(filepath.Join(dir, "missing.json"))
	if !cerrors.Is(err, cerrors.ErrCodeFileNotFound) {
		t.Errorf("missing file error code = %v, want FILE_NOT_FOUND", cerrors.GetCode(err))
	}
}

func TestEncodeDecode(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(Federation(), format)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			root, err := Decode(data, format)
			if err != nil {
				t.Fatalf("Decode() error: %v\n%s", err, data)
			}
			if root.Count() != Federation().Count() {
				t.Errorf("Count() = %d, want %d", root.Count(), Federation().Count())
			}
		})
	}
}

func TestExampleDataset(t *testing.T) {
	root, _, err := ReadFile(filepath.Join("..", "..", "examples", "federation.yaml"))
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if root.Count() != Federation().Count() {
		t.Errorf("Count() = %d, want %d", root.Count(), Federation().Count())
	}
	if got := root.Children[0].Link; got != "https://en.wikipedia.org/wiki/Faction" {
		t.Errorf("Faction A link = %q", got)
	}
}

func TestEncodeJSONIsStable(t *testing.T) {
	first, err := Encode(Federation(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) > 1024 {
		t.Fatalf("Encode(JSON) = %d bytes for the sample, want under 1KiB", len(first))
	}
	if !strings.Contains(string(first), "\n  \"children\": [") {
		t.Errorf("Encode(JSON) should be indented:\n%s", first)
	}
	second, err := Encode(Federation(), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("Encode(JSON) should be deterministic")
	}
}
