package cache

// Keyer derives cache keys from pipeline inputs.
type Keyer interface {
	// LayoutKey identifies a layout of a dataset in a given visibility state.
	LayoutKey(datasetHash string, opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a frame.
	ArtifactKey(frameHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the inputs that change layout output.
type LayoutKeyOpts struct {
	Expanded []string `json:"expanded"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Fit      bool     `json:"fit"`
	// Engine is a hash of the layout engine settings.
	Engine string `json:"engine,omitempty"`
}

// ArtifactKeyOpts are the inputs that change rendered output.
type ArtifactKeyOpts struct {
	Format      string `json:"format"`
	Title       string `json:"title,omitempty"`
	Static      bool   `json:"static,omitempty"`
	NoGlow      bool   `json:"no_glow,omitempty"`
	Detailed    bool   `json:"detailed,omitempty"`
	LeftToRight bool   `json:"left_to_right,omitempty"`
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(datasetHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", datasetHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(frameHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", frameHash, opts)
}
