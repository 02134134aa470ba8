package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/pkg/buildinfo"
	"github.com/matzehuels/canopy/pkg/cache"
	"github.com/matzehuels/canopy/pkg/config"
	"github.com/matzehuels/canopy/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "canopy"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is the loaded configuration. Commands see defaults until the
	// root command's pre-run has loaded the file.
	Config *config.Config

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Canopy draws collapsible tree diagrams",
		Long: `Canopy renders a hierarchy as an interactive tidy tree. Clicking a node
toggles its children; the diagram re-lays out, animates and recenters.

Explore a tree in the terminal or the browser, or render static snapshots.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultFile, "configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file and environment, then applies
// the log level. --verbose wins over the configured level.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.Config = cfg

	level := LogInfo
	if parsed, err := log.ParseLevel(cfg.Log.Level); err == nil {
		level = parsed
	}
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	c.Logger.Debug("configuration loaded", "file", c.configPath, "dataset", cfg.Dataset)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), buildinfo.Version+":")
	return pipeline.NewRunner(store, keyer, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || !c.Config.Cache.Enabled {
		return cache.NewNullCache(), nil
	}
	dir, err := c.resolveCacheDir()
	if err != nil {
		c.Logger.Warn("caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/canopy/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// applyConfig copies configured settings into opts for every flag the user
// did not set explicitly, so flags override the configuration file.
func (c *CLI) applyConfig(cmd *cobra.Command, opts *pipeline.Options) {
	cfg := c.Config
	flags := cmd.Flags()
	unset := func(name string) bool {
		return flags.Lookup(name) == nil || !flags.Changed(name)
	}

	if unset("dataset") {
		opts.Dataset = cfg.Dataset
	}
	if unset("width") {
		opts.Width = cfg.Viewport.Width
	}
	if unset("height") {
		opts.Height = cfg.Viewport.Height
	}
	if unset("collapse") {
		opts.Collapse = cfg.Tree.Collapse
	}
	if unset("root-expanded") {
		opts.RootExpanded = cfg.Tree.RootExpanded
	}
	if unset("fit") {
		opts.Fit = cfg.Layout.Fit
	}
	if unset("anchor") {
		opts.Anchor = cfg.View.Anchor
	}
	if unset("scale-to-fit") {
		opts.ScaleToFit = cfg.View.Fit
	}
	if unset("padding") {
		opts.Padding = cfg.View.Padding
	}
	opts.Layout = cfg.LayoutConfig()
	opts.Logger = c.Logger
}

// addTreeFlags registers the flags shared by commands that build a tree.
func addTreeFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().StringVar(&opts.Dataset, "dataset", "", "dataset file (.json, .yaml, .toml); empty uses the built-in sample")
	cmd.Flags().StringSliceVarP(&opts.Expand, "expand", "e", nil, `label paths to expand, e.g. "Federation/Faction A", or "*" for all`)
	cmd.Flags().BoolVar(&opts.RootExpanded, "root-expanded", false, "start with the root's children visible")
	cmd.Flags().StringVar(&opts.Collapse, "collapse", "", "collapse policy: deep (default), shallow")
}

// addViewFlags registers viewport and recentering flags.
func addViewFlags(cmd *cobra.Command, opts *pipeline.Options) {
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "viewport width")
	cmd.Flags().Float64Var(&opts.Height, "height", 0, "viewport height")
	cmd.Flags().BoolVar(&opts.Fit, "fit", false, "size the layout to the viewport instead of fixed node spacing")
	cmd.Flags().StringVar(&opts.Anchor, "anchor", "", "recenter anchor: center (default), top")
	cmd.Flags().BoolVar(&opts.ScaleToFit, "scale-to-fit", false, "zoom so the whole tree fits the viewport")
	cmd.Flags().Float64Var(&opts.Padding, "padding", 0, "padding kept around the tree with --scale-to-fit")
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	return strings.Split(s, ",")
}
