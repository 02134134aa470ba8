package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/internal/server"
	"github.com/matzehuels/canopy/pkg/cache"
	"github.com/matzehuels/canopy/pkg/controller"
	"github.com/matzehuels/canopy/pkg/pipeline"
)

// serveCommand creates the serve command for hosting the diagram in a browser.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		origins []string
		open    bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "serve [dataset]",
		Short: "Serve the animated diagram to the browser",
		Long: `Serve the animated tree diagram over HTTP.

Every connected browser shares one tree: clicks from any viewer toggle nodes
for all of them. The page connects back over a websocket; the same
interactions are available as a JSON API under /api.

  canopy serve tree.yaml --addr :8080 --open`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if len(args) == 1 {
				opts.Dataset = args[0]
			}
			if !cmd.Flags().Changed("addr") {
				addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("allowed-origin") {
				origins = c.Config.Server.AllowedOrigins
			}
			if !cmd.Flags().Changed("open") {
				open = c.Config.Server.Open
			}
			return c.runServe(cmd.Context(), opts, addr, origins, open)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "extra CORS origin allowed to connect (repeatable, * for any)")
	cmd.Flags().BoolVar(&open, "open", false, "open the diagram in the system browser")
	addTreeFlags(cmd, &opts)
	addViewFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts pipeline.Options, addr string, origins []string, open bool) error {
	// Browsers follow node links themselves from Frame.Navigate.
	ctrl, err := c.newController(ctx, opts, false)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cache.NewMemoryCache(c.Config.Cache.MaxEntries), nil, c.Logger)
	defer runner.Close()

	srv := server.New(ctrl, server.Options{
		Addr:           addr,
		AllowedOrigins: origins,
		Logger:         c.Logger,
		Runner:         runner,
		Export:         opts,
		OnListen: func(bound string) {
			url := "http://" + bound
			printSuccess("Serving %s", StyleLink.Render(url))
			printDetail("Press Ctrl+C to stop")
			if !open {
				return
			}
			if err := (controller.SystemNavigator{}).Open(ctx, url); err != nil {
				c.Logger.Warn("open browser", "url", url, "error", err)
			}
		},
	})

	return srv.Run(ctx)
}
