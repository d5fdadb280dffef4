package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/server"
)

func serveCmd(envFiles *[]string) *cobra.Command {
	var (
		addr         string
		prerenderDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

Static routes are served from the prerendered directory when a snapshot
exists and rendered on demand otherwise.

Examples:
  site serve
  site serve --addr=:3000
  site serve --prerendered=dist/prerendered`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*envFiles)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Addr = addr
			}
			if prerenderDir != "" {
				a.cfg.PrerenderDir = prerenderDir
			}
			return runServe(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from SITE_ADDR)")
	cmd.Flags().StringVar(&prerenderDir, "prerendered", "", "Prerendered pages directory (default from SITE_PRERENDER_DIR)")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	tmpl, err := a.loadShell()
	if err != nil {
		return err
	}
	assets, err := a.assets()
	if err != nil {
		return err
	}
	leadsHandler, closeLeads, err := a.leadsHandler(ctx)
	if err != nil {
		return err
	}
	defer closeLeads()

	srv := server.New(server.Config{
		Addr:            a.cfg.Addr,
		Renderer:        a.renderer(st),
		Template:        tmpl,
		Repository:      blog.WithTimeout(st, a.cfg.BackendTimeout),
		ErrorPage:       a.root.ErrorPage(),
		PrerenderDir:    a.cfg.PrerenderDir,
		Assets:          assets,
		Leads:           leadsHandler,
		Health:          st.Ping,
		TrustProxy:      a.cfg.TrustProxy,
		Dev:             a.cfg.Dev,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
		Logger:          a.logger,
	})
	return srv.Run(ctx)
}
