package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/site/internal/prerender"
)

func prerenderCmd(envFiles *[]string) *cobra.Command {
	var (
		template string
		out      string
		bucket   string
		prefix   string
	)

	cmd := &cobra.Command{
		Use:   "prerender",
		Short: "Render the static routes to HTML files",
		Long: `Render every static route into the shell template and write the pages
to the output directory.

The output directory is replaced only when every route renders; on
failure the previous pages stay in place and the command exits non-zero.
With --s3-bucket the written pages are uploaded afterwards.

Examples:
  site prerender
  site prerender --template=web/index.html --out=dist/prerendered
  site prerender --s3-bucket=my-site --s3-prefix=pages`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*envFiles)
			if err != nil {
				return err
			}
			if template != "" {
				a.cfg.Template = template
			}
			if out != "" {
				a.cfg.PrerenderDir = out
			}
			if bucket != "" {
				a.cfg.S3Bucket = bucket
			}
			if prefix != "" {
				a.cfg.S3Prefix = prefix
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPrerender(ctx, a)
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "", "Shell template (default from SITE_TEMPLATE)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default from SITE_PRERENDER_DIR)")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "Upload the output to this S3 bucket")
	cmd.Flags().StringVar(&prefix, "s3-prefix", "", "Key prefix for uploaded pages")

	return cmd
}

func runPrerender(ctx context.Context, a *app) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := prerender.NewRunner(prerender.Config{
		Renderer:     a.renderer(st),
		TemplatePath: a.cfg.Template,
		OutDir:       a.cfg.PrerenderDir,
		Logger:       a.logger,
	})
	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	for _, p := range report.Pages {
		info("%-12s → %s (%d bytes)", p.Route, p.File, p.Bytes)
	}
	success("Prerendered %d pages into %s", len(report.Pages), report.OutDir)

	if a.cfg.S3Bucket == "" {
		return nil
	}
	pub, err := prerender.NewS3Publisher(ctx, a.cfg.S3Bucket, a.cfg.S3Prefix)
	if err != nil {
		return err
	}
	n, err := pub.Publish(ctx, report.OutDir)
	if err != nil {
		return err
	}
	success("Uploaded %d files to s3://%s/%s", n, a.cfg.S3Bucket, a.cfg.S3Prefix)
	return nil
}
