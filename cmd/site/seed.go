package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/site/internal/blog"
	siteerrors "github.com/vango-dev/site/internal/errors"
)

func seedCmd(envFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample blog posts",
		Long: `Insert the sample blog posts into the database named by DATABASE_URL.
Posts are keyed by slug, so seeding twice updates them in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*envFiles)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), a)
		},
	}
}

func runSeed(ctx context.Context, a *app) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	posts := blog.SamplePosts(now)
	for _, p := range posts {
		p = blog.Prepare(p, now)
		if err := st.SavePost(ctx, p); err != nil {
			return siteerrors.New("S500").WithDetail("saving post " + p.Slug).Wrap(err)
		}
		info("%s", p.Slug)
	}
	success("Seeded %d posts", len(posts))
	return nil
}
