package hydrate

import (
	"context"
	"errors"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/internal/ssr"
)

// Loader reads the data a blog page needs through the query cache. Data
// the payload carried is a cache hit; anything else is fetched from Posts.
type Loader struct {
	Classifier *route.Classifier

	// ListInput must match the input the pages read the blog index with.
	ListInput blog.ListInput

	// Posts is the backend used on a cache miss, usually a PostsAPI.
	Posts blog.Repository
}

// Load resolves the route data for pathname. fetched reports whether Posts
// was called. Paths that are neither the list nor an item return nil data.
func (l *Loader) Load(ctx context.Context, pathname string, qc *query.Client) (data *ssr.RouteData, fetched bool, err error) {
	classifier := l.Classifier
	if classifier == nil {
		classifier = route.New()
	}

	if classifier.IsListPath(pathname) {
		in := l.ListInput.Normalize()
		posts, err := query.Fetch(ctx, qc, blog.ListQueryKey(in), func(ctx context.Context) ([]blog.Post, error) {
			fetched = true
			return l.Posts.ListPosts(ctx, in)
		})
		if err != nil {
			return nil, fetched, err
		}
		return ssr.ListRouteData(posts), fetched, nil
	}

	slug, ok := classifier.ItemKey(pathname)
	if !ok {
		return nil, false, nil
	}
	post, err := query.Fetch(ctx, qc, blog.PostQueryKey(slug), func(ctx context.Context) (blog.Post, error) {
		fetched = true
		return l.Posts.GetPostBySlug(ctx, slug)
	})
	if errors.Is(err, blog.ErrNotFound) {
		return ssr.ItemRouteData(slug, nil), fetched, nil
	}
	if err != nil {
		return nil, fetched, err
	}
	return ssr.ItemRouteData(slug, &post), fetched, nil
}
