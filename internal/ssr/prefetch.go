package ssr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/pkg/middleware"
)

// ErrBackend wraps any repository failure other than blog.ErrNotFound.
// A render that fails with it must not produce a partial page.
var ErrBackend = errors.New("ssr: backend failure")

// Prefetcher loads the data an SSR-eligible route needs before rendering.
type Prefetcher struct {
	repo       blog.Repository
	classifier *route.Classifier
	pageSize   int
	logger     *slog.Logger
}

// NewPrefetcher creates a Prefetcher. A pageSize of zero or less uses
// blog.DefaultPageSize.
func NewPrefetcher(repo blog.Repository, classifier *route.Classifier, pageSize int, logger *slog.Logger) *Prefetcher {
	if pageSize <= 0 {
		pageSize = blog.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{repo: repo, classifier: classifier, pageSize: pageSize, logger: logger}
}

// ListInput is the input the list route is prefetched with. Pages that read
// the list from the cache must build their key from the same input.
func (p *Prefetcher) ListInput() blog.ListInput {
	return blog.ListInput{Limit: p.pageSize}.Normalize()
}

// Prefetch makes at most one repository call for pathname and primes qc
// with the result. It returns nil route data and 200 for paths that are
// neither the list nor an item.
//
// A missing post is not an error: the item variant comes back with
// NotFound set, status 404 and nothing primed.
func (p *Prefetcher) Prefetch(ctx context.Context, pathname string, qc *query.Client) (*RouteData, int, error) {
	if p.classifier.IsListPath(pathname) {
		return p.prefetchList(ctx, qc)
	}
	if slug, ok := p.classifier.ItemKey(pathname); ok {
		return p.prefetchItem(ctx, slug, qc)
	}
	return nil, http.StatusOK, nil
}

func (p *Prefetcher) prefetchList(ctx context.Context, qc *query.Client) (data *RouteData, status int, err error) {
	ctx, span := middleware.StartSpan(ctx, "ssr.prefetch", attribute.String("ssr.kind", string(KindList)))
	defer func() { middleware.EndSpan(span, err) }()

	in := p.ListInput()
	posts, err := p.repo.ListPosts(ctx, in)
	if err != nil {
		middleware.RecordPrefetch(string(KindList), "error")
		return nil, http.StatusInternalServerError, fmt.Errorf("%w: list posts: %w", ErrBackend, err)
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	if err := qc.SetQueryData(blog.ListQueryKey(in), posts); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("ssr: prime list cache: %w", err)
	}
	middleware.RecordPrefetch(string(KindList), "hit")
	return ListRouteData(posts), http.StatusOK, nil
}

func (p *Prefetcher) prefetchItem(ctx context.Context, slug string, qc *query.Client) (data *RouteData, status int, err error) {
	ctx, span := middleware.StartSpan(ctx, "ssr.prefetch",
		attribute.String("ssr.kind", string(KindItem)),
		attribute.String("ssr.key", slug),
	)
	defer func() { middleware.EndSpan(span, err) }()

	post, err := p.repo.GetPostBySlug(ctx, slug)
	if errors.Is(err, blog.ErrNotFound) {
		p.logger.Debug("post not found", "slug", slug)
		middleware.RecordPrefetch(string(KindItem), "not_found")
		return ItemRouteData(slug, nil), http.StatusNotFound, nil
	}
	if err != nil {
		middleware.RecordPrefetch(string(KindItem), "error")
		return nil, http.StatusInternalServerError, fmt.Errorf("%w: get post %q: %w", ErrBackend, slug, err)
	}
	if err := qc.SetQueryData(blog.PostQueryKey(slug), post); err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("ssr: prime post cache: %w", err)
	}
	middleware.RecordPrefetch(string(KindItem), "hit")
	return ItemRouteData(slug, &post), http.StatusOK, nil
}
