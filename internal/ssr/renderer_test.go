package ssr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/pkg/vdom"
)

var published = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testPosts() []blog.Post {
	return []blog.Post{
		{ID: "p1", Slug: "hello-world", Title: "Hello, World", BodyHTML: "<p>hi</p>", Tags: []string{"intro"}, Author: "Team", PublishedAt: published, UpdatedAt: published},
		{ID: "p2", Slug: "second", Title: "Second", Tags: []string{}, Author: "Team", PublishedAt: published.Add(-24 * time.Hour), UpdatedAt: published},
	}
}

func testRoot() vdom.Component {
	return vdom.Func(func(ctx context.Context) *vdom.VNode {
		ri, _ := reqinfo.FromContext(ctx)
		data := RouteDataFromContext(ctx)
		switch {
		case data.IsItem() && data.NotFound:
			head.Declare(ctx, head.SEO{Title: "Not found", Robots: "noindex"})
			return vdom.H1(vdom.Text("Not found"))
		case data.IsItem():
			head.Declare(ctx, head.SEO{Title: data.Value.Title, CanonicalURL: "/blog/" + data.Key})
			return vdom.Article(vdom.H1(vdom.Text(data.Value.Title)))
		case data.IsList():
			head.Declare(ctx, head.SEO{Title: "Blog"})
			return vdom.Ul(vdom.Range(data.Items, func(p blog.Post, _ int) *vdom.VNode {
				return vdom.Li(vdom.Text(p.Title))
			}))
		}
		return vdom.Div(vdom.Text(ri.Href))
	})
}

type countingRepo struct {
	blog.Repository
	calls atomic.Int32
	err   error
}

func (r *countingRepo) ListPosts(ctx context.Context, in blog.ListInput) ([]blog.Post, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return r.Repository.ListPosts(ctx, in)
}

func (r *countingRepo) GetPostBySlug(ctx context.Context, slug string) (blog.Post, error) {
	r.calls.Add(1)
	if r.err != nil {
		return blog.Post{}, r.err
	}
	return r.Repository.GetPostBySlug(ctx, slug)
}

func newTestRenderer(repo blog.Repository) *Renderer {
	return NewRenderer(Config{Root: testRoot(), Repository: repo})
}

func TestRender_ItemNotFound(t *testing.T) {
	repo := &countingRepo{Repository: blog.NewMemoryRepository(testPosts()...)}
	res, err := newTestRenderer(repo).Render(context.Background(), Request{Path: "/blog/missing", Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("StatusCode = %d, want 404", res.StatusCode)
	}
	d := res.Payload.RouteData
	if !d.IsItem() || !d.NotFound || d.Value != nil || d.Key != "missing" {
		t.Fatalf("RouteData = %+v, want not-found item for key missing", d)
	}
	if n := len(res.Payload.DehydratedCache.Queries); n != 0 {
		t.Fatalf("dehydrated queries = %d, want 0 (not-found must not prime the cache)", n)
	}
	if got := repo.calls.Load(); got != 1 {
		t.Fatalf("backend calls = %d, want 1", got)
	}
	if !strings.Contains(res.BodyHTML, "Not found") {
		t.Fatalf("BodyHTML = %q, want not-found page", res.BodyHTML)
	}
}

func TestRender_ListPrimesCacheUnderListKey(t *testing.T) {
	res, err := newTestRenderer(blog.NewMemoryRepository(testPosts()...)).Render(context.Background(), Request{Path: "/blog/", Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
	}

	queries := res.Payload.DehydratedCache.Queries
	if len(queries) != 1 {
		t.Fatalf("dehydrated queries = %d, want 1", len(queries))
	}
	want := `[["post","list"],{"input":{"limit":20},"type":"query"}]`
	if queries[0].QueryHash != want {
		t.Fatalf("QueryHash = %s, want %s", queries[0].QueryHash, want)
	}

	// A browser cache hydrated from this payload answers the first read
	// without calling the backend.
	p, err := DecodePayload(res.SerializedPayload)
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	qc := query.NewClient()
	qc.Hydrate(p.DehydratedCache)
	calls := 0
	posts, err := query.Fetch(context.Background(), qc, blog.ListQueryKey(blog.ListInput{Limit: 20}), func(context.Context) ([]blog.Post, error) {
		calls++
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("fetcher calls = %d, want 0", calls)
	}
	if len(posts) != 2 || !posts[0].PublishedAt.Equal(published) {
		t.Fatalf("posts = %+v", posts)
	}
}

func TestRender_ItemFound(t *testing.T) {
	res, err := newTestRenderer(blog.NewMemoryRepository(testPosts()...)).Render(context.Background(), Request{Path: "/blog/hello-world", Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.HeadHTML, "<title>Hello, World</title>") {
		t.Fatalf("HeadHTML = %q", res.HeadHTML)
	}
	if !strings.Contains(res.HeadHTML, `href="https://example.com/blog/hello-world"`) {
		t.Fatalf("HeadHTML = %q, want absolute canonical", res.HeadHTML)
	}
	if got := res.Payload.DehydratedCache.Queries[0].QueryHash; got != query.MustHash(blog.PostQueryKey("hello-world")) {
		t.Fatalf("QueryHash = %s", got)
	}

	p, err := DecodePayload(res.SerializedPayload)
	if err != nil {
		t.Fatalf("DecodePayload() error: %v", err)
	}
	if !p.RouteData.IsItem() || p.RouteData.Value == nil {
		t.Fatalf("decoded RouteData = %+v", p.RouteData)
	}
	if !p.RouteData.Value.PublishedAt.Equal(published) {
		t.Fatalf("PublishedAt = %v, want %v", p.RouteData.Value.PublishedAt, published)
	}
	if p.Request != res.Payload.Request {
		t.Fatalf("decoded Request = %+v, want %+v", p.Request, res.Payload.Request)
	}
}

func TestRender_BackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &countingRepo{Repository: blog.NewMemoryRepository(), err: cause}

	for _, path := range []string{"/blog", "/blog/anything"} {
		res, err := newTestRenderer(repo).Render(context.Background(), Request{Path: path, Origin: "https://example.com"})
		if !errors.Is(err, ErrBackend) || !errors.Is(err, cause) {
			t.Fatalf("Render(%s) error = %v, want ErrBackend wrapping cause", path, err)
		}
		if res != nil {
			t.Fatalf("Render(%s) returned a partial result", path)
		}
	}
}

func TestRender_NonEligiblePathSkipsPrefetch(t *testing.T) {
	repo := &countingRepo{Repository: blog.NewMemoryRepository(testPosts()...)}
	res, err := newTestRenderer(repo).Render(context.Background(), Request{Path: "/about//", Origin: "https://example.com", Search: "ref=nav"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if repo.calls.Load() != 0 {
		t.Fatal("expected no backend calls for /about")
	}
	if res.Payload.RouteData != nil {
		t.Fatalf("RouteData = %+v, want nil", res.Payload.RouteData)
	}
	want := reqinfo.RequestInfo{
		Origin:   "https://example.com",
		Href:     "https://example.com/about?ref=nav",
		Pathname: "/about",
		Search:   "?ref=nav",
	}
	if res.Payload.Request != want {
		t.Fatalf("Request = %+v, want %+v", res.Payload.Request, want)
	}
	if res.HeadHTML != "" {
		t.Fatalf("HeadHTML = %q, want empty when nothing was declared", res.HeadHTML)
	}
	if !strings.Contains(res.BodyHTML, want.Href) {
		t.Fatalf("BodyHTML = %q", res.BodyHTML)
	}
}

func TestRender_TitleOnlyHead(t *testing.T) {
	root := vdom.Func(func(ctx context.Context) *vdom.VNode {
		return vdom.Div(head.Page(head.SEO{Title: "Only a title"}), vdom.Text("x"))
	})
	r := NewRenderer(Config{Root: root, Repository: blog.NewMemoryRepository()})
	res, err := r.Render(context.Background(), Request{Path: "/", Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.HeadHTML != "<title>Only a title</title>" {
		t.Fatalf("HeadHTML = %q", res.HeadHTML)
	}
}

func TestRender_LastDeclarationWins(t *testing.T) {
	root := vdom.Func(func(ctx context.Context) *vdom.VNode {
		return vdom.Fragment(
			head.Page(head.SEO{Title: "Layout", Description: "layout-desc"}),
			head.Page(head.SEO{Title: "Page"}),
		)
	})
	r := NewRenderer(Config{Root: root, Repository: blog.NewMemoryRepository()})
	res, err := r.Render(context.Background(), Request{Path: "/", Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if res.HeadHTML != "<title>Page</title>" {
		t.Fatalf("HeadHTML = %q, want only the last declaration", res.HeadHTML)
	}
}

func TestRender_ConcurrentRequestsDoNotShareState(t *testing.T) {
	r := newTestRenderer(blog.NewMemoryRepository(testPosts()...))
	paths := []string{"/blog", "/blog/hello-world", "/blog/missing", "/about"}

	errs := make(chan error, len(paths)*10)
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		for _, p := range paths {
			go func(p string) {
				defer func() { done <- struct{}{} }()
				res, err := r.Render(context.Background(), Request{Path: p, Origin: "https://example.com"})
				if err != nil {
					errs <- err
					return
				}
				if res.Payload.Request.Pathname != p {
					errs <- errors.New("pathname mismatch for " + p)
				}
			}(p)
		}
	}
	for i := 0; i < len(paths)*10; i++ {
		<-done
	}
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
