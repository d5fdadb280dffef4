package hydrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/pages"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/internal/transport"
)

type fakeElement string

func (e fakeElement) InnerHTML() string { return string(e) }

type fakeBrowser struct {
	href     string
	data     []byte
	markup   string
	doc      head.Document
	hydrated string
	mounted  string
	mountErr error
	hydrateN int
	mountN   int
}

func (b *fakeBrowser) Location() string { return b.href }

func (b *fakeBrowser) SSRData() ([]byte, bool) { return b.data, b.data != nil }

func (b *fakeBrowser) Container() Element { return fakeElement(b.markup) }

func (b *fakeBrowser) Head() head.Target { return &b.doc }

func (b *fakeBrowser) Hydrate(_ context.Context, html string) error {
	b.hydrateN++
	b.hydrated = html
	return nil
}

func (b *fakeBrowser) Mount(_ context.Context, html string) error {
	b.mountN++
	b.mounted = html
	return b.mountErr
}

var published = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

var helloPost = blog.Post{
	ID: "1", Slug: "hello", Title: "Hello", Description: "First post",
	BodyHTML: "<p>Hi</p>", PublishedAt: published, UpdatedAt: published,
}

func newApp() *pages.App {
	return pages.New(nil, nil, blog.ListInput{})
}

// postsServer serves the posts API from a memory repository and counts the
// requests it gets.
type postsServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newPostsServer(t *testing.T, posts ...blog.Post) *postsServer {
	t.Helper()
	repo := blog.NewMemoryRepository(posts...)
	ps := &postsServer{}
	write := func(w http.ResponseWriter, v any) {
		b, err := transport.Serialize(v)
		if err != nil {
			t.Errorf("serialize: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {
		ps.requests.Add(1)
		list, err := repo.ListPosts(r.Context(), blog.ListInput{})
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		write(w, list)
	})
	mux.HandleFunc("GET /api/posts/{slug}", func(w http.ResponseWriter, r *http.Request) {
		ps.requests.Add(1)
		post, err := repo.GetPostBySlug(r.Context(), r.PathValue("slug"))
		if errors.Is(err, blog.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		write(w, post)
	})
	ps.Server = httptest.NewServer(mux)
	t.Cleanup(ps.Close)
	return ps
}

func (ps *postsServer) loader() *Loader {
	return &Loader{Posts: NewPostsAPI(ps.URL, ps.Client())}
}

func serverRender(t *testing.T, path string) *ssr.Result {
	t.Helper()
	repo := blog.NewMemoryRepository(helloPost)
	r := ssr.NewRenderer(ssr.Config{Root: newApp(), Repository: repo})
	res, err := r.Render(context.Background(), ssr.Request{Path: path, Origin: "https://example.com"})
	if err != nil {
		t.Fatalf("server Render(%s): %v", path, err)
	}
	return res
}

func TestBootstrap_HydratesServerMarkup(t *testing.T) {
	api := newPostsServer(t, helloPost)
	for _, path := range []string{"/", "/blog", "/blog/hello", "/blog/nope"} {
		t.Run(path, func(t *testing.T) {
			srv := serverRender(t, path)
			b := &fakeBrowser{
				href:   "https://example.com" + path,
				data:   srv.SerializedPayload,
				markup: srv.BodyHTML,
			}

			res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
			if err != nil {
				t.Fatalf("Bootstrap() error: %v", err)
			}
			if res.Mode != ModeHydrate || b.hydrateN != 1 || b.mountN != 0 {
				t.Fatalf("mode=%s hydrate=%d mount=%d", res.Mode, b.hydrateN, b.mountN)
			}
			if res.Mismatch {
				t.Error("unexpected RequestInfo mismatch")
			}
			if res.MarkupMismatch {
				t.Errorf("client markup differs from server:\nserver: %s\nclient: %s", srv.BodyHTML, res.HTML)
			}
			if got := res.Client.Stats().Fetches; got != 0 || res.Fetched {
				t.Errorf("fetches = %d, fetched = %v, want none", got, res.Fetched)
			}
			if got := api.requests.Load(); got != 0 {
				t.Errorf("api requests = %d, want 0", got)
			}
			if b.doc.HTML() != srv.HeadHTML {
				t.Errorf("head:\n got  %s\n want %s", b.doc.HTML(), srv.HeadHTML)
			}
		})
	}
}

func TestBootstrap_CacheHitForList(t *testing.T) {
	srv := serverRender(t, "/blog")
	b := &fakeBrowser{href: "https://example.com/blog", data: srv.SerializedPayload, markup: srv.BodyHTML}

	res, err := Bootstrap(b, newApp())
	if err != nil {
		t.Fatal(err)
	}
	posts, ok := res.Client.QueryData(blog.ListQueryKey(blog.ListInput{}))
	if !ok || posts == nil {
		t.Fatal("list query not hydrated")
	}
	if !strings.Contains(res.HTML, `href="/blog/hello"`) {
		t.Fatalf("list not rendered from cache:\n%s", res.HTML)
	}
}

func TestBootstrap_ClientOnlyMounts(t *testing.T) {
	b := &fakeBrowser{href: "https://example.com/pricing?plan=team", markup: "\n  <!-- shell -->\n"}

	res, err := Bootstrap(b, newApp())
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if res.Mode != ModeMount || b.mountN != 1 || b.hydrateN != 0 {
		t.Fatalf("mode=%s hydrate=%d mount=%d", res.Mode, b.hydrateN, b.mountN)
	}
	if res.RequestInfo.Pathname != "/pricing" || res.RequestInfo.Search != "?plan=team" {
		t.Fatalf("RequestInfo = %+v", res.RequestInfo)
	}
	if res.RouteData != nil || res.Client.Len() != 0 {
		t.Fatal("client-only load should start with no data")
	}
	if !strings.Contains(b.mounted, "Page not found") {
		t.Fatalf("mounted = %q", b.mounted)
	}
	if !strings.HasPrefix(b.doc.Title, "Page not found") {
		t.Fatalf("title = %q", b.doc.Title)
	}
}

func TestBootstrap_RequestInfoMismatchTrustsServer(t *testing.T) {
	srv := serverRender(t, "/about")
	b := &fakeBrowser{href: "https://www.example.com/about", data: srv.SerializedPayload, markup: srv.BodyHTML}

	res, err := Bootstrap(b, newApp())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Mismatch {
		t.Fatal("expected Mismatch")
	}
	if res.RequestInfo.Origin != "https://example.com" {
		t.Fatalf("Origin = %q, want the server's", res.RequestInfo.Origin)
	}
	if res.MarkupMismatch {
		t.Fatal("markup should match when the server value is used")
	}
}

func TestBootstrap_Errors(t *testing.T) {
	if _, err := Bootstrap(&fakeBrowser{href: "/relative"}, newApp()); err == nil {
		t.Error("relative location: expected error")
	}
	if _, err := Bootstrap(&fakeBrowser{href: "https://example.com/", data: []byte("{")}, newApp()); err == nil {
		t.Error("corrupt payload: expected error")
	}

	boom := errors.New("boom")
	_, err := Bootstrap(&fakeBrowser{href: "https://example.com/", mountErr: boom}, newApp())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestHasExistingMarkup(t *testing.T) {
	tests := []struct {
		html string
		want bool
	}{
		{"", false},
		{"  \n\t", false},
		{"<!--ssr-body-->", false},
		{"<!-- a -->\n<!-- b -->", false},
		{"<main></main>", true},
		{"text", true},
	}
	for _, tt := range tests {
		if got := HasExistingMarkup(fakeElement(tt.html)); got != tt.want {
			t.Errorf("HasExistingMarkup(%q) = %v, want %v", tt.html, got, tt.want)
		}
	}
	if HasExistingMarkup(nil) {
		t.Error("nil element has no markup")
	}
}

func TestBootstrap_ServerMarkupWithoutPayloadKeepsHead(t *testing.T) {
	b := &fakeBrowser{href: "https://example.com/blog", markup: "<section>Something went wrong</section>"}
	b.doc.SetTitle("Something went wrong")

	res, err := Bootstrap(b, newApp())
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeHydrate || !res.MarkupMismatch {
		t.Fatalf("mode=%s markupMismatch=%v", res.Mode, res.MarkupMismatch)
	}
	if b.doc.Title != "Something went wrong" {
		t.Fatalf("head was rewritten: %q", b.doc.Title)
	}
}

func TestBootstrap_HydratedListIsACacheHit(t *testing.T) {
	api := newPostsServer(t, helloPost)
	srv := serverRender(t, "/blog")
	b := &fakeBrowser{href: "https://example.com/blog", data: srv.SerializedPayload, markup: srv.BodyHTML}

	res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
	if err != nil {
		t.Fatal(err)
	}
	stats := res.Client.Stats()
	if stats.Fetches != 0 || stats.Hits != 1 {
		t.Fatalf("stats = %+v, want one hit and no fetch", stats)
	}
	if b.mountN != 0 || b.hydrateN != 1 {
		t.Fatalf("hydrate=%d mount=%d", b.hydrateN, b.mountN)
	}
}

func TestBootstrap_ColdListFetchesOnce(t *testing.T) {
	api := newPostsServer(t, helloPost)
	b := &fakeBrowser{href: api.URL + "/blog", markup: "<!--ssr-body-->"}

	res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
	if err != nil {
		t.Fatalf("Bootstrap() error: %v", err)
	}
	if got := res.Client.Stats().Fetches; got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}
	if got := api.requests.Load(); got != 1 {
		t.Fatalf("api requests = %d, want 1", got)
	}
	if !res.Fetched || res.Mode != ModeMount || b.mountN != 2 {
		t.Fatalf("fetched=%v mode=%s mount=%d", res.Fetched, res.Mode, b.mountN)
	}
	if !strings.Contains(b.mounted, `href="/blog/hello"`) || strings.Contains(b.mounted, "Loading") {
		t.Fatalf("second render did not use the fetched posts:\n%s", b.mounted)
	}
	if !res.RouteData.IsList() || len(res.RouteData.Items) != 1 {
		t.Fatalf("route data = %+v", res.RouteData)
	}
}

func TestBootstrap_ColdItem(t *testing.T) {
	api := newPostsServer(t, helloPost)

	t.Run("found", func(t *testing.T) {
		b := &fakeBrowser{href: api.URL + "/blog/hello"}
		res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
		if err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		if res.Client.Stats().Fetches != 1 || !res.Fetched {
			t.Fatalf("stats = %+v fetched=%v", res.Client.Stats(), res.Fetched)
		}
		if !strings.Contains(b.mounted, "<h1>Hello</h1>") {
			t.Fatalf("mounted = %s", b.mounted)
		}
		if !strings.HasPrefix(b.doc.Title, "Hello") {
			t.Fatalf("title = %q", b.doc.Title)
		}
	})

	t.Run("missing", func(t *testing.T) {
		b := &fakeBrowser{href: api.URL + "/blog/nope"}
		res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
		if err != nil {
			t.Fatalf("Bootstrap() error: %v", err)
		}
		if !res.Fetched || !res.RouteData.IsItem() || !res.RouteData.NotFound {
			t.Fatalf("fetched=%v route data=%+v", res.Fetched, res.RouteData)
		}
		if res.Client.Len() != 0 {
			t.Fatal("a missing post must not be cached")
		}
		if !strings.Contains(b.mounted, "Page not found") {
			t.Fatalf("mounted = %s", b.mounted)
		}
	})
}

func TestBootstrap_LoadFailureKeepsFirstRender(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer api.Close()

	b := &fakeBrowser{href: api.URL + "/blog"}
	loader := &Loader{Posts: NewPostsAPI(api.URL, api.Client())}
	res, err := Bootstrap(b, newApp(), WithLoader(loader))
	if err == nil {
		t.Fatal("expected an error")
	}
	if res == nil || res.Fetched || b.mountN != 1 {
		t.Fatalf("res=%v mount=%d", res, b.mountN)
	}
	if !strings.Contains(b.mounted, "Loading posts") {
		t.Fatalf("mounted = %s", b.mounted)
	}
}

func TestBootstrap_ErrorPageIsNotReloaded(t *testing.T) {
	api := newPostsServer(t, helloPost)
	b := &fakeBrowser{href: api.URL + "/blog", markup: "<section>Something went wrong</section>"}

	res, err := Bootstrap(b, newApp(), WithLoader(api.loader()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched || api.requests.Load() != 0 || b.mountN != 0 {
		t.Fatalf("fetched=%v requests=%d mount=%d", res.Fetched, api.requests.Load(), b.mountN)
	}
}

func TestPostsAPI(t *testing.T) {
	api := newPostsServer(t, helloPost)
	posts := NewPostsAPI(api.URL+"/", api.Client())

	list, err := posts.ListPosts(context.Background(), blog.ListInput{Limit: 5})
	if err != nil {
		t.Fatalf("ListPosts() error: %v", err)
	}
	if len(list) != 1 || !list[0].PublishedAt.Equal(published) {
		t.Fatalf("ListPosts() = %+v", list)
	}

	post, err := posts.GetPostBySlug(context.Background(), "hello")
	if err != nil || post.Title != "Hello" {
		t.Fatalf("GetPostBySlug() = %+v, %v", post, err)
	}
	if _, err := posts.GetPostBySlug(context.Background(), "nope"); !errors.Is(err, blog.ErrNotFound) {
		t.Fatalf("missing post err = %v, want ErrNotFound", err)
	}
}
