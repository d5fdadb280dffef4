package pages

import (
	"context"
	"time"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/ssr"
	. "github.com/vango-dev/site/pkg/vdom"
)

// Dates render in UTC so the server and the browser format them alike.
const dateLayout = "January 2, 2006"

// listPosts reads the blog index from the query cache, then from the
// route data. ok is false when neither holds it yet.
func (a *App) listPosts(ctx context.Context) (posts []blog.Post, ok bool) {
	if qc := query.FromContext(ctx); qc != nil {
		if posts, ok := query.Get[[]blog.Post](qc, blog.ListQueryKey(a.listInput)); ok {
			return posts, true
		}
	}
	if d := ssr.RouteDataFromContext(ctx); d.IsList() {
		return d.Items, true
	}
	return nil, false
}

// lookupPost reads a post the same way. notFound is only ever known from
// route data, since misses are not cached.
func (a *App) lookupPost(ctx context.Context, slug string) (post blog.Post, ok, notFound bool) {
	if d := ssr.RouteDataFromContext(ctx); d.IsItem() && d.Key == slug {
		if d.NotFound || d.Value == nil {
			return blog.Post{}, false, true
		}
		return *d.Value, true, false
	}
	if qc := query.FromContext(ctx); qc != nil {
		if post, ok := query.Get[blog.Post](qc, blog.PostQueryKey(slug)); ok {
			return post, true, false
		}
	}
	return blog.Post{}, false, false
}

func (a *App) blogIndex(ctx context.Context) *VNode {
	settings := a.site.Blog
	posts, ok := a.listPosts(ctx)

	seo := head.SEO{
		Title:         settings.Title + " | " + a.site.Name,
		Description:   settings.Description,
		CanonicalURL:  a.classifier.ListRoute(),
		OGType:        "website",
		OGTitle:       settings.Title,
		OGDescription: settings.Description,
		OGImage:       a.site.DefaultImage,
	}
	if ok {
		seo.StructuredData = a.blogStructuredData(ctx, posts)
	}
	head.Declare(ctx, seo)

	return Section(Class("blog-index"),
		H1(Text(settings.Title)),
		If(settings.Description != "", P(Class("lead"), Text(settings.Description))),
		IfElse(ok,
			a.postList(posts),
			loading("Loading posts"),
		),
	)
}

func (a *App) postList(posts []blog.Post) *VNode {
	if len(posts) == 0 {
		return P(Class("empty"), Text("No posts yet."))
	}
	return Ol(Class("post-list"),
		Range(posts, func(p blog.Post, _ int) *VNode {
			return Li(Key(p.Slug),
				Article(Class("post-card"),
					H2(A(Href(a.postPath(p.Slug)), Text(p.Title))),
					published(p.PublishedAt),
					If(p.Description != "", P(Text(p.Description))),
				),
			)
		}),
	)
}

func (a *App) blogPost(ctx context.Context, slug string) *VNode {
	post, ok, notFound := a.lookupPost(ctx, slug)
	if notFound {
		return a.notFound(ctx)
	}
	if !ok {
		head.Declare(ctx, head.SEO{Title: a.site.Blog.Title + " | " + a.site.Name, Robots: "noindex"})
		return loading("Loading post")
	}

	ri, _ := reqinfo.FromContext(ctx)
	canonical := ri.Resolve(a.postPath(post.Slug))
	image := post.CoverImage
	if image == "" {
		image = a.site.DefaultImage
	}
	image = ri.Resolve(image)
	head.Declare(ctx, head.SEO{
		Title:         post.Title + " | " + a.site.Name,
		Description:   post.Description,
		CanonicalURL:  canonical,
		OGType:        "article",
		OGTitle:       post.Title,
		OGDescription: post.Description,
		OGImage:       image,
		StructuredData: map[string]any{
			"@context":         "https://schema.org",
			"@type":            "BlogPosting",
			"headline":         post.Title,
			"description":      post.Description,
			"datePublished":    post.PublishedAt.UTC().Format(time.RFC3339),
			"dateModified":     post.UpdatedAt.UTC().Format(time.RFC3339),
			"author":           map[string]any{"@type": "Person", "name": post.Author},
			"image":            image,
			"mainEntityOfPage": canonical,
		},
	})

	return Article(Class("post"),
		A(Class("back"), Href(a.classifier.ListRoute()), Text("← "+a.site.Blog.Title)),
		H1(Text(post.Title)),
		Div(Class("post-meta"),
			published(post.PublishedAt),
			If(post.Author != "", Span(Class("author"), Textf("by %s", post.Author))),
		),
		If(post.CoverImage != "", Figure(Img(Src(post.CoverImage), Alt(""), Loading("lazy")))),
		Div(Class("post-body"), Raw(blog.SanitizeHTML(post.BodyHTML))),
		When(len(post.Tags) > 0, func() *VNode {
			return Ul(Class("tags"), Range(post.Tags, func(t string, _ int) *VNode {
				return Li(Text(t))
			}))
		}),
	)
}

func (a *App) blogStructuredData(ctx context.Context, posts []blog.Post) map[string]any {
	ri, _ := reqinfo.FromContext(ctx)
	items := make([]any, 0, len(posts))
	for _, p := range posts {
		items = append(items, map[string]any{
			"@type":         "BlogPosting",
			"headline":      p.Title,
			"url":           ri.Resolve(a.postPath(p.Slug)),
			"datePublished": p.PublishedAt.UTC().Format(time.RFC3339),
		})
	}
	return map[string]any{
		"@context": "https://schema.org",
		"@type":    "Blog",
		"name":     a.site.Blog.Title,
		"url":      ri.Resolve(a.classifier.ListRoute()),
		"blogPost": items,
	}
}

func published(t time.Time) *VNode {
	if t.IsZero() {
		return nil
	}
	return Time_(Datetime(t.UTC().Format(time.RFC3339)), Text(t.UTC().Format(dateLayout)))
}

func loading(label string) *VNode {
	return Div(Class("loading"), Role("status"), Attr{Key: "aria-busy", Value: "true"}, Text(label+"…"))
}
