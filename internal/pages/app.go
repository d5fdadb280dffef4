// Package pages holds the site's page components.
//
// App is the single root component. It picks the page from the pathname in
// the render's RequestInfo, so the server and the browser render the same
// tree for the same URL.
package pages

import (
	"context"
	"net/url"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/config"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/pkg/vdom"
)

// App is the root component.
type App struct {
	site       *config.Site
	classifier *route.Classifier
	listInput  blog.ListInput
}

// New creates the root component. listInput must be the input the server
// prefetches the blog index with, so cache reads hit the primed key.
func New(site *config.Site, classifier *route.Classifier, listInput blog.ListInput) *App {
	if site == nil {
		site = config.DefaultSite()
	}
	if classifier == nil {
		classifier = route.New()
	}
	return &App{site: site, classifier: classifier, listInput: listInput.Normalize()}
}

// Render implements vdom.Component.
func (a *App) Render(ctx context.Context) *vdom.VNode {
	pathname := "/"
	if ri, ok := reqinfo.FromContext(ctx); ok {
		pathname = ri.Pathname
	}
	return a.layout(ctx, pathname, a.page(ctx, pathname))
}

func (a *App) page(ctx context.Context, pathname string) *vdom.VNode {
	switch pathname {
	case "/":
		return a.home(ctx)
	case "/about":
		return a.document(ctx, pathname, a.site.About)
	case "/privacy":
		return a.document(ctx, pathname, a.site.Privacy)
	case "/terms":
		return a.document(ctx, pathname, a.site.Terms)
	}
	if a.classifier.IsListPath(pathname) {
		return a.blogIndex(ctx)
	}
	if slug, ok := a.classifier.ItemKey(pathname); ok {
		return a.blogPost(ctx, slug)
	}
	return a.notFound(ctx)
}

// ErrorPage is the component rendered for failed requests. It never shows
// error details.
func (a *App) ErrorPage() vdom.Component {
	return vdom.Func(func(ctx context.Context) *vdom.VNode {
		return a.layout(ctx, "", a.serverError(ctx))
	})
}

// NotFoundPage renders the not-found page regardless of the path.
func (a *App) NotFoundPage() vdom.Component {
	return vdom.Func(func(ctx context.Context) *vdom.VNode {
		return a.layout(ctx, "", a.notFound(ctx))
	})
}

func (a *App) postPath(slug string) string {
	return a.classifier.ListRoute() + "/" + url.PathEscape(slug)
}
