package pages

import (
	"context"

	"github.com/vango-dev/site/internal/head"
	. "github.com/vango-dev/site/pkg/vdom"
)

func (a *App) notFound(ctx context.Context) *VNode {
	head.Declare(ctx, head.SEO{
		Title:  "Page not found | " + a.site.Name,
		Robots: "noindex",
	})
	return Section(Class("status-page"),
		H1(Text("Page not found")),
		P(Text("The page you are looking for does not exist or has moved.")),
		P(
			A(Href("/"), Text("Go to the home page")),
			Text(" or "),
			A(Href(a.classifier.ListRoute()), Textf("read the %s", a.site.Blog.Title)),
			Text("."),
		),
	)
}

func (a *App) serverError(ctx context.Context) *VNode {
	head.Declare(ctx, head.SEO{
		Title:  "Something went wrong | " + a.site.Name,
		Robots: "noindex",
	})
	return Section(Class("status-page"),
		H1(Text("Something went wrong")),
		P(Text("We could not load this page. Please try again in a moment.")),
		P(A(Href("/"), Text("Go to the home page"))),
	)
}
