package pages

import (
	"context"

	"github.com/vango-dev/site/internal/config"
	. "github.com/vango-dev/site/pkg/vdom"
)

type navItem struct {
	label string
	href  string
}

func (a *App) nav() []navItem {
	return []navItem{
		{"Product", "/"},
		{a.site.Blog.Title, a.classifier.ListRoute()},
		{a.site.About.Title, "/about"},
	}
}

func (a *App) layout(ctx context.Context, pathname string, content *VNode) *VNode {
	return Fragment(
		Header(Class("site-header"),
			A(Class("brand"), Href("/"), Text(a.site.Name)),
			Nav(AriaLabel("Main"),
				Ul(Range(a.nav(), func(item navItem, _ int) *VNode {
					return Li(A(
						Href(item.href),
						AttrIf(isCurrent(pathname, item.href, a.classifier.ListRoute()), AriaCurrent("page")),
						Text(item.label),
					))
				})),
			),
			A(Class("button", "button-primary"), Href(a.site.Hero.CTAHref), Text(a.site.Hero.CTALabel)),
		),
		Main(ID("main"), content),
		a.footer(),
	)
}

func (a *App) footer() *VNode {
	return Footer(Class("site-footer"),
		Nav(AriaLabel("Legal"),
			A(Href("/privacy"), Text(a.site.Privacy.Title)),
			A(Href("/terms"), Text(a.site.Terms.Title)),
		),
		When(len(a.site.Social) > 0, func() *VNode {
			return Ul(Class("social"), Range(a.site.Social, func(l config.Link, _ int) *VNode {
				return Li(A(Href(l.Href), Rel("noopener"), Target("_blank"), Text(l.Label)))
			}))
		}),
		Small(Textf("© %s", a.site.Name)),
	)
}

// isCurrent marks the blog nav item active for posts too.
func isCurrent(pathname, href, listRoute string) bool {
	if pathname == href {
		return true
	}
	return href == listRoute && len(pathname) > len(listRoute) && pathname[:len(listRoute)+1] == listRoute+"/"
}
