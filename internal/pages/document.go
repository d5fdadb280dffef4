package pages

import (
	"context"

	"github.com/vango-dev/site/internal/config"
	"github.com/vango-dev/site/internal/head"
	. "github.com/vango-dev/site/pkg/vdom"
)

func (a *App) document(ctx context.Context, pathname string, doc config.Document) *VNode {
	head.Declare(ctx, head.SEO{
		Title:         doc.Title + " | " + a.site.Name,
		Description:   doc.Description,
		CanonicalURL:  pathname,
		OGType:        "website",
		OGTitle:       doc.Title,
		OGDescription: doc.Description,
		OGImage:       a.site.DefaultImage,
	})

	return Article(Class("document"),
		H1(Text(doc.Title)),
		If(doc.Description != "", P(Class("lead"), Text(doc.Description))),
		Range(doc.Sections, func(s config.Section, i int) *VNode {
			return Section(Key(i),
				If(s.Heading != "", H2(Text(s.Heading))),
				Range(s.Paragraphs, func(p string, _ int) *VNode {
					return P(Text(p))
				}),
			)
		}),
		If(pathname == "/about", a.contactForm("about")),
	)
}
