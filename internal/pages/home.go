package pages

import (
	"context"

	"github.com/vango-dev/site/internal/config"
	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/reqinfo"
	. "github.com/vango-dev/site/pkg/vdom"
)

func (a *App) home(ctx context.Context) *VNode {
	origin := "/"
	if ri, ok := reqinfo.FromContext(ctx); ok {
		origin = ri.Resolve("/")
	}
	head.Declare(ctx, head.SEO{
		Title:         a.site.Name + " | " + a.site.Tagline,
		Description:   a.site.Description,
		CanonicalURL:  "/",
		OGType:        "website",
		OGTitle:       a.site.Name,
		OGDescription: a.site.Description,
		OGImage:       a.site.DefaultImage,
		StructuredData: []any{
			map[string]any{
				"@context": "https://schema.org",
				"@type":    "Organization",
				"name":     a.site.Name,
				"url":      origin,
			},
			map[string]any{
				"@context": "https://schema.org",
				"@type":    "WebSite",
				"name":     a.site.Name,
				"url":      origin,
			},
		},
	})

	hero := a.site.Hero
	return Fragment(
		Section(Class("hero"),
			H1(Text(hero.Headline)),
			If(hero.Subheadline != "", P(Class("lead"), Text(hero.Subheadline))),
			A(Class("button", "button-primary"), Href(hero.CTAHref), Text(hero.CTALabel)),
		),
		Section(Class("features"), AriaLabel("Features"),
			Range(a.site.Features, func(f config.Feature, i int) *VNode {
				return Article(Key(i), Class("feature"),
					H2(Text(f.Title)),
					P(Text(f.Body)),
				)
			}),
		),
		a.contactForm("home"),
	)
}

// contactForm posts to the lead endpoint. The "website" field is a
// honeypot and stays empty for people.
func (a *App) contactForm(source string) *VNode {
	return Section(ID("contact"), Class("contact"),
		H2(Text("Talk to us")),
		Form(Action("/api/leads"), Method("post"), Data("source", source),
			Input(Type("hidden"), Name("source"), Value(source)),
			Label(For("lead-name"), Text("Name")),
			Input(ID("lead-name"), Name("name"), Type("text"), Required()),
			Label(For("lead-email"), Text("Work email")),
			Input(ID("lead-email"), Name("email"), Type("email"), Required()),
			Label(For("lead-company"), Text("Company")),
			Input(ID("lead-company"), Name("company"), Type("text")),
			Label(For("lead-message"), Text("How can we help?")),
			Textarea(ID("lead-message"), Name("message"), Rows(4)),
			Div(Class("hp"), AriaHidden(true),
				Input(Name("website"), Type("text"), Attr{Key: "tabindex", Value: "-1"}, Attr{Key: "autocomplete", Value: "off"}),
			),
			Button(Type("submit"), Text("Send")),
		),
	)
}
