//go:build js && wasm

// Command client is the browser build of the site. It hydrates the server
// markup, or renders the page itself on client-only loads.
//
//	GOOS=js GOARCH=wasm go build -o web/assets/client.wasm ./cmd/client
package main

import (
	"log/slog"
	"os"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/config"
	"github.com/vango-dev/site/internal/hydrate"
	"github.com/vango-dev/site/internal/pages"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/web"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	site, err := config.ParseSite(web.SiteYAML)
	if err != nil {
		logger.Error("site content", "error", err)
		site = config.DefaultSite()
	}

	dom, err := hydrate.NewDOM("app")
	if err != nil {
		logger.Error("bootstrap", "error", err)
		return
	}

	loc, err := reqinfo.Parse(dom.Location())
	if err != nil {
		logger.Error("bootstrap", "error", err)
		return
	}

	classifier := route.New(site.RouteOptions()...)
	listInput := blog.ListInput{Limit: site.Blog.PageSize}
	app := pages.New(site, classifier, listInput)
	loader := &hydrate.Loader{
		Classifier: classifier,
		ListInput:  listInput,
		Posts:      hydrate.NewPostsAPI(loc.Origin, nil),
	}

	res, err := hydrate.Bootstrap(dom, app, hydrate.WithLoader(loader))
	if err != nil {
		logger.Error("bootstrap", "error", err)
		if res == nil {
			return
		}
	}
	if res.Mismatch {
		logger.Warn("request info differs from location, using server value",
			"server", res.RequestInfo.Href, "location", dom.Location())
	}
	logger.Debug("started", "mode", res.Mode, "fetched", res.Fetched, "path", res.RequestInfo.Pathname, "cached", res.Client.Len())

	// Keep the runtime alive for scripts that call into it.
	select {}
}
