// Package hydrate starts the page in the browser.
//
// Bootstrap rebuilds the render context the server used (RequestInfo,
// query cache and route data) from the payload embedded in the page,
// renders the root component and then either adopts the server markup
// (Hydrate) or renders into an empty container (Mount). Pages loaded from
// the bare shell carry no payload and always take the Mount arm.
//
// With a Loader, a blog page whose data was not in the payload is fetched
// from the posts API through the query cache and rendered again.
package hydrate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/pkg/render"
	"github.com/vango-dev/site/pkg/vdom"
)

// Mode is the arm Bootstrap took.
type Mode string

const (
	ModeHydrate Mode = "hydrate"
	ModeMount   Mode = "mount"
)

// Element is the mount container.
type Element interface {
	InnerHTML() string
}

// Mounter attaches rendered markup to the container.
type Mounter interface {
	// Hydrate adopts markup the server already rendered into the
	// container. html is what the client rendered for the same URL.
	Hydrate(ctx context.Context, html string) error

	// Mount renders html into an empty container.
	Mount(ctx context.Context, html string) error
}

// Browser is the page environment.
type Browser interface {
	Mounter

	// Location returns location.href.
	Location() string

	// SSRData returns the serialized payload the server embedded, if any.
	SSRData() ([]byte, bool)

	Container() Element
	Head() head.Target
}

// Result describes a finished bootstrap.
type Result struct {
	Mode        Mode
	RequestInfo reqinfo.RequestInfo
	Client      *query.Client
	RouteData   *ssr.RouteData
	SEO         head.SEO
	HTML        string

	// Mismatch is set when the payload's RequestInfo differs from the one
	// derived from the location. The payload value is used.
	Mismatch bool

	// MarkupMismatch is set when the Hydrate arm found server markup that
	// differs from the client render.
	MarkupMismatch bool

	// Fetched is set when the loader had to call the backend. HTML then
	// holds the second render, which replaced the first.
	Fetched bool
}

// Option configures Bootstrap.
type Option func(*options)

type options struct {
	loader *Loader
}

// WithLoader fetches the data a blog page is missing once the first render
// is in place, then renders the page again with it.
func WithLoader(l *Loader) Option {
	return func(o *options) { o.loader = l }
}

// Bootstrap runs the client start sequence for root. When a loader is set
// and its fetch fails, the result of the first render is returned along
// with the error.
func Bootstrap(env Browser, root vdom.Component, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := reqinfo.BrowserProvider{Href: env.Location}.RequestInfo()
	if err != nil {
		return nil, fmt.Errorf("hydrate: %w", err)
	}

	res := &Result{RequestInfo: loc, Client: query.NewClient()}
	data, hasPayload := env.SSRData()
	if hasPayload {
		payload, err := ssr.DecodePayload(data)
		if err != nil {
			return nil, fmt.Errorf("hydrate: decode payload: %w", err)
		}
		if payload.Request != loc {
			res.Mismatch = true
			res.RequestInfo = payload.Request
		}
		res.RouteData = payload.RouteData
		res.Client.Hydrate(payload.DehydratedCache)
	}

	ctx, declared, err := res.render(root)
	if err != nil {
		return nil, err
	}

	existing := env.Container().InnerHTML()
	if HasExistingMarkup(env.Container()) {
		res.Mode = ModeHydrate
		res.MarkupMismatch = existing != res.HTML
	} else {
		res.Mode = ModeMount
	}

	// Server markup without a payload (an error page) keeps its head too.
	if declared && (hasPayload || res.Mode == ModeMount) {
		if err := head.ApplyTo(env.Head(), res.SEO); err != nil {
			return nil, fmt.Errorf("hydrate: %w", err)
		}
	}

	if res.Mode == ModeHydrate {
		err = env.Hydrate(ctx, res.HTML)
	} else {
		err = env.Mount(ctx, res.HTML)
	}
	if err != nil {
		return nil, fmt.Errorf("hydrate: %s: %w", res.Mode, err)
	}

	// An error page comes without a payload and stays as the server sent it.
	// So does a missing post, whose miss was never cached.
	if o.loader == nil || (!hasPayload && res.Mode == ModeHydrate) {
		return res, nil
	}
	if d := res.RouteData; d.IsItem() && d.NotFound {
		return res, nil
	}
	return res, res.load(ctx, env, root, o.loader)
}

// render renders root against the result's RequestInfo, cache and route
// data. It returns the render context and whether the page declared SEO.
func (res *Result) render(root vdom.Component) (context.Context, bool, error) {
	state := head.NewState()
	ctx := reqinfo.WithRequestInfo(context.Background(), res.RequestInfo)
	ctx = query.WithClient(ctx, res.Client)
	ctx = head.WithState(ctx, state)
	ctx = ssr.WithRouteData(ctx, res.RouteData)

	html, err := render.RenderToString(ctx, vdom.Mount(root))
	if err != nil {
		return nil, false, fmt.Errorf("hydrate: render: %w", err)
	}
	res.HTML = html
	seo, declared := state.SEO()
	res.SEO = seo
	return ctx, declared, nil
}

// load reads the page's data through the cache. On a miss the page is
// rendered again with the fetched data and mounted over the first render.
func (res *Result) load(ctx context.Context, env Browser, root vdom.Component, l *Loader) error {
	data, fetched, err := l.Load(ctx, res.RequestInfo.Pathname, res.Client)
	if err != nil {
		return fmt.Errorf("hydrate: load: %w", err)
	}
	if !fetched {
		return nil
	}
	res.Fetched = true
	res.RouteData = data

	ctx, declared, err := res.render(root)
	if err != nil {
		return err
	}
	if declared {
		if err := head.ApplyTo(env.Head(), res.SEO); err != nil {
			return fmt.Errorf("hydrate: %w", err)
		}
	}
	if err := env.Mount(ctx, res.HTML); err != nil {
		return fmt.Errorf("hydrate: mount: %w", err)
	}
	return nil
}

var commentRE = regexp.MustCompile(`(?s)<!--.*?-->`)

// HasExistingMarkup reports whether el holds rendered content. Whitespace
// and comments, such as unreplaced shell markers, do not count.
func HasExistingMarkup(el Element) bool {
	if el == nil {
		return false
	}
	return strings.TrimSpace(commentRE.ReplaceAllString(el.InnerHTML(), "")) != ""
}
