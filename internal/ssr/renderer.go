// Package ssr renders pages on the server.
//
// A render normalizes the path, builds the request's RequestInfo, prefetches
// route data into a fresh query cache, renders the root component with all
// of that in its context, then collects the declared head and serializes
// the hydration payload. Template assembly splices the result into the HTML
// shell.
package ssr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/query"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/internal/transport"
	"github.com/vango-dev/site/pkg/middleware"
	"github.com/vango-dev/site/pkg/render"
	"github.com/vango-dev/site/pkg/vdom"
)

// Request is what a render needs to know about the incoming request.
type Request struct {
	Path   string // raw path, normalized by the renderer
	Origin string // scheme://host[:port]
	Search string // raw query, with or without the leading "?"
}

// Payload is the state handed to the browser for hydration.
type Payload struct {
	Request         reqinfo.RequestInfo    `json:"request"`
	RouteData       *RouteData             `json:"routeData,omitempty"`
	DehydratedCache *query.DehydratedState `json:"dehydratedCache,omitempty"`
}

// Result is one completed render.
type Result struct {
	BodyHTML          string
	HeadHTML          string
	StatusCode        int
	SerializedPayload []byte
	Payload           *Payload
	Strategy          route.Strategy
	Duration          time.Duration
}

// Config configures a Renderer.
type Config struct {
	// Root is the application component rendered for every path.
	Root vdom.Component

	// Repository backs prefetching. Required.
	Repository blog.Repository

	// Classifier decides which paths prefetch. Default: route.New().
	Classifier *route.Classifier

	// PageSize is the blog index page size. Default: blog.DefaultPageSize.
	PageSize int

	// Pretty indents rendered HTML.
	Pretty bool

	Logger *slog.Logger
}

// Renderer runs server renders. It keeps no per-request state, so one
// Renderer serves concurrent requests.
type Renderer struct {
	root       vdom.Component
	classifier *route.Classifier
	prefetcher *Prefetcher
	html       *render.Renderer
	logger     *slog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Classifier == nil {
		cfg.Classifier = route.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Renderer{
		root:       cfg.Root,
		classifier: cfg.Classifier,
		prefetcher: NewPrefetcher(cfg.Repository, cfg.Classifier, cfg.PageSize, cfg.Logger),
		html:       render.NewRenderer(render.RendererConfig{Pretty: cfg.Pretty}),
		logger:     cfg.Logger,
	}
}

// Classifier returns the classifier the renderer prefetches by.
func (r *Renderer) Classifier() *route.Classifier { return r.classifier }

// Prefetcher returns the renderer's prefetcher.
func (r *Renderer) Prefetcher() *Prefetcher { return r.prefetcher }

// Render renders the page for req. StatusCode is 200, or 404 when an item
// route's post does not exist. Any other prefetch failure returns an error
// wrapping ErrBackend and no result.
func (r *Renderer) Render(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	pathname := route.Normalize(req.Path)
	strategy := r.classifier.Classify(pathname)

	ctx, span := middleware.StartSpan(ctx, "ssr.render",
		attribute.String("ssr.path", pathname),
		attribute.String("ssr.strategy", strategy.String()),
	)
	defer func() {
		middleware.EndSpan(span, err)
		if err != nil {
			middleware.RecordRenderError(err)
		}
	}()

	search := req.Search
	if search != "" && !strings.HasPrefix(search, "?") {
		search = "?" + search
	}
	if search == "?" {
		search = ""
	}
	info, err := reqinfo.Parse(strings.TrimSuffix(req.Origin, "/") + pathname + search)
	if err != nil {
		return nil, fmt.Errorf("ssr: request info: %w", err)
	}

	qc := query.NewClient()
	hs := head.NewState()

	status := http.StatusOK
	var data *RouteData
	if r.classifier.IsSSREligible(pathname) {
		data, status, err = r.prefetcher.Prefetch(ctx, pathname, qc)
		if err != nil {
			return nil, err
		}
	}

	ctx = reqinfo.WithRequestInfo(ctx, info)
	ctx = query.WithClient(ctx, qc)
	ctx = head.WithState(ctx, hs)
	ctx = WithRouteData(ctx, data)

	body, err := r.html.RenderToString(ctx, vdom.Mount(r.root))
	if err != nil {
		return nil, fmt.Errorf("ssr: render %s: %w", pathname, err)
	}

	var headHTML string
	if seo, ok := hs.SEO(); ok {
		headHTML = head.RenderHTML(seo)
		if n := hs.Writes(); n > 1 {
			r.logger.Debug("head declared more than once", "path", pathname, "writes", n)
		}
	}

	payload := &Payload{
		Request:         info,
		RouteData:       data,
		DehydratedCache: qc.Dehydrate(),
	}
	serialized, err := transport.Serialize(payload)
	if err != nil {
		return nil, fmt.Errorf("ssr: serialize payload: %w", err)
	}

	return &Result{
		Duration:          time.Since(start),
		BodyHTML:          body,
		HeadHTML:          headHTML,
		StatusCode:        status,
		SerializedPayload: serialized,
		Payload:           payload,
		Strategy:          strategy,
	}, nil
}

// DecodePayload reads a serialized payload back. The browser bootstrap and
// tests use it.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := transport.DeserializeInto(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
