// Package route classifies request paths into rendering strategies.
//
// Every function in this package is pure and total: a path that matches no
// known route is not an error, it is simply rendered on the client.
package route

import (
	"net/url"
	"slices"
	"strings"
)

// Strategy is how a path is rendered.
type Strategy uint8

const (
	// StrategyClientOnly serves the bare shell and lets the browser render.
	StrategyClientOnly Strategy = iota
	// StrategyStatic serves a prerendered snapshot when one exists.
	StrategyStatic
	// StrategySSR renders on demand with prefetched route data.
	StrategySSR
)

func (s Strategy) String() string {
	switch s {
	case StrategyStatic:
		return "static"
	case StrategySSR:
		return "ssr"
	default:
		return "client"
	}
}

// Default route configuration.
const (
	DefaultListRoute = "/blog"
)

// DefaultStaticRoutes is the prerendered route set.
var DefaultStaticRoutes = []string{"/", "/about", "/privacy", "/terms"}

// Classifier maps normalized paths to strategies and route data needs.
type Classifier struct {
	listRoute    string
	staticRoutes []string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithListRoute sets the path of the blog index.
func WithListRoute(p string) Option {
	return func(c *Classifier) { c.listRoute = Normalize(p) }
}

// WithStaticRoutes replaces the prerendered route set.
func WithStaticRoutes(routes ...string) Option {
	return func(c *Classifier) {
		c.staticRoutes = make([]string, 0, len(routes))
		for _, r := range routes {
			n := Normalize(r)
			if !slices.Contains(c.staticRoutes, n) {
				c.staticRoutes = append(c.staticRoutes, n)
			}
		}
	}
}

// New returns a Classifier with the default routes unless overridden.
func New(opts ...Option) *Classifier {
	c := &Classifier{listRoute: DefaultListRoute}
	WithStaticRoutes(DefaultStaticRoutes...)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRoute returns the normalized list route.
func (c *Classifier) ListRoute() string { return c.listRoute }

// StaticRoutes returns a copy of the normalized static route set, in order.
func (c *Classifier) StaticRoutes() []string { return slices.Clone(c.staticRoutes) }

// Normalize ensures a leading slash and strips trailing slashes, keeping
// the root as "/". Normalize(Normalize(p)) == Normalize(p) for every p.
func Normalize(p string) string {
	p = strings.TrimRight(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// IsListPath reports whether p is the blog index.
func (c *Classifier) IsListPath(p string) bool {
	return Normalize(p) == c.listRoute
}

// ItemKey returns the decoded slug when p is exactly one segment below the
// list route. Deeper paths, an empty segment, an invalid escape or an
// encoded slash all report false.
func (c *Classifier) ItemKey(p string) (string, bool) {
	n := Normalize(p)
	prefix := c.listRoute + "/"
	if c.listRoute == "/" {
		prefix = "/"
	}
	rest, ok := strings.CutPrefix(n, prefix)
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

// IsSSREligible reports whether p needs server rendering with route data.
func (c *Classifier) IsSSREligible(p string) bool {
	if c.IsListPath(p) {
		return true
	}
	_, ok := c.ItemKey(p)
	return ok
}

// IsStaticPrerenderPath reports whether p is in the static route set.
func (c *Classifier) IsStaticPrerenderPath(p string) bool {
	return slices.Contains(c.staticRoutes, Normalize(p))
}

// Classify picks the rendering strategy for p. Static routes win over SSR
// when a path is configured as both.
func (c *Classifier) Classify(p string) Strategy {
	switch {
	case c.IsStaticPrerenderPath(p):
		return StrategyStatic
	case c.IsSSREligible(p):
		return StrategySSR
	default:
		return StrategyClientOnly
	}
}

// PrerenderFileName maps a static path to its snapshot file name:
// "/" is "index.html" and "/a/b" is "a__b.html".
func PrerenderFileName(p string) string {
	n := Normalize(p)
	if n == "/" {
		return "index.html"
	}
	return strings.ReplaceAll(strings.TrimPrefix(n, "/"), "/", "__") + ".html"
}
