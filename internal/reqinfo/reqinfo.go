// Package reqinfo carries the request-scoped URL facts a page renders from.
//
// The server and the browser both derive a RequestInfo through FromURL, so a
// page rendered on either side sees byte-identical values for the same
// navigation.
package reqinfo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vango-dev/site/internal/route"
)

// RequestInfo is immutable per request.
type RequestInfo struct {
	Origin   string `json:"origin"`   // scheme://host[:port]
	Href     string `json:"href"`     // Origin + Pathname + Search
	Pathname string `json:"pathname"` // normalized, still escaped
	Search   string `json:"search"`   // "" or "?..."
}

// FromURL builds a RequestInfo from an absolute URL. The path is normalized
// the same way the route classifier normalizes it and the fragment is
// dropped.
func FromURL(u *url.URL) RequestInfo {
	origin := u.Scheme + "://" + u.Host
	pathname := route.Normalize(u.EscapedPath())
	search := ""
	if u.RawQuery != "" {
		search = "?" + u.RawQuery
	}
	return RequestInfo{
		Origin:   origin,
		Href:     origin + pathname + search,
		Pathname: pathname,
		Search:   search,
	}
}

// Parse builds a RequestInfo from an absolute href such as the browser's
// location.href.
func Parse(href string) (RequestInfo, error) {
	u, err := url.Parse(href)
	if err != nil {
		return RequestInfo{}, fmt.Errorf("reqinfo: parse %q: %w", href, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return RequestInfo{}, fmt.Errorf("reqinfo: %q is not an absolute URL", href)
	}
	return FromURL(u), nil
}

// Resolve turns a possibly relative reference into an absolute URL against
// the origin. Absolute inputs are returned unchanged and an empty input
// stays empty.
func (ri RequestInfo) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return ref
	}
	base, err := url.Parse(ri.Origin + "/")
	if err != nil || ri.Origin == "" {
		return ref
	}
	return base.ResolveReference(r).String()
}

type contextKey struct{}

// WithRequestInfo returns a context carrying ri.
func WithRequestInfo(ctx context.Context, ri RequestInfo) context.Context {
	return context.WithValue(ctx, contextKey{}, ri)
}

// FromContext returns the RequestInfo in ctx, if any.
func FromContext(ctx context.Context) (RequestInfo, bool) {
	ri, ok := ctx.Value(contextKey{}).(RequestInfo)
	return ri, ok
}
