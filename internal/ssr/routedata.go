package ssr

import (
	"context"

	"github.com/vango-dev/site/internal/blog"
)

// Kind tags a RouteData variant.
type Kind string

const (
	KindList Kind = "list"
	KindItem Kind = "item"
)

// RouteData is the data a server prefetch produced for the requested route.
// Exactly one of ListData and ItemData is set, matching Kind. Both embed
// flat so the wire shape is
//
//	{"kind":"list","items":[...]}
//	{"kind":"item","key":"...","value":{...}|null,"notFound":false}
type RouteData struct {
	Kind Kind `json:"kind"`
	*ListData
	*ItemData
}

// ListData is the list variant of RouteData.
type ListData struct {
	Items []blog.Post `json:"items"`
}

// ItemData is the item variant of RouteData.
type ItemData struct {
	Key      string     `json:"key"`
	Value    *blog.Post `json:"value"`
	NotFound bool       `json:"notFound"`
}

// ListRouteData builds the list variant. A nil slice is stored as empty.
func ListRouteData(items []blog.Post) *RouteData {
	if items == nil {
		items = []blog.Post{}
	}
	return &RouteData{Kind: KindList, ListData: &ListData{Items: items}}
}

// ItemRouteData builds the item variant. A nil post means not found.
func ItemRouteData(key string, post *blog.Post) *RouteData {
	return &RouteData{
		Kind:     KindItem,
		ItemData: &ItemData{Key: key, Value: post, NotFound: post == nil},
	}
}

// IsList reports whether d is the list variant.
func (d *RouteData) IsList() bool {
	return d != nil && d.Kind == KindList && d.ListData != nil
}

// IsItem reports whether d is the item variant.
func (d *RouteData) IsItem() bool {
	return d != nil && d.Kind == KindItem && d.ItemData != nil
}

type routeDataKey struct{}

// WithRouteData returns a context carrying d for page components.
func WithRouteData(ctx context.Context, d *RouteData) context.Context {
	return context.WithValue(ctx, routeDataKey{}, d)
}

// RouteDataFromContext returns the route data in ctx, or nil.
func RouteDataFromContext(ctx context.Context) *RouteData {
	d, _ := ctx.Value(routeDataKey{}).(*RouteData)
	return d
}
