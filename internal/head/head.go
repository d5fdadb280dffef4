// Package head collects a page's SEO metadata during a render and turns it
// into head markup.
//
// A page declares its metadata once per render with Declare (or by placing
// a Page node in its tree). The last declaration in a render wins. After
// rendering, the server reads the State and writes RenderHTML into the
// shell, while the browser applies the same SEO to the live document with
// ApplyTo.
package head

import (
	"context"
	"reflect"
	"sync"

	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/pkg/vdom"
)

// ManagedAttr marks every tag this package owns in a document.
const ManagedAttr = "data-managed-head"

// SEO is the metadata one page declares.
type SEO struct {
	Title         string
	Description   string
	CanonicalURL  string
	OGType        string
	OGTitle       string
	OGDescription string
	OGImage       string
	Robots        string

	// StructuredData is a single JSON-LD object or a slice of them.
	StructuredData any
}

// StructuredDataList normalizes StructuredData to a list.
func (s SEO) StructuredDataList() []any {
	if s.StructuredData == nil {
		return nil
	}
	v := reflect.ValueOf(s.StructuredData)
	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if item := v.Index(i).Interface(); item != nil {
				out = append(out, item)
			}
		}
		return out
	}
	return []any{s.StructuredData}
}

// State is the single-slot registry for one render pass.
type State struct {
	mu     sync.Mutex
	seo    *SEO
	writes int
}

// NewState returns an empty registry.
func NewState() *State { return &State{} }

// Set stores seo, replacing any earlier declaration.
func (s *State) Set(seo SEO) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seo = &seo
	s.writes++
}

// SEO returns the winning declaration, if any.
func (s *State) SEO() (SEO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seo == nil {
		return SEO{}, false
	}
	return *s.seo, true
}

// Writes returns how many declarations were made. More than one means a
// page tree declared SEO more than once.
func (s *State) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type contextKey struct{}

// WithState returns a context carrying s.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// StateFromContext returns the registry in ctx, or nil.
func StateFromContext(ctx context.Context) *State {
	s, _ := ctx.Value(contextKey{}).(*State)
	return s
}

// Declare resolves the canonical and image URLs against the request origin
// and stores the result in the render's State when ctx carries one. The
// resolved SEO is returned either way so browser code can apply it.
func Declare(ctx context.Context, seo SEO) SEO {
	if ri, ok := reqinfo.FromContext(ctx); ok {
		seo.CanonicalURL = ri.Resolve(seo.CanonicalURL)
		seo.OGImage = ri.Resolve(seo.OGImage)
	}
	if s := StateFromContext(ctx); s != nil {
		s.Set(seo)
	}
	return seo
}

// Page is a node that declares seo when rendered and produces no markup.
func Page(seo SEO) *vdom.VNode {
	return vdom.MountFunc(func(ctx context.Context) *vdom.VNode {
		Declare(ctx, seo)
		return nil
	})
}
