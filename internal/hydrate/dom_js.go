//go:build js && wasm

package hydrate

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/ssr"
)

// DOM is the browser implementation of Browser.
type DOM struct {
	window    js.Value
	document  js.Value
	container js.Value
}

var (
	_ Browser     = (*DOM)(nil)
	_ head.Target = (*domHead)(nil)
)

// NewDOM binds to the element with the given id.
func NewDOM(containerID string) (*DOM, error) {
	window := js.Global()
	document := window.Get("document")
	container := document.Call("getElementById", containerID)
	if container.IsNull() {
		return nil, fmt.Errorf("hydrate: no element with id %q", containerID)
	}
	return &DOM{window: window, document: document, container: container}, nil
}

func (d *DOM) Location() string {
	return d.window.Get("location").Get("href").String()
}

func (d *DOM) SSRData() ([]byte, bool) {
	v := d.window.Get(ssr.DataGlobal)
	if v.IsUndefined() || v.IsNull() {
		return nil, false
	}
	return []byte(d.window.Get("JSON").Call("stringify", v).String()), true
}

func (d *DOM) Container() Element { return domElement{d.container} }

func (d *DOM) Head() head.Target { return &domHead{document: d.document} }

// Hydrate keeps the server markup. A client render that differs is only
// reported; error pages, for one, are served without a payload and never
// match.
func (d *DOM) Hydrate(_ context.Context, html string) error {
	if d.container.Get("innerHTML").String() != html {
		d.window.Get("console").Call("warn", "hydration mismatch: keeping server markup")
	}
	return nil
}

func (d *DOM) Mount(_ context.Context, html string) error {
	d.container.Set("innerHTML", html)
	return nil
}

type domElement struct{ v js.Value }

func (e domElement) InnerHTML() string { return e.v.Get("innerHTML").String() }

// domHead applies SEO to document.head.
type domHead struct {
	document js.Value
}

func (h *domHead) head() js.Value { return h.document.Get("head") }

func (h *domHead) query(selector string) js.Value {
	return h.head().Call("querySelector", selector)
}

func (h *domHead) SetTitle(title string) { h.document.Set("title", title) }

func (h *domHead) upsert(tag, attr, key, valueAttr, value string) {
	el := h.query(fmt.Sprintf(`%s[%s=%q]`, tag, attr, key))
	if el.IsNull() {
		el = h.document.Call("createElement", tag)
		el.Call("setAttribute", attr, key)
		el.Call("setAttribute", head.ManagedAttr, "")
		h.head().Call("appendChild", el)
	}
	el.Call("setAttribute", valueAttr, value)
}

func (h *domHead) remove(selector string) {
	if el := h.query(selector); !el.IsNull() {
		el.Call("remove")
	}
}

func (h *domHead) UpsertMeta(attr, key, content string) {
	h.upsert("meta", attr, key, "content", content)
}

func (h *domHead) RemoveMeta(attr, key string) {
	h.remove(fmt.Sprintf(`meta[%s=%q]`, attr, key))
}

func (h *domHead) UpsertLink(rel, href string) {
	h.upsert("link", "rel", rel, "href", href)
}

func (h *domHead) RemoveLink(rel string) {
	h.remove(fmt.Sprintf(`link[rel=%q]`, rel))
}

func (h *domHead) ReplaceStructuredData(docs []string) {
	old := h.head().Call("querySelectorAll", `script[type="application/ld+json"][`+head.ManagedAttr+`]`)
	for i := old.Length() - 1; i >= 0; i-- {
		old.Index(i).Call("remove")
	}
	for _, doc := range docs {
		el := h.document.Call("createElement", "script")
		el.Call("setAttribute", "type", "application/ld+json")
		el.Call("setAttribute", head.ManagedAttr, "")
		el.Set("textContent", doc)
		h.head().Call("appendChild", el)
	}
}
