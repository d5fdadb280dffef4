package head

import (
	"fmt"
	"strings"

	"github.com/vango-dev/site/pkg/render"
)

// Target is a live head that SEO can be applied to: the browser document,
// or Document in tests and non-browser code.
type Target interface {
	SetTitle(title string)
	UpsertMeta(attr, key, content string)
	RemoveMeta(attr, key string)
	UpsertLink(rel, href string)
	RemoveLink(rel string)
	// ReplaceStructuredData removes every managed JSON-LD script and
	// appends one per document.
	ReplaceStructuredData(docs []string)
}

// managedMeta is every meta tag ApplyTo owns, so tags from a previous page
// are removed when the current page leaves a field empty.
var managedMeta = [][2]string{
	{"name", "description"},
	{"name", "robots"},
	{"property", "og:url"},
	{"property", "og:type"},
	{"property", "og:title"},
	{"property", "og:description"},
	{"property", "og:image"},
}

// ApplyTo makes t reflect seo. Applying the same SEO twice leaves t
// unchanged.
func ApplyTo(t Target, seo SEO) error {
	docs, err := structuredData(seo)
	if err != nil {
		return fmt.Errorf("head: structured data: %w", err)
	}

	t.SetTitle(seo.Title)

	present := make(map[[2]string]bool)
	for _, tg := range tags(seo) {
		switch tg.kind {
		case "meta":
			t.UpsertMeta(tg.attr, tg.key, tg.value)
			present[[2]string{tg.attr, tg.key}] = true
		case "link":
			t.UpsertLink(tg.key, tg.value)
		}
	}
	for _, m := range managedMeta {
		if !present[m] {
			t.RemoveMeta(m[0], m[1])
		}
	}
	if seo.CanonicalURL == "" {
		t.RemoveLink("canonical")
	}
	t.ReplaceStructuredData(docs)
	return nil
}

// Node is a managed element in a Document.
type Node struct {
	Tag   string // meta, link or script
	Attr  string // name, property, rel or type
	Key   string
	Value string // content, href or script body
}

// Document is an in-memory Target.
type Document struct {
	Title string
	Nodes []Node
}

var _ Target = (*Document)(nil)

func (d *Document) SetTitle(title string) { d.Title = title }

func (d *Document) find(tag, attr, key string) int {
	for i, n := range d.Nodes {
		if n.Tag == tag && n.Attr == attr && n.Key == key {
			return i
		}
	}
	return -1
}

func (d *Document) upsert(n Node) {
	if i := d.find(n.Tag, n.Attr, n.Key); i >= 0 {
		d.Nodes[i].Value = n.Value
		return
	}
	d.Nodes = append(d.Nodes, n)
}

func (d *Document) remove(tag, attr, key string) {
	if i := d.find(tag, attr, key); i >= 0 {
		d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
	}
}

func (d *Document) UpsertMeta(attr, key, content string) {
	d.upsert(Node{Tag: "meta", Attr: attr, Key: key, Value: content})
}

func (d *Document) RemoveMeta(attr, key string) { d.remove("meta", attr, key) }

func (d *Document) UpsertLink(rel, href string) {
	d.upsert(Node{Tag: "link", Attr: "rel", Key: rel, Value: href})
}

func (d *Document) RemoveLink(rel string) { d.remove("link", "rel", rel) }

func (d *Document) ReplaceStructuredData(docs []string) {
	kept := d.Nodes[:0]
	for _, n := range d.Nodes {
		if n.Tag != "script" {
			kept = append(kept, n)
		}
	}
	d.Nodes = kept
	for _, doc := range docs {
		d.Nodes = append(d.Nodes, Node{Tag: "script", Attr: "type", Key: "application/ld+json", Value: doc})
	}
}

// HTML writes the title and managed nodes in document order, using the
// same markup as RenderHTML.
func (d *Document) HTML() string {
	var b strings.Builder
	if d.Title != "" {
		b.WriteString("<title>" + render.EscapeHTML(d.Title) + "</title>")
	}
	for _, n := range d.Nodes {
		switch n.Tag {
		case "meta":
			b.WriteString(`<meta ` + n.Attr + `="` + render.EscapeAttr(n.Key) + `" content="` + render.EscapeAttr(n.Value) + `" ` + ManagedAttr + `>`)
		case "link":
			b.WriteString(`<link rel="` + render.EscapeAttr(n.Key) + `" href="` + render.EscapeAttr(n.Value) + `" ` + ManagedAttr + `>`)
		case "script":
			b.WriteString(`<script type="` + n.Key + `" ` + ManagedAttr + `>` + n.Value + `</script>`)
		}
	}
	return b.String()
}
