package head

import (
	"encoding/json"
	"strings"

	"github.com/vango-dev/site/pkg/render"
)

// tag is one managed head element, in document order.
type tag struct {
	kind  string // "meta", "link" or "script"
	attr  string // identifying attribute: name, property or rel
	key   string // its value
	value string // content, href or script body
}

// tags lists the managed elements for seo, in the order they are written.
func tags(seo SEO) []tag {
	var out []tag
	meta := func(attr, key, value string) {
		if value != "" {
			out = append(out, tag{kind: "meta", attr: attr, key: key, value: value})
		}
	}
	meta("name", "description", seo.Description)
	meta("name", "robots", seo.Robots)
	if seo.CanonicalURL != "" {
		out = append(out, tag{kind: "link", attr: "rel", key: "canonical", value: seo.CanonicalURL})
	}
	meta("property", "og:url", seo.CanonicalURL)
	meta("property", "og:type", seo.OGType)
	meta("property", "og:title", seo.OGTitle)
	meta("property", "og:description", seo.OGDescription)
	meta("property", "og:image", seo.OGImage)
	return out
}

// structuredData encodes each JSON-LD entry with "<" escaped so a value
// can never close the script element early.
func structuredData(seo SEO) ([]string, error) {
	list := seo.StructuredDataList()
	docs := make([]string, 0, len(list))
	for _, item := range list {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, strings.ReplaceAll(string(b), "<", `\u003c`))
	}
	return docs, nil
}

// RenderHTML serializes seo as static head markup: title, description,
// robots, canonical with og:url, og:type, og:title, og:description,
// og:image and then one JSON-LD script per structured data entry. Absent
// fields produce no tag. Structured data that fails to encode is skipped.
func RenderHTML(seo SEO) string {
	var b strings.Builder
	if seo.Title != "" {
		b.WriteString("<title>")
		b.WriteString(render.EscapeHTML(seo.Title))
		b.WriteString("</title>")
	}
	for _, t := range tags(seo) {
		switch t.kind {
		case "meta":
			b.WriteString(`<meta ` + t.attr + `="` + render.EscapeAttr(t.key) + `" content="` + render.EscapeAttr(t.value) + `" ` + ManagedAttr + `>`)
		case "link":
			b.WriteString(`<link rel="` + render.EscapeAttr(t.key) + `" href="` + render.EscapeAttr(t.value) + `" ` + ManagedAttr + `>`)
		}
	}
	docs, _ := structuredData(seo)
	for _, doc := range docs {
		b.WriteString(`<script type="application/ld+json" ` + ManagedAttr + `>`)
		b.WriteString(doc)
		b.WriteString(`</script>`)
	}
	return b.String()
}
