package ssr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// Shell template markers. Each must appear exactly once.
const (
	MarkerHead = "<!--ssr-head-->"
	MarkerBody = "<!--ssr-body-->"
	MarkerData = "<!--ssr-data-->"
)

// ErrInvalidTemplate is returned for a shell with missing or repeated
// markers.
var ErrInvalidTemplate = errors.New("ssr: invalid template")

// DataGlobal is the browser global the payload is assigned to.
const DataGlobal = "__SSR_DATA__"

var scriptEscaper = strings.NewReplacer(
	"<", `\u003c`,
	">", `\u003e`,
	"&", `\u0026`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

type slot uint8

const (
	slotHead slot = iota
	slotBody
	slotData
)

// Template is a parsed HTML shell. It is immutable and safe for concurrent
// use.
type Template struct {
	source string

	// parts[i] precedes slots[i]; the last part follows the last slot.
	parts  []string
	slots  []slot
	titled []string // parts with the shell's default <title> removed
}

// ParseTemplate validates the markers in src and splits it for assembly.
func ParseTemplate(src string) (*Template, error) {
	type hit struct {
		pos  int
		slot slot
		mark string
	}
	var hits []hit
	for _, m := range []struct {
		mark string
		slot slot
	}{{MarkerHead, slotHead}, {MarkerBody, slotBody}, {MarkerData, slotData}} {
		switch n := strings.Count(src, m.mark); n {
		case 1:
			hits = append(hits, hit{pos: strings.Index(src, m.mark), slot: m.slot, mark: m.mark})
		case 0:
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidTemplate, m.mark)
		default:
			return nil, fmt.Errorf("%w: %s appears %d times", ErrInvalidTemplate, m.mark, n)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	t := &Template{source: src}
	prev := 0
	for _, h := range hits {
		t.parts = append(t.parts, src[prev:h.pos])
		t.slots = append(t.slots, h.slot)
		prev = h.pos + len(h.mark)
	}
	t.parts = append(t.parts, src[prev:])

	t.titled = make([]string, len(t.parts))
	removed := false
	for i, part := range t.parts {
		if !removed {
			var ok bool
			part, ok = removeTitle(part)
			removed = ok
		}
		t.titled[i] = part
	}
	return t, nil
}

// LoadTemplate reads and parses the shell at path. A missing file yields an
// error matching fs.ErrNotExist.
func LoadTemplate(path string) (*Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ssr: template %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("ssr: read template: %w", err)
	}
	return ParseTemplate(string(b))
}

// Source returns the unparsed shell.
func (t *Template) Source() string { return t.source }

// Assemble fills the shell with a render result. When the head fragment has
// its own <title>, the shell's default title is dropped.
func (t *Template) Assemble(res *Result) string {
	return t.assemble(res.HeadHTML, res.BodyHTML, res.SerializedPayload)
}

// Shell returns the template with every marker emptied and no payload
// script, for client-rendered routes.
func (t *Template) Shell() string {
	return t.assemble("", "", nil)
}

func (t *Template) assemble(head, body string, payload []byte) string {
	parts := t.parts
	if hasTitle(head) {
		parts = t.titled
	}

	var b strings.Builder
	b.Grow(len(t.source) + len(head) + len(body) + len(payload) + 64)
	for i, s := range t.slots {
		b.WriteString(parts[i])
		switch s {
		case slotHead:
			b.WriteString(head)
		case slotBody:
			b.WriteString(body)
		case slotData:
			if len(payload) > 0 {
				b.WriteString(DataScript(payload))
			}
		}
	}
	b.WriteString(parts[len(parts)-1])
	return b.String()
}

// DataScript wraps a serialized payload in the inline script that assigns
// it to the browser global.
func DataScript(payload []byte) string {
	return "<script>window." + DataGlobal + "=" + EscapeScript(string(payload)) + ";</script>"
}

// EscapeScript makes JSON safe to inline in a <script> element.
func EscapeScript(s string) string {
	return scriptEscaper.Replace(s)
}

func hasTitle(fragment string) bool {
	return indexFold(fragment, "<title") >= 0
}

// removeTitle drops the first <title>...</title> element in s.
func removeTitle(s string) (string, bool) {
	start := indexFold(s, "<title")
	if start < 0 {
		return s, false
	}
	end := indexFold(s[start:], "</title>")
	if end < 0 {
		return s, false
	}
	end += start + len("</title>")
	return s[:start] + s[end:], true
}

// indexFold is strings.Index with ASCII case folding. sub must be lower
// case. Offsets are bytes of s, unlike an index into strings.ToLower(s).
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		j := 0
		for ; j < len(sub); j++ {
			c := s[i+j]
			if 'A' <= c && c <= 'Z' {
				c += 'a' - 'A'
			}
			if c != sub[j] {
				break
			}
		}
		if j == len(sub) {
			return i
		}
	}
	return -1
}
