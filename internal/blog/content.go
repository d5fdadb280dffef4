package blog

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DescriptionLength caps generated descriptions.
const DescriptionLength = 160

var (
	bodyPolicy  = newBodyPolicy()
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
)

func newBodyPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span")
	p.RequireNoFollowOnLinks(false)
	return p
}

// SanitizeHTML strips scripts, handlers and unsafe URLs from post bodies.
// Post bodies are rendered as raw HTML, so every body passes through here
// before it is stored.
func SanitizeHTML(html string) string {
	return bodyPolicy.Sanitize(html)
}

// Excerpt turns an HTML body into a plain-text summary of at most max
// runes, cut on a word boundary.
func Excerpt(html string, max int) string {
	md, err := mdConverter.ConvertString(html)
	if err != nil {
		md = bluemonday.StrictPolicy().Sanitize(html)
	}
	text := strings.Join(strings.Fields(stripMarkdown(md)), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)[:max]
	if i := strings.LastIndexFunc(string(r), unicode.IsSpace); i > 0 {
		return strings.TrimRightFunc(string(r)[:i], unicode.IsPunct) + "…"
	}
	return string(r) + "…"
}

// stripMarkdown removes the markup characters the converter adds.
func stripMarkdown(md string) string {
	var b strings.Builder
	inLink := 0
	for i := 0; i < len(md); i++ {
		c := md[i]
		switch c {
		case '#', '*', '_', '`', '>':
			continue
		case '[':
			inLink++
			continue
		case ']':
			if inLink > 0 {
				inLink--
				// drop the "(url)" that follows a link label
				if i+1 < len(md) && md[i+1] == '(' {
					if end := strings.IndexByte(md[i+1:], ')'); end >= 0 {
						i += end + 1
					}
				}
			}
			continue
		case '!':
			if i+1 < len(md) && md[i+1] == '[' {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

var slugFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify makes a lowercase, dash separated slug from a title.
func Slugify(title string) string {
	folded, _, err := transform.String(slugFold, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Prepare fills derived fields before a post is stored: an ID, a slug from
// the title (or the ID when the title gives none), a sanitized body, a
// description from the body and timestamps.
func Prepare(p Post, now time.Time) Post {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	// A title without Latin letters or digits folds to nothing.
	if p.Slug == "" {
		p.Slug = Slugify(p.ID)
	}
	if p.Slug == "" {
		p.Slug = uuid.NewString()
	}
	p.BodyHTML = SanitizeHTML(p.BodyHTML)
	if p.Description == "" {
		p.Description = Excerpt(p.BodyHTML, DescriptionLength)
	}
	if p.PublishedAt.IsZero() {
		p.PublishedAt = now.UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.PublishedAt
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}
