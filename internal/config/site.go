package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	siteerrors "github.com/vango-dev/site/internal/errors"
	"github.com/vango-dev/site/internal/route"
)

// Site is the content and routing file (site.yaml).
type Site struct {
	Name         string `yaml:"name"`
	Tagline      string `yaml:"tagline"`
	Description  string `yaml:"description"`
	Lang         string `yaml:"lang"`
	DefaultImage string `yaml:"default_image"`
	ContactEmail string `yaml:"contact_email"`

	Hero     Hero      `yaml:"hero"`
	Features []Feature `yaml:"features"`

	About   Document `yaml:"about"`
	Privacy Document `yaml:"privacy"`
	Terms   Document `yaml:"terms"`

	Blog   BlogSettings `yaml:"blog"`
	Routes Routes       `yaml:"routes"`
	Social []Link       `yaml:"social"`
}

// Hero is the landing page's top section.
type Hero struct {
	Headline    string `yaml:"headline"`
	Subheadline string `yaml:"subheadline"`
	CTALabel    string `yaml:"cta_label"`
	CTAHref     string `yaml:"cta_href"`
}

// Feature is one landing page selling point.
type Feature struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Document is a static text page.
type Document struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Sections    []Section `yaml:"sections"`
}

// Section is a headed group of paragraphs.
type Section struct {
	Heading    string   `yaml:"heading"`
	Paragraphs []string `yaml:"paragraphs"`
}

// BlogSettings configures the blog pages.
type BlogSettings struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	PageSize    int    `yaml:"page_size"`
}

// Routes overrides the route classifier's defaults.
type Routes struct {
	List   string   `yaml:"list"`
	Static []string `yaml:"static"`
}

// Link is a labelled external link.
type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

// LoadSite reads and validates a site file. Unknown keys are rejected. A
// missing file yields an error matching fs.ErrNotExist.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, siteerrors.New("S100").WithPath(path).Wrap(fs.ErrNotExist)
		}
		return nil, siteerrors.New("S100").WithPath(path).Wrap(err)
	}
	return ParseSite(data)
}

// ParseSite decodes a site file.
func ParseSite(data []byte) (*Site, error) {
	site := DefaultSite()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(site); err != nil && !errors.Is(err, io.EOF) {
		return nil, siteerrors.New("S101").Wrap(err)
	}
	site.applyDefaults()
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return site, nil
}

// RouteOptions returns the classifier options the site file sets.
func (s *Site) RouteOptions() []route.Option {
	var opts []route.Option
	if s.Routes.List != "" {
		opts = append(opts, route.WithListRoute(s.Routes.List))
	}
	if len(s.Routes.Static) > 0 {
		opts = append(opts, route.WithStaticRoutes(s.Routes.Static...))
	}
	return opts
}

// Validate checks required fields.
func (s *Site) Validate() error {
	if s.Name == "" {
		return siteerrors.New("S101").WithDetail("name is required")
	}
	for _, r := range s.Routes.Static {
		if r == "" || r[0] != '/' {
			return siteerrors.New("S101").WithDetail("routes.static entries must start with /: " + r)
		}
	}
	return nil
}

func (s *Site) applyDefaults() {
	if s.Lang == "" {
		s.Lang = "en"
	}
	if s.Blog.Title == "" {
		s.Blog.Title = "Blog"
	}
	if s.About.Title == "" {
		s.About.Title = "About"
	}
	if s.Privacy.Title == "" {
		s.Privacy.Title = "Privacy Policy"
	}
	if s.Terms.Title == "" {
		s.Terms.Title = "Terms of Service"
	}
}

// DefaultSite is the built-in content used when no site file exists.
func DefaultSite() *Site {
	return &Site{
		Name:        "Lumen",
		Tagline:     "Ship pages your buyers actually read",
		Description: "Lumen turns product updates into pages that rank, convert and stay fast.",
		Lang:        "en",
		Hero: Hero{
			Headline:    "Marketing pages that load before the pitch ends",
			Subheadline: "Server rendered, prerendered where it counts, and measured end to end.",
			CTALabel:    "Book a demo",
			CTAHref:     "#contact",
		},
		Features: []Feature{
			{Title: "Fast first paint", Body: "Every page ships as HTML. Scripts only add behavior."},
			{Title: "Search friendly", Body: "Titles, canonical links and structured data are rendered on the server."},
			{Title: "Leads, not forms", Body: "Contact requests go straight to your CRM."},
		},
		About: Document{
			Title:       "About",
			Description: "Who we are and why we build Lumen.",
			Sections: []Section{
				{Heading: "Our story", Paragraphs: []string{"Lumen started as an internal tool for publishing release notes that people could find."}},
			},
		},
		Privacy: Document{
			Title:       "Privacy Policy",
			Description: "How we handle the data you share with us.",
			Sections: []Section{
				{Heading: "What we collect", Paragraphs: []string{"When you contact us we store your name, email address and message so we can reply."}},
			},
		},
		Terms: Document{
			Title:       "Terms of Service",
			Description: "The terms that apply when you use this website.",
			Sections: []Section{
				{Heading: "Use of the site", Paragraphs: []string{"Content on this site is provided for information only."}},
			},
		},
		Blog: BlogSettings{
			Title:       "Blog",
			Description: "Product notes, engineering write-ups and customer stories.",
		},
	}
}
