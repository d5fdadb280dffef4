package server

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/transport"
)

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEnvelope answers with a transport envelope, the format the browser
// query client decodes.
func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, v any) {
	b, err := transport.Serialize(v)
	if err != nil {
		s.logger.Error("serialize response", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// handlePosts serves GET /api/posts?limit=N&tag=T.
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := blog.ListInput{Tag: q.Get("tag")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "limit must be a positive integer"})
			return
		}
		in.Limit = n
	}

	posts, err := s.config.Repository.ListPosts(r.Context(), in)
	if err != nil {
		s.logger.Error("list posts", "error", err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	if posts == nil {
		posts = []blog.Post{}
	}
	s.writeEnvelope(w, r, posts)
}

// handlePost serves GET /api/posts/{slug}.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}

	post, err := s.config.Repository.GetPostBySlug(r.Context(), slug)
	switch {
	case errors.Is(err, blog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	case err != nil:
		s.logger.Error("get post", "slug", slug, "error", err, "request_id", chimw.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	default:
		s.writeEnvelope(w, r, post)
	}
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// handleSitemap lists the static routes, the blog index and every
// published post.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	origin := reqinfo.OriginOf(r, s.config.TrustProxy)
	classifier := s.config.Renderer.Classifier()

	posts, err := s.config.Repository.ListPosts(r.Context(), blog.ListInput{Limit: 100})
	if err != nil {
		s.logger.Error("sitemap posts", "error", err, "request_id", chimw.GetReqID(r.Context()))
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, p := range classifier.StaticRoutes() {
		set.URLs = append(set.URLs, sitemapURL{Loc: origin + p})
	}
	set.URLs = append(set.URLs, sitemapURL{Loc: origin + classifier.ListRoute()})
	for _, p := range posts {
		updated := p.UpdatedAt
		if updated.IsZero() {
			updated = p.PublishedAt
		}
		u := sitemapURL{Loc: origin + classifier.ListRoute() + "/" + url.PathEscape(p.Slug)}
		if !updated.IsZero() {
			u.LastMod = updated.UTC().Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, u)
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		s.logger.Error("encode sitemap", "error", err)
	}
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	origin := reqinfo.OriginOf(r, s.config.TrustProxy)
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /api/\n")
	if s.config.Repository != nil {
		fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", origin)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.config.Health != nil {
		if err := s.config.Health(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
