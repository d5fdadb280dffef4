package server

import (
	"context"
	"errors"
	"html"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/site/internal/head"
	"github.com/vango-dev/site/internal/prerender"
	"github.com/vango-dev/site/internal/reqinfo"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/pkg/middleware"
	"github.com/vango-dev/site/pkg/render"
	"github.com/vango-dev/site/pkg/vdom"
)

// Render outcomes recorded per page response.
const (
	outcomeStatic = "static"
	outcomeSSR    = "ssr"
	outcomeShell  = "shell"
	outcomeError  = "error"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	pathname := route.Normalize(r.URL.EscapedPath())
	origin := reqinfo.OriginOf(r, s.config.TrustProxy)
	strategy := s.config.Renderer.Classifier().Classify(pathname)

	switch strategy {
	case route.StrategyStatic:
		if s.serveSnapshot(w, r, pathname, origin) {
			return
		}
		s.renderPage(w, r, pathname, origin, strategy)
	case route.StrategySSR:
		s.renderPage(w, r, pathname, origin, strategy)
	default:
		writeHTML(w, http.StatusOK, withOrigin(s.config.Template.Shell(), origin))
		middleware.RecordRender(strategy.String(), outcomeShell, 0)
	}
}

// serveSnapshot writes the prerendered file for pathname. It reports false
// when there is no file, so the caller renders instead.
func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request, pathname, origin string) bool {
	if s.config.PrerenderDir == "" {
		return false
	}
	file := filepath.Join(s.config.PrerenderDir, route.PrerenderFileName(pathname))
	b, err := os.ReadFile(file)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("prerendered page unreadable", "path", pathname, "file", file, "error", err)
		} else {
			s.logger.Debug("no prerendered page, rendering", "path", pathname)
		}
		return false
	}
	writeHTML(w, http.StatusOK, withOrigin(string(b), origin))
	middleware.RecordRender(route.StrategyStatic.String(), outcomeStatic, 0)
	return true
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, pathname, origin string, strategy route.Strategy) {
	res, err := s.config.Renderer.Render(r.Context(), ssr.Request{
		Path:   pathname,
		Origin: origin,
		Search: r.URL.RawQuery,
	})
	if err != nil {
		s.logger.Error("render failed",
			"path", pathname,
			"strategy", strategy.String(),
			"error", err,
			"request_id", chimw.GetReqID(r.Context()),
		)
		middleware.RecordRender(strategy.String(), outcomeError, 0)
		s.writeError(w, r, pathname, origin)
		return
	}
	writeHTML(w, res.StatusCode, withOrigin(s.config.Template.Assemble(res), origin))
	middleware.RecordRender(strategy.String(), outcomeSSR, res.Duration)
}

// writeError answers with the generic error page. Nothing about the
// failure reaches the response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, pathname, origin string) {
	w.Header().Set("Cache-Control", "no-store")
	writeHTML(w, http.StatusInternalServerError, s.errorDocument(r.Context(), pathname, origin))
}

// errorDocument renders the error page without route data or a payload, so
// the browser keeps the server markup.
func (s *Server) errorDocument(ctx context.Context, pathname, origin string) string {
	if info, err := reqinfo.Parse(origin + pathname); err == nil {
		ctx = reqinfo.WithRequestInfo(ctx, info)
	}
	hs := head.NewState()
	ctx = head.WithState(ctx, hs)

	body, err := render.RenderToString(ctx, vdom.Mount(s.config.ErrorPage))
	if err != nil {
		s.logger.Error("error page failed", "error", err)
		body = "<h1>Something went wrong</h1>"
	}
	res := &ssr.Result{BodyHTML: body}
	if seo, ok := hs.SEO(); ok {
		res.HeadHTML = head.RenderHTML(seo)
	}
	return withOrigin(s.config.Template.Assemble(res), origin)
}

// withOrigin fills in the origin token. The origin is escaped, so a value
// that slipped past host validation still cannot open a tag or attribute.
func withOrigin(doc, origin string) string {
	return strings.ReplaceAll(doc, prerender.OriginToken, html.EscapeString(origin))
}

func writeHTML(w http.ResponseWriter, status int, doc string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(doc))
}
