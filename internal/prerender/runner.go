// Package prerender renders the static routes to HTML files at build time.
//
// Pages are rendered against a placeholder origin that is rewritten to
// OriginToken in the written files. The static server swaps OriginToken for
// the origin of each request, so one build serves any host.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	siteerrors "github.com/vango-dev/site/internal/errors"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/pkg/middleware"
)

const (
	// BuildOrigin is the origin pages are rendered against.
	BuildOrigin = "https://__PRERENDER_ORIGIN__"

	// OriginToken marks the request origin in written files.
	OriginToken = "__SITE_ORIGIN__"
)

// ErrMissingTemplate is returned when the shell template does not exist.
// Nothing is written in that case.
var ErrMissingTemplate = errors.New("prerender: shell template missing")

// Config configures a Runner.
type Config struct {
	Renderer     *ssr.Renderer
	TemplatePath string
	OutDir       string

	// Routes to render, in order. Defaults to the classifier's static routes.
	Routes []string

	Logger *slog.Logger
}

// Page is one written file.
type Page struct {
	Route    string
	File     string
	Bytes    int
	Duration time.Duration
}

// Report lists what a run wrote.
type Report struct {
	OutDir string
	Pages  []Page
}

// Runner renders the static routes into OutDir.
type Runner struct {
	renderer     *ssr.Renderer
	templatePath string
	outDir       string
	routes       []string
	logger       *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	routes := cfg.Routes
	if len(routes) == 0 && cfg.Renderer != nil {
		routes = cfg.Renderer.Classifier().StaticRoutes()
	}
	return &Runner{
		renderer:     cfg.Renderer,
		templatePath: cfg.TemplatePath,
		outDir:       cfg.OutDir,
		routes:       routes,
		logger:       logger,
	}
}

// Run renders every route one after another. Files are staged in a
// temporary directory next to OutDir, which replaces OutDir only after the
// last route succeeded. The first failure stops the run and leaves OutDir
// as it was.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	tmpl, err := ssr.LoadTemplate(r.templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, siteerrors.New("S200").
				WithPath(r.templatePath).
				Wrap(fmt.Errorf("%w: %s", ErrMissingTemplate, r.templatePath))
		}
		return nil, siteerrors.New("S201").WithPath(r.templatePath).Wrap(err)
	}

	parent := filepath.Dir(filepath.Clean(r.outDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, siteerrors.New("S400").WithPath(r.outDir).Wrap(err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(r.outDir)+"-*")
	if err != nil {
		return nil, siteerrors.New("S400").WithPath(r.outDir).Wrap(err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	report := &Report{OutDir: r.outDir}
	for _, p := range r.routes {
		if err := ctx.Err(); err != nil {
			return nil, siteerrors.New("S400").WithRoute(p).Wrap(err)
		}
		page, err := r.renderRoute(ctx, tmpl, staging, p)
		if err != nil {
			middleware.RecordPrerender("error")
			r.logger.Error("prerender failed", "route", p, "error", err)
			return nil, siteerrors.New("S400").WithRoute(p).Wrap(err)
		}
		middleware.RecordPrerender("ok")
		r.logger.Info("prerendered", "route", p, "file", page.File, "bytes", page.Bytes, "duration", page.Duration)
		report.Pages = append(report.Pages, page)
	}

	if err := swapDir(staging, r.outDir); err != nil {
		return nil, siteerrors.New("S400").WithPath(r.outDir).Wrap(err)
	}
	committed = true
	return report, nil
}

func (r *Runner) renderRoute(ctx context.Context, tmpl *ssr.Template, dir, p string) (Page, error) {
	start := time.Now()
	res, err := r.renderer.Render(ctx, ssr.Request{Path: p, Origin: BuildOrigin})
	if err != nil {
		return Page{}, err
	}
	if res.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("prerender: %s rendered with status %d", p, res.StatusCode)
	}

	html := strings.ReplaceAll(tmpl.Assemble(res), BuildOrigin, OriginToken)
	name := route.PrerenderFileName(p)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(html), 0o644); err != nil {
		return Page{}, fmt.Errorf("prerender: write %s: %w", name, err)
	}
	return Page{Route: route.Normalize(p), File: name, Bytes: len(html), Duration: time.Since(start)}, nil
}

// swapDir moves staging into place at out. An existing out is moved aside
// first and removed once the rename succeeded.
func swapDir(staging, out string) error {
	if err := os.Chmod(staging, 0o755); err != nil {
		return err
	}
	old := ""
	if _, err := os.Stat(out); err == nil {
		old = staging + ".old"
		if err := os.Rename(out, old); err != nil {
			return fmt.Errorf("prerender: move previous output aside: %w", err)
		}
	}
	if err := os.Rename(staging, out); err != nil {
		if old != "" {
			os.Rename(old, out)
		}
		return fmt.Errorf("prerender: replace output: %w", err)
	}
	if old != "" {
		return os.RemoveAll(old)
	}
	return nil
}
