package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/config"
	siteerrors "github.com/vango-dev/site/internal/errors"
	"github.com/vango-dev/site/internal/leads"
	"github.com/vango-dev/site/internal/pages"
	"github.com/vango-dev/site/internal/route"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/internal/store"
	"github.com/vango-dev/site/web"
)

// app holds what every command shares.
type app struct {
	cfg        *config.Config
	site       *config.Site
	logger     *slog.Logger
	classifier *route.Classifier
	root       *pages.App
}

func setup(envFiles []string) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, siteerrors.New("S102").Wrap(err)
	}
	slog.SetDefault(logger)

	site, err := loadSite(cfg.SiteFile, logger)
	if err != nil {
		return nil, err
	}

	classifier := route.New(site.RouteOptions()...)
	return &app{
		cfg:        cfg,
		site:       site,
		logger:     logger,
		classifier: classifier,
		root:       pages.New(site, classifier, blog.ListInput{Limit: site.Blog.PageSize}),
	}, nil
}

// loadSite reads the site file, falling back to the compiled-in content
// when the file does not exist.
func loadSite(path string, logger *slog.Logger) (*config.Site, error) {
	site, err := config.LoadSite(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("site file not found, using built-in content", "path", path)
		return config.ParseSite(web.SiteYAML)
	}
	return site, err
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, a.cfg.DatabaseURL, a.logger)
	if err != nil {
		return nil, siteerrors.New("S500").Wrap(err)
	}
	return st, nil
}

func (a *app) renderer(repo blog.Repository) *ssr.Renderer {
	return ssr.NewRenderer(ssr.Config{
		Root:       a.root,
		Repository: blog.WithTimeout(repo, a.cfg.BackendTimeout),
		Classifier: a.classifier,
		PageSize:   a.site.Blog.PageSize,
		Pretty:     a.cfg.Dev,
		Logger:     a.logger,
	})
}

// loadShell reads the shell template, falling back to the compiled-in
// shell when the file does not exist.
func (a *app) loadShell() (*ssr.Template, error) {
	tmpl, err := ssr.LoadTemplate(a.cfg.Template)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Debug("shell template not found, using built-in shell", "path", a.cfg.Template)
		tmpl, err = ssr.ParseTemplate(web.Shell)
	}
	if err != nil {
		return nil, siteerrors.New("S201").WithPath(a.cfg.Template).Wrap(err)
	}
	return tmpl, nil
}

// assets serves the assets directory when it exists, so freshly built
// client files are picked up without a rebuild.
func (a *app) assets() (fs.FS, error) {
	if info, err := os.Stat(a.cfg.AssetsDir); err == nil && info.IsDir() {
		return os.DirFS(a.cfg.AssetsDir), nil
	}
	a.logger.Debug("assets directory not found, using built-in assets", "path", a.cfg.AssetsDir)
	return fs.Sub(web.Assets, "assets")
}

// leadsHandler picks the limiter and sink for lead capture. The returned
// func releases the redis connection, if any.
func (a *app) leadsHandler(ctx context.Context) (http.Handler, func(), error) {
	cleanup := func() {}

	var limiter leads.Limiter
	switch {
	case a.cfg.LeadsPerHour == 0:
		a.logger.Warn("lead rate limiting disabled")
	case a.cfg.RedisURL != "":
		client, err := leads.ConnectRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		limiter = leads.NewRedisLimiter(client, a.cfg.LeadsPerHour, time.Hour)
		cleanup = func() { _ = client.Close() }
	default:
		limiter = leads.NewMemoryLimiter(a.cfg.LeadsPerHour, time.Hour)
	}

	var sink leads.Sink = leads.LogSink{Logger: a.logger}
	if a.cfg.CRMWebhookURL != "" {
		sink = leads.NewWebhook(a.cfg.CRMWebhookURL, leads.WithWebhookLogger(a.logger))
	}

	return leads.NewHandler(leads.Config{
		Limiter: limiter,
		Sink:    sink,
		Logger:  a.logger,
	}), cleanup, nil
}
