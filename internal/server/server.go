// Package server is the site's HTTP server.
//
// Every page path goes through one state machine keyed by the path's
// rendering strategy: static routes are served from prerendered files (and
// rendered on demand when the file is missing), SSR routes are rendered per
// request with prefetched data, and every other path gets the bare shell for
// the browser to render. Failed renders produce a generic 500 page.
package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/ssr"
	"github.com/vango-dev/site/pkg/middleware"
	"github.com/vango-dev/site/pkg/vdom"
)

// Config configures a Server.
type Config struct {
	// Addr is the listen address. Default: ":8080".
	Addr string

	// Renderer renders pages. Required.
	Renderer *ssr.Renderer

	// Template is the HTML shell. Required.
	Template *ssr.Template

	// Repository backs the posts API and the sitemap. Without one those
	// routes are not mounted.
	Repository blog.Repository

	// ErrorPage is rendered for failed requests.
	ErrorPage vdom.Component

	// PrerenderDir holds the snapshots written by the prerender step.
	PrerenderDir string

	// Assets are served under /assets/.
	Assets fs.FS

	// Leads handles POST /api/leads. Nil leaves the route unmounted.
	Leads http.Handler

	// Health is called by /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error

	// TrustProxy makes forwarded headers authoritative for the request
	// origin and client IP.
	TrustProxy bool

	// Dev disables asset caching.
	Dev bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with the server timeouts set.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}
}

// Server serves the site.
type Server struct {
	config Config
	router chi.Router
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server. Zero timeouts take DefaultConfig's values.
func New(cfg Config) *Server {
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.ErrorPage == nil {
		cfg.ErrorPage = vdom.Func(func(context.Context) *vdom.VNode {
			return vdom.H1(vdom.Text("Something went wrong"))
		})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.config.TrustProxy {
		r.Use(chimw.RealIP)
		r.Use(VaryForwarded)
	}
	r.Use(AccessLog(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(middleware.WithRequestFilter(traced)))
	r.Use(middleware.Prometheus())
	r.Use(chimw.GetHead)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/robots.txt", s.handleRobots)

	r.Route("/api", func(r chi.Router) {
		if s.config.Repository != nil {
			r.Get("/posts", s.handlePosts)
			r.Get("/posts/{slug}", s.handlePost)
		}
		if s.config.Leads != nil {
			r.Method(http.MethodPost, "/leads", s.config.Leads)
		}
	})

	if s.config.Assets != nil {
		r.Get("/assets/*", s.handleAsset)
	}

	r.Group(func(r chi.Router) {
		r.Use(Canonical)
		r.Use(CachePolicy)
		if s.config.Repository != nil {
			r.Get("/sitemap.xml", s.handleSitemap)
		}
		r.Get("/*", s.handlePage)
	})
	return r
}

// traced skips the scrape and probe endpoints.
func traced(r *http.Request) bool {
	return r.URL.Path != "/metrics" && r.URL.Path != "/healthz"
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address until ctx is done or the process
// receives SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		s.logger.Info("shutting down...")
	case <-ctx.Done():
		s.logger.Info("shutting down...", "reason", ctx.Err())
	}
	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops a running server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}
