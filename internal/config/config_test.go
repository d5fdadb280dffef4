package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	siteerrors "github.com/vango-dev/site/internal/errors"
	"github.com/vango-dev/site/internal/route"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.Template != DefaultTemplate {
		t.Errorf("Template = %q, want %q", cfg.Template, DefaultTemplate)
	}
	if cfg.PrerenderDir != DefaultPrerenderDir {
		t.Errorf("PrerenderDir = %q, want %q", cfg.PrerenderDir, DefaultPrerenderDir)
	}
	if cfg.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, DefaultDatabaseURL)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Errorf("BackendTimeout = %v, want 5s", cfg.BackendTimeout)
	}
	if cfg.LeadsPerHour != 5 {
		t.Errorf("LeadsPerHour = %d, want 5", cfg.LeadsPerHour)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("SITE_ADDR", ":9000")
	t.Setenv("SITE_TRUST_PROXY", "true")
	t.Setenv("BACKEND_TIMEOUT", "250ms")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != ":9000" || !cfg.TrustProxy || cfg.BackendTimeout != 250*time.Millisecond || cfg.LogFormat != "json" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("S3_BUCKET=from-file\nS3_PREFIX=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("S3_BUCKET", "from-env")
	// godotenv sets variables it loads; make sure the test cleans S3_PREFIX up.
	t.Setenv("S3_PREFIX", "")
	os.Unsetenv("S3_PREFIX")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.S3Bucket != "from-env" {
		t.Errorf("S3Bucket = %q, want from-env", cfg.S3Bucket)
	}
	if cfg.S3Prefix != "from-file" {
		t.Errorf("S3Prefix = %q, want from-file", cfg.S3Prefix)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad duration", "BACKEND_TIMEOUT", "soon"},
		{"negative timeout", "BACKEND_TIMEOUT", "-1s"},
		{"negative leads", "LEADS_PER_HOUR", "-2"},
		{"bad level", "LOG_LEVEL", "loud"},
		{"bad format", "LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			var se *siteerrors.SiteError
			if !errors.As(err, &se) || se.Code != "S102" {
				t.Fatalf("Load() error = %v, want S102", err)
			}
		})
	}
}

func TestParseSite(t *testing.T) {
	src := `
name: Acme
tagline: Rockets, mostly
hero:
  headline: Go faster
features:
  - title: One
    body: First
routes:
  list: /journal
  static: [/, /about]
`
	site, err := ParseSite([]byte(src))
	if err != nil {
		t.Fatalf("ParseSite() error: %v", err)
	}
	if site.Name != "Acme" || site.Hero.Headline != "Go faster" {
		t.Fatalf("site = %+v", site)
	}
	if len(site.Features) != 1 || site.Features[0].Title != "One" {
		t.Fatalf("Features = %+v, want the file's list to replace the default", site.Features)
	}
	if site.Routes.List != "/journal" || len(site.Routes.Static) != 2 {
		t.Fatalf("Routes = %+v", site.Routes)
	}
	// Untouched sections keep the built-in content.
	if site.Privacy.Title != "Privacy Policy" || len(site.Privacy.Sections) == 0 {
		t.Fatalf("Privacy = %+v", site.Privacy)
	}
	if site.Lang != "en" {
		t.Fatalf("Lang = %q, want en", site.Lang)
	}
}

func TestParseSite_Errors(t *testing.T) {
	tests := []struct {
		name, src string
	}{
		{"unknown key", "name: X\nheadline: misplaced\n"},
		{"empty name", "name: \"\"\n"},
		{"relative static route", "name: X\nroutes:\n  static: [about]\n"},
		{"not yaml", "name: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSite([]byte(tt.src))
			var se *siteerrors.SiteError
			if !errors.As(err, &se) || se.Code != "S101" {
				t.Fatalf("ParseSite() error = %v, want S101", err)
			}
		})
	}
}

func TestLoadSite_Missing(t *testing.T) {
	_, err := LoadSite(filepath.Join(t.TempDir(), "site.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("LoadSite() error = %v, want fs.ErrNotExist", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("output = %q, want JSON record", out)
	}

	if _, err := NewLogger(&buf, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if l, _ := ParseLevel("DEBUG"); l != slog.LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v", l)
	}
}

func TestSite_RouteOptions(t *testing.T) {
	site, err := ParseSite([]byte("name: X\nroutes:\n  list: /news/\n  static: [/, /pricing]\n"))
	if err != nil {
		t.Fatalf("ParseSite() error: %v", err)
	}
	c := route.New(site.RouteOptions()...)
	if c.ListRoute() != "/news" {
		t.Errorf("ListRoute() = %q, want /news", c.ListRoute())
	}
	if got := c.StaticRoutes(); len(got) != 2 || got[1] != "/pricing" {
		t.Errorf("StaticRoutes() = %v", got)
	}

	if opts := DefaultSite().RouteOptions(); len(opts) != 0 {
		t.Errorf("default site sets %d route options", len(opts))
	}
}
