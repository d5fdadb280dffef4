package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/site/internal/config"
	"github.com/vango-dev/site/internal/leads"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadSite_FallsBackToBuiltIn(t *testing.T) {
	site, err := loadSite(filepath.Join(t.TempDir(), "missing.yaml"), quietLogger())
	if err != nil {
		t.Fatalf("loadSite() error: %v", err)
	}
	if site.Name == "" {
		t.Errorf("built-in site has no name")
	}
}

func TestLoadSite_InvalidFileFails(t *testing.T) {
	p := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(p, []byte("nmae: typo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadSite(p, quietLogger()); err == nil {
		t.Fatal("loadSite() accepted an unknown key")
	}
}

func TestApp_Fallbacks(t *testing.T) {
	dir := t.TempDir()
	a := &app{
		cfg: &config.Config{
			Template:     filepath.Join(dir, "index.html"),
			AssetsDir:    filepath.Join(dir, "assets"),
			LeadsPerHour: 2,
		},
		logger: quietLogger(),
	}

	if _, err := a.loadShell(); err != nil {
		t.Errorf("loadShell() error: %v", err)
	}
	assets, err := a.assets()
	if err != nil {
		t.Fatalf("assets() error: %v", err)
	}
	if _, err := assets.Open("site.css"); err != nil {
		t.Errorf("built-in assets missing site.css: %v", err)
	}

	h, cleanup, err := a.leadsHandler(context.Background())
	if err != nil {
		t.Fatalf("leadsHandler() error: %v", err)
	}
	defer cleanup()
	if _, ok := h.(*leads.Handler); !ok {
		t.Errorf("handler is %T", h)
	}
}
