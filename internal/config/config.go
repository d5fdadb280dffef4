package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	siteerrors "github.com/vango-dev/site/internal/errors"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultTemplate is the HTML shell pages are assembled into.
	DefaultTemplate = "web/index.html"

	// DefaultPrerenderDir is where prerendered pages are written.
	DefaultPrerenderDir = "dist/prerendered"

	// DefaultDatabaseURL is used when DATABASE_URL is unset.
	DefaultDatabaseURL = "sqlite://data/site.db"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr            string        `env:"SITE_ADDR" envDefault:":8080"`
	Dev             bool          `env:"SITE_DEV" envDefault:"false"`
	SiteFile        string        `env:"SITE_CONFIG" envDefault:"web/site.yaml"`
	Template        string        `env:"SITE_TEMPLATE" envDefault:"web/index.html"`
	AssetsDir       string        `env:"SITE_ASSETS_DIR" envDefault:"web/assets"`
	PrerenderDir    string        `env:"SITE_PRERENDER_DIR" envDefault:"dist/prerendered"`
	TrustProxy      bool          `env:"SITE_TRUST_PROXY" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SITE_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"sqlite://data/site.db"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"5s"`

	RedisURL      string `env:"REDIS_URL"`
	CRMWebhookURL string `env:"CRM_WEBHOOK_URL"`
	LeadsPerHour  int    `env:"LEADS_PER_HOUR" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	S3Bucket string `env:"S3_BUCKET"`
	S3Prefix string `env:"S3_PREFIX"`
}

// Load reads .env files (missing files are skipped) and then the
// environment. Variables already set in the environment win over .env
// values. With no files given, ".env" is tried.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, siteerrors.New("S102").WithPath(f).Wrap(err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, siteerrors.New("S102").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return siteerrors.New("S102").WithDetail("SITE_ADDR must not be empty")
	}
	if c.BackendTimeout <= 0 {
		return siteerrors.New("S102").WithDetail(fmt.Sprintf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout))
	}
	if c.LeadsPerHour < 0 {
		return siteerrors.New("S102").WithDetail(fmt.Sprintf("LEADS_PER_HOUR must not be negative, got %d", c.LeadsPerHour))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return siteerrors.New("S102").Wrap(err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return siteerrors.New("S102").WithDetail(fmt.Sprintf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return nil
}
