// Package store persists blog posts in SQLite or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-dev/site/internal/blog"
)

// Store is a blog backend with lifecycle hooks.
type Store interface {
	blog.Repository
	blog.Writer
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the database named by url:
//
//	sqlite://data/site.db   SQLite file (created if missing)
//	sqlite://:memory:       in-memory SQLite
//	postgres://...          PostgreSQL through a pgx pool
func Open(ctx context.Context, url string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"), logger)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, PostgresConfig{ConnectionString: url}, logger)
	default:
		return nil, fmt.Errorf("store: unsupported database url %q", redact(url))
	}
}

// redact hides credentials in a database url.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return url
}
