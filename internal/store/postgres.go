package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vango-dev/site/internal/blog"
)

// PostgresConfig configures the pgx pool.
type PostgresConfig struct {
	ConnectionString string
	MaxConns         int32
	MaxConnIdleTime  time.Duration
	RetryAttempts    int
	RetryInterval    time.Duration
}

func (c *PostgresConfig) setDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 10 * time.Minute
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
}

// Postgres stores posts in PostgreSQL.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres connects with retries and migrates the schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.setDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	var pool *pgxpool.Pool
	for attempt := 1; ; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		if attempt >= cfg.RetryAttempts {
			return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempt, err)
		}
		wait := cfg.RetryInterval * time.Duration(1<<(attempt-1))
		logger.Warn("postgres connect failed, retrying", "attempt", attempt, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	db := &Postgres{pool: pool, logger: logger}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *Postgres) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			body_html TEXT NOT NULL DEFAULT '',
			cover_image TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			author TEXT NOT NULL DEFAULT '',
			draft BOOLEAN NOT NULL DEFAULT FALSE,
			published_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(draft, published_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := db.pool.Exec(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the pool.
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

// Ping checks the connection.
func (db *Postgres) Ping(ctx context.Context) error { return db.pool.Ping(ctx) }

// ListPosts implements blog.Repository.
func (db *Postgres) ListPosts(ctx context.Context, in blog.ListInput) ([]blog.Post, error) {
	in = in.Normalize()
	rows, err := db.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE NOT draft AND ($1 = '' OR $1 = ANY(tags))
		ORDER BY published_at DESC, slug ASC
		LIMIT $2`, in.Tag, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		p, err := scanPostgresPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPostBySlug implements blog.Repository.
func (db *Postgres) GetPostBySlug(ctx context.Context, slug string) (blog.Post, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1 AND NOT draft`, slug)
	p, err := scanPostgresPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return blog.Post{}, blog.ErrNotFound
	}
	if err != nil {
		return blog.Post{}, fmt.Errorf("get post %q: %w", slug, err)
	}
	return p, nil
}

// SavePost inserts or replaces a post by slug.
func (db *Postgres) SavePost(ctx context.Context, p blog.Post) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			body_html = EXCLUDED.body_html,
			cover_image = EXCLUDED.cover_image,
			tags = EXCLUDED.tags,
			author = EXCLUDED.author,
			draft = EXCLUDED.draft,
			published_at = EXCLUDED.published_at,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Slug, p.Title, p.Description, p.BodyHTML, p.CoverImage, p.Tags, p.Author,
		p.Draft, p.PublishedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save post %q: %w", p.Slug, err)
	}
	return nil
}

func scanPostgresPost(row pgx.Row) (blog.Post, error) {
	var p blog.Post
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Description, &p.BodyHTML, &p.CoverImage,
		&p.Tags, &p.Author, &p.Draft, &p.PublishedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.PublishedAt = p.PublishedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
