package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vango-dev/site/internal/blog"
)

// SQLite stores posts in a SQLite database.
type SQLite struct {
	conn   *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; also keeps :memory: on a single connection.
	conn.SetMaxOpenConns(1)

	db := &SQLite{conn: conn, logger: logger}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *SQLite) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			body_html TEXT NOT NULL DEFAULT '',
			cover_image TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			author TEXT NOT NULL DEFAULT '',
			draft INTEGER NOT NULL DEFAULT 0,
			published_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(draft, published_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (db *SQLite) Close() error { return db.conn.Close() }

// Ping checks the connection.
func (db *SQLite) Ping(ctx context.Context) error { return db.conn.PingContext(ctx) }

const postColumns = `id, slug, title, description, body_html, cover_image, tags, author, draft, published_at, updated_at`

// timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ListPosts implements blog.Repository.
func (db *SQLite) ListPosts(ctx context.Context, in blog.ListInput) ([]blog.Post, error) {
	in = in.Normalize()
	q := `SELECT ` + postColumns + ` FROM posts WHERE draft = 0`
	args := []any{}
	if in.Tag != "" {
		q += ` AND EXISTS (SELECT 1 FROM json_each(posts.tags) WHERE json_each.value = ?)`
		args = append(args, in.Tag)
	}
	q += ` ORDER BY published_at DESC, slug ASC LIMIT ?`
	args = append(args, in.Limit)

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPostBySlug implements blog.Repository.
func (db *SQLite) GetPostBySlug(ctx context.Context, slug string) (blog.Post, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ? AND draft = 0`, slug)
	p, err := scanSQLitePost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return blog.Post{}, blog.ErrNotFound
	}
	if err != nil {
		return blog.Post{}, fmt.Errorf("get post %q: %w", slug, err)
	}
	return p, nil
}

// SavePost inserts or replaces a post by slug.
func (db *SQLite) SavePost(ctx context.Context, p blog.Post) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			body_html = excluded.body_html,
			cover_image = excluded.cover_image,
			tags = excluded.tags,
			author = excluded.author,
			draft = excluded.draft,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at`,
		p.ID, p.Slug, p.Title, p.Description, p.BodyHTML, p.CoverImage, string(tags), p.Author,
		p.Draft, p.PublishedAt.UTC().Format(timeLayout), p.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save post %q: %w", p.Slug, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(s scanner) (blog.Post, error) {
	var (
		p                  blog.Post
		tags               string
		published, updated string
	)
	if err := s.Scan(&p.ID, &p.Slug, &p.Title, &p.Description, &p.BodyHTML, &p.CoverImage,
		&tags, &p.Author, &p.Draft, &published, &updated); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return p, fmt.Errorf("post %q tags: %w", p.Slug, err)
	}
	var err error
	if p.PublishedAt, err = time.Parse(timeLayout, published); err != nil {
		return p, fmt.Errorf("post %q published_at: %w", p.Slug, err)
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return p, fmt.Errorf("post %q updated_at: %w", p.Slug, err)
	}
	return p, nil
}
