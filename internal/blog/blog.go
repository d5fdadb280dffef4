// Package blog defines blog posts and the backend operations pages use to
// read them.
package blog

import (
	"context"
	"errors"
	"time"

	"github.com/vango-dev/site/internal/query"
)

// ErrNotFound is returned by GetPostBySlug when no published post has the
// slug.
var ErrNotFound = errors.New("blog: post not found")

// DefaultPageSize bounds the blog index.
const DefaultPageSize = 20

// Post is a blog post.
type Post struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BodyHTML    string    `json:"bodyHtml"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Tags        []string  `json:"tags"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"publishedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Draft       bool      `json:"draft,omitempty"`
}

// ListInput filters the post listing.
type ListInput struct {
	Limit int    `json:"limit"`
	Tag   string `json:"tag,omitempty"`
}

// Normalize applies the default and maximum page size.
func (in ListInput) Normalize() ListInput {
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = DefaultPageSize
	}
	return in
}

// Repository is the backend the site reads posts from.
type Repository interface {
	// ListPosts returns published posts, newest first.
	ListPosts(ctx context.Context, in ListInput) ([]Post, error)
	// GetPostBySlug returns a published post or ErrNotFound.
	GetPostBySlug(ctx context.Context, slug string) (Post, error)
}

// Writer stores posts. It backs seeding and is not used by page rendering.
type Writer interface {
	SavePost(ctx context.Context, p Post) error
}

// ListQueryKey is the cache identity of a post listing. Server prefetch and
// browser reads both build keys through this function.
func ListQueryKey(in ListInput) query.Key {
	return query.Key{Path: []string{"post", "list"}, Input: in.Normalize()}
}

type slugInput struct {
	Slug string `json:"slug"`
}

// PostQueryKey is the cache identity of a single post.
func PostQueryKey(slug string) query.Key {
	return query.Key{Path: []string{"post", "bySlug"}, Input: slugInput{Slug: slug}}
}
