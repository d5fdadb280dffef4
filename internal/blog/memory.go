package blog

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryRepository keeps posts in memory. It backs tests and the dev server
// when no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]Post
}

// NewMemoryRepository returns a repository holding posts.
func NewMemoryRepository(posts ...Post) *MemoryRepository {
	r := &MemoryRepository{posts: make(map[string]Post, len(posts))}
	for _, p := range posts {
		r.posts[p.Slug] = p
	}
	return r
}

// ListPosts implements Repository.
func (r *MemoryRepository) ListPosts(ctx context.Context, in ListInput) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in = in.Normalize()

	r.mu.RLock()
	out := make([]Post, 0, len(r.posts))
	for _, p := range r.posts {
		if p.Draft || (in.Tag != "" && !slices.Contains(p.Tags, in.Tag)) {
			continue
		}
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].Slug < out[j].Slug
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out, nil
}

// GetPostBySlug implements Repository.
func (r *MemoryRepository) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	if err := ctx.Err(); err != nil {
		return Post{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[slug]
	if !ok || p.Draft {
		return Post{}, ErrNotFound
	}
	return p, nil
}

// SavePost implements Writer.
func (r *MemoryRepository) SavePost(ctx context.Context, p Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.Slug] = p
	return nil
}
