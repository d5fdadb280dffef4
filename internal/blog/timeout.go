package blog

import (
	"context"
	"time"
)

// timeoutRepository bounds every backend call.
type timeoutRepository struct {
	next    Repository
	timeout time.Duration
}

// WithTimeout wraps repo so each call is canceled after d. A zero or
// negative d returns repo unchanged.
func WithTimeout(repo Repository, d time.Duration) Repository {
	if d <= 0 {
		return repo
	}
	return &timeoutRepository{next: repo, timeout: d}
}

func (r *timeoutRepository) ListPosts(ctx context.Context, in ListInput) ([]Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.ListPosts(ctx, in)
}

func (r *timeoutRepository) GetPostBySlug(ctx context.Context, slug string) (Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.next.GetPostBySlug(ctx, slug)
}
