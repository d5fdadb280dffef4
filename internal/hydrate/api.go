package hydrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/site/internal/blog"
	"github.com/vango-dev/site/internal/transport"
)

// maxResponseBytes bounds a posts API response.
const maxResponseBytes = 4 << 20

// PostsAPI is a blog.Repository over the site's /api/posts endpoints, for
// the browser where the database is out of reach.
type PostsAPI struct {
	origin string
	client *http.Client
}

var _ blog.Repository = (*PostsAPI)(nil)

// NewPostsAPI reads posts from origin. A nil client uses one with a 10
// second timeout.
func NewPostsAPI(origin string, client *http.Client) *PostsAPI {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PostsAPI{origin: strings.TrimRight(origin, "/"), client: client}
}

// ListPosts implements blog.Repository.
func (a *PostsAPI) ListPosts(ctx context.Context, in blog.ListInput) ([]blog.Post, error) {
	in = in.Normalize()
	q := url.Values{}
	q.Set("limit", strconv.Itoa(in.Limit))
	if in.Tag != "" {
		q.Set("tag", in.Tag)
	}
	var posts []blog.Post
	if err := a.get(ctx, "/api/posts?"+q.Encode(), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPostBySlug implements blog.Repository.
func (a *PostsAPI) GetPostBySlug(ctx context.Context, slug string) (blog.Post, error) {
	var post blog.Post
	if err := a.get(ctx, "/api/posts/"+url.PathEscape(slug), &post); err != nil {
		return blog.Post{}, err
	}
	return post, nil
}

func (a *PostsAPI) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.origin+path, nil)
	if err != nil {
		return fmt.Errorf("hydrate: posts api: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("hydrate: posts api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return blog.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("hydrate: posts api: GET %s: %s", path, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("hydrate: posts api: read: %w", err)
	}
	if err := transport.DeserializeInto(body, v); err != nil {
		return fmt.Errorf("hydrate: posts api: %w", err)
	}
	return nil
}
