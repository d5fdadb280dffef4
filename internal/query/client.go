// Package query is a small query cache shared by server rendering and the
// browser.
//
// During a server render the cache is filled by prefetching and then
// dehydrated into the page payload. In the browser the snapshot is
// hydrated into a fresh Client before the first render, so the first data
// read for the same key is a cache hit instead of a network call.
package query

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vango-dev/site/internal/transport"
)

// DefaultStaleTime is how long data counts as fresh.
const DefaultStaleTime = 60 * time.Second

type entry struct {
	key       Key
	data      any
	updatedAt time.Time
}

// Stats counts cache activity for one Client.
type Stats struct {
	Hits    int
	Misses  int
	Fetches int
}

// Client stores query results by key hash. A Client is scoped to one render
// on the server and to one page load in the browser.
type Client struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	staleTime time.Duration
	now       func() time.Time
	stats     Stats
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets how long cached data is served without refetching.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates an empty cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		staleTime: DefaultStaleTime,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetQueryData primes the cache.
func (c *Client) SetQueryData(key Key, data any) error {
	h, err := Hash(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[h] = &entry{key: key, data: data, updatedAt: c.now()}
	c.mu.Unlock()
	return nil
}

// QueryData returns the cached data for key, fresh or not.
func (c *Client) QueryData(key Key) (any, bool) {
	h, err := Hash(key)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[h]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Has reports whether key is cached.
func (c *Client) Has(key Key) bool {
	_, ok := c.QueryData(key)
	return ok
}

// Len returns the number of cached queries.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Fetch returns fresh cached data for key or calls fn and caches its
// result. Errors are not cached.
func (c *Client) Fetch(ctx context.Context, key Key, fn func(ctx context.Context) (any, error)) (any, error) {
	h, err := Hash(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if e, ok := c.entries[h]; ok && c.now().Sub(e.updatedAt) < c.staleTime {
		c.stats.Hits++
		c.mu.Unlock()
		return e.data, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	data, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.stats.Fetches++
	c.entries[h] = &entry{key: key, data: data, updatedAt: c.now()}
	c.mu.Unlock()
	return data, nil
}

// Fetch is the typed form of Client.Fetch. Cached data that was hydrated
// from a snapshot is untyped and is converted into T on read.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	data, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return As[T](data)
}

// Get is the typed form of Client.QueryData.
func Get[T any](c *Client, key Key) (T, bool) {
	var zero T
	data, ok := c.QueryData(key)
	if !ok {
		return zero, false
	}
	v, err := As[T](data)
	if err != nil {
		return zero, false
	}
	return v, true
}

// As converts cached data into T.
func As[T any](data any) (T, error) {
	if v, ok := data.(T); ok {
		return v, nil
	}
	var v T
	if err := transport.Convert(data, &v); err != nil {
		return v, fmt.Errorf("query: cached %T is not %T: %w", data, v, err)
	}
	return v, nil
}

// DehydratedState is the serializable snapshot of a Client. Its shape
// matches TanStack Query's dehydrate output.
type DehydratedState struct {
	Mutations []any             `json:"mutations"`
	Queries   []DehydratedQuery `json:"queries"`
}

// DehydratedQuery is one cached query in a snapshot.
type DehydratedQuery struct {
	QueryKey  Key        `json:"queryKey"`
	QueryHash string     `json:"queryHash"`
	State     QueryState `json:"state"`
}

// QueryState holds the data of a dehydrated query.
type QueryState struct {
	Data          any    `json:"data"`
	DataUpdatedAt int64  `json:"dataUpdatedAt"` // unix milliseconds
	Status        string `json:"status"`
}

// Dehydrate snapshots every cached query, ordered by hash.
func (c *Client) Dehydrate() *DehydratedState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := &DehydratedState{
		Mutations: []any{},
		Queries:   make([]DehydratedQuery, 0, len(c.entries)),
	}
	for h, e := range c.entries {
		state.Queries = append(state.Queries, DehydratedQuery{
			QueryKey:  e.key,
			QueryHash: h,
			State: QueryState{
				Data:          e.data,
				DataUpdatedAt: e.updatedAt.UnixMilli(),
				Status:        "success",
			},
		})
	}
	sort.Slice(state.Queries, func(i, j int) bool {
		return state.Queries[i].QueryHash < state.Queries[j].QueryHash
	})
	return state
}

// Hydrate loads a snapshot. Existing entries that are newer than the
// snapshot's are kept.
func (c *Client) Hydrate(state *DehydratedState) {
	if state == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, q := range state.Queries {
		h := q.QueryHash
		if h == "" {
			var err error
			if h, err = Hash(q.QueryKey); err != nil {
				continue
			}
		}
		updated := time.UnixMilli(q.State.DataUpdatedAt)
		if existing, ok := c.entries[h]; ok && existing.updatedAt.After(updated) {
			continue
		}
		c.entries[h] = &entry{key: q.QueryKey, data: q.State.Data, updatedAt: updated}
	}
}

type contextKey struct{}

// WithClient returns a context carrying c.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Client in ctx, or nil.
func FromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(contextKey{}).(*Client)
	return c
}
