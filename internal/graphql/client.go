package graphql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"walletlog/internal/cache"
	"walletlog/internal/log"
)

// defaultFlightTimeout bounds a shared query whose first caller set no
// deadline.
const defaultFlightTimeout = 30 * time.Second

// MutationHook runs after a mutation reached the API.
type MutationHook func(ctx context.Context, operation string)

// Client executes operations through a Pipeline. Query results are cached
// per credential and document; identical in-flight queries share one call.
// Mutations bypass the cache and then clear it.
type Client struct {
	pipeline *Pipeline
	cache    *cache.LRUCache[json.RawMessage]
	group    singleflight.Group
	hooks    []MutationHook

	// generation increments on every reset so results fetched before a
	// reset are never stored after it.
	generation atomic.Uint64
	hits       atomic.Int64
	misses     atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithCache sets the response cache capacity and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache.NewLRUCache[json.RawMessage](size, ttl)
	}
}

// WithMutationHook registers fn to run after every mutation.
func WithMutationHook(fn MutationHook) Option {
	return func(c *Client) {
		c.hooks = append(c.hooks, fn)
	}
}

func NewClient(p *Pipeline, opts ...Option) *Client {
	c := &Client{pipeline: p}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = cache.NewLRUCache[json.RawMessage](500, 5*time.Minute)
	}
	return c
}

// Query runs a read operation, serving it from cache when possible.
func (c *Client) Query(ctx context.Context, req *Request, out any) error {
	if err := c.pipeline.Prepare(ctx, req); err != nil {
		return err
	}
	key, err := cacheKey(req)
	if err != nil {
		return err
	}

	if data, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		log.FromContext(ctx).DebugContext(ctx, "GraphQL cache hit", log.FieldGraphQLOp, req.OperationName)
		resp := &Response{Data: data}
		return resp.Decode(req.OperationName, out)
	}
	c.misses.Add(1)

	gen := c.generation.Load()
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := flightContext(ctx)
		defer cancel()
		resp, err := c.pipeline.Dispatch(fctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Errors) == 0 && len(resp.Data) > 0 && string(resp.Data) != "null" && c.generation.Load() == gen {
			c.cache.Set(key, resp.Data)
		}
		return resp, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.Err != nil {
		return res.Err
	}
	return res.Val.(*Response).Decode(req.OperationName, out)
}

// flightContext detaches a shared call from the cancellation of the caller
// that started it, keeping its values and deadline. Waiters give up on
// their own context instead.
func flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, dl)
	}
	return context.WithTimeout(detached, defaultFlightTimeout)
}

// Mutate runs a write operation. Once the API has answered, the response
// cache is cleared and mutation hooks run, even if the answer carried
// GraphQL errors.
func (c *Client) Mutate(ctx context.Context, req *Request, out any) error {
	resp, err := c.pipeline.Execute(ctx, req)
	if err != nil {
		return err
	}
	c.ResetCache()
	for _, hook := range c.hooks {
		hook(ctx, req.OperationName)
	}
	return resp.Decode(req.OperationName, out)
}

// ResetCache drops every cached response.
func (c *Client) ResetCache() {
	c.generation.Add(1)
	c.cache.Clear()
}

// CleanExpired implements cache.Cleaner.
func (c *Client) CleanExpired() int {
	return c.cache.CleanExpired()
}

// CacheStats reports response cache usage.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

func (c *Client) Stats() CacheStats {
	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.cache.Evictions(),
		Entries:   c.cache.Size(),
	}
}

// cacheKey identifies a query by credential, document and variables.
// encoding/json sorts map keys, so equal variables encode identically.
func cacheKey(req *Request) (string, error) {
	vars, err := json.Marshal(req.Variables)
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(req.Header.Get("Authorization")))
	h.Write([]byte{0})
	h.Write([]byte(req.OperationName))
	h.Write([]byte{0})
	h.Write([]byte(req.Query))
	h.Write([]byte{0})
	h.Write(vars)
	return hex.EncodeToString(h.Sum(nil)), nil
}
