package extractor

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ProducerFunc produces a result for a URL, typically a HybridSelector.
type ProducerFunc func(ctx context.Context, rawURL string) *Result

// ResultCache memoizes results by source URL for the lifetime of a session.
// Failures are cached too, so a known-bad URL is not hammered again. The
// singleflight group collapses concurrent requests for the same URL into a
// single backend invocation; every waiter receives the one produced result.
type ResultCache struct {
	// RetryFailures, when set, re-runs the producer for URLs whose cached
	// result failed instead of serving the stale failure.
	RetryFailures bool

	mu      sync.Mutex
	entries map[string]*Result
	group   singleflight.Group
}

func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[string]*Result),
	}
}

// GetOrExtract returns the cached result for the URL, or invokes produce
// exactly once (across all concurrent callers) and caches what it returns.
func (c *ResultCache) GetOrExtract(ctx context.Context, rawURL string, produce ProducerFunc) *Result {
	if r, ok := c.lookup(rawURL); ok {
		return r
	}

	v, _, _ := c.group.Do(rawURL, func() (interface{}, error) {
		// A racing caller may have finished while we waited on the group.
		if r, ok := c.lookup(rawURL); ok {
			return r, nil
		}
		r := produce(ctx, rawURL)
		if r == nil {
			r = failure(rawURL, KindRenderError, "producer returned no result")
		}
		c.mu.Lock()
		c.entries[rawURL] = r
		c.mu.Unlock()
		return r, nil
	})
	return v.(*Result)
}

// Get returns the cached result without producing.
func (c *ResultCache) Get(rawURL string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[rawURL]
	return r, ok
}

// Len reports the number of cached URLs.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) lookup(rawURL string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[rawURL]
	if !ok {
		return nil, false
	}
	if !r.Succeeded && c.RetryFailures {
		return nil, false
	}
	return r, true
}
