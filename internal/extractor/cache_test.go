package extractor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResultCache_GetOrExtract(t *testing.T) {
	const url = "https://example.com/article"
	c := NewResultCache()

	var calls int32
	produce := func(ctx context.Context, rawURL string) *Result {
		atomic.AddInt32(&calls, 1)
		return newResult(rawURL, "Title", "content")
	}

	first := c.GetOrExtract(context.Background(), url, produce)
	second := c.GetOrExtract(context.Background(), url, produce)

	if first != second {
		t.Error("repeated calls should return the cached result")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("producer ran %d times, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestResultCache_ConcurrentCallersCollapse(t *testing.T) {
	const url = "https://example.com/article"
	c := NewResultCache()

	var calls int32
	produce := func(ctx context.Context, rawURL string) *Result {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return newResult(rawURL, "Title", "content")
	}

	results := make([]*Result, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrExtract(context.Background(), url, produce)
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("producer ran %d times across concurrent callers, want 1", n)
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("caller %d got a different result", i)
		}
	}
}

func TestResultCache_FailuresAreCached(t *testing.T) {
	const url = "https://example.com/broken"
	c := NewResultCache()

	var calls int32
	produce := func(ctx context.Context, rawURL string) *Result {
		atomic.AddInt32(&calls, 1)
		return failure(rawURL, KindUpstreamError, "HTTP 500")
	}

	c.GetOrExtract(context.Background(), url, produce)
	r := c.GetOrExtract(context.Background(), url, produce)

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("producer ran %d times, want 1 (failures cache too)", n)
	}
	if r.ErrorKind != KindUpstreamError {
		t.Errorf("ErrorKind = %q", r.ErrorKind)
	}
}

func TestResultCache_RetryFailures(t *testing.T) {
	const url = "https://example.com/flaky"
	c := NewResultCache()
	c.RetryFailures = true

	var calls int32
	produce := func(ctx context.Context, rawURL string) *Result {
		if atomic.AddInt32(&calls, 1) == 1 {
			return failure(rawURL, KindTimeout, "first try timed out")
		}
		return newResult(rawURL, "Title", "content")
	}

	if r := c.GetOrExtract(context.Background(), url, produce); r.Succeeded {
		t.Fatal("first call should fail")
	}
	r := c.GetOrExtract(context.Background(), url, produce)
	if !r.Succeeded {
		t.Fatalf("second call should retry past the cached failure, got %s", r.ErrorMessage)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("producer ran %d times, want 2", n)
	}

	// The success replaces the failure and is served from cache afterwards.
	c.GetOrExtract(context.Background(), url, produce)
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("producer ran %d times after success, want 2", n)
	}
}

func TestResultCache_NilProducerResult(t *testing.T) {
	c := NewResultCache()
	r := c.GetOrExtract(context.Background(), "https://example.com", func(ctx context.Context, rawURL string) *Result {
		return nil
	})
	if r == nil {
		t.Fatal("cache must never return nil")
	}
	if r.ErrorKind != KindRenderError {
		t.Errorf("ErrorKind = %q, want %q", r.ErrorKind, KindRenderError)
	}
}

func TestResultCache_DistinctURLs(t *testing.T) {
	c := NewResultCache()
	produce := func(ctx context.Context, rawURL string) *Result {
		return newResult(rawURL, "T", "content for "+rawURL)
	}

	a := c.GetOrExtract(context.Background(), "https://example.com/a", produce)
	b := c.GetOrExtract(context.Background(), "https://example.com/b", produce)
	if a == b {
		t.Error("distinct URLs must not share a cache entry")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	if _, ok := c.Get("https://example.com/a"); !ok {
		t.Error("Get should find the cached entry")
	}
	if _, ok := c.Get("https://example.com/missing"); ok {
		t.Error("Get should miss unknown URLs")
	}
}
