package extractor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// urlBackend answers per URL: listed URLs fail with the given kind, everything
// else succeeds.
type urlBackend struct {
	mu   sync.Mutex
	fail map[string]ErrorKind
}

func (b *urlBackend) Name() string { return "url-stub" }

func (b *urlBackend) Extract(ctx context.Context, rawURL string) *Result {
	b.mu.Lock()
	kind, bad := b.fail[rawURL]
	b.mu.Unlock()
	if bad {
		return failure(rawURL, kind, "scripted failure")
	}
	return newResult(rawURL, "Title", "content for "+rawURL)
}

func newTestOrchestrator(backend Backend) *BatchOrchestrator {
	selector := NewHybridSelector(ChainEntry{
		Name:    backend.Name(),
		Factory: func() Backend { return backend },
		Retry:   RetryPolicy{MaxAttempts: 1},
	})
	return NewBatchOrchestrator(NewResultCache(), selector, zerolog.Nop())
}

func TestBatchOrchestrator_PreservesInputOrder(t *testing.T) {
	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
		"https://example.com/4",
		"https://example.com/5",
		"https://example.com/6",
	}
	o := newTestOrchestrator(&urlBackend{fail: map[string]ErrorKind{
		"https://example.com/4": KindUpstreamError,
	}})

	results := o.ExtractAll(context.Background(), urls, BatchOptions{MaxConcurrency: 3})

	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("results[%d] is nil", i)
		}
		if r.SourceURL != urls[i] {
			t.Errorf("results[%d].SourceURL = %q, want %q", i, r.SourceURL, urls[i])
		}
	}
	if results[3].Succeeded {
		t.Error("the failing URL should carry its failure")
	}
	// The selector retags exhausted chains, preserving the original kind in
	// the message.
	if results[3].ErrorKind != KindAllBackendsFailed {
		t.Errorf("results[3].ErrorKind = %q", results[3].ErrorKind)
	}
	if !strings.Contains(results[3].ErrorMessage, string(KindUpstreamError)) {
		t.Errorf("results[3].ErrorMessage = %q", results[3].ErrorMessage)
	}
	for _, i := range []int{0, 1, 2, 4, 5} {
		if !results[i].Succeeded {
			t.Errorf("results[%d] should succeed: %s", i, results[i].ErrorMessage)
		}
	}
}

func TestBatchOrchestrator_FailureDoesNotAbortBatch(t *testing.T) {
	urls := []string{"bogus-url", "https://example.com/good"}
	o := newTestOrchestrator(&urlBackend{})

	results := o.ExtractAll(context.Background(), urls, BatchOptions{})

	if results[0].ErrorKind != KindInvalidURL {
		t.Errorf("results[0].ErrorKind = %q", results[0].ErrorKind)
	}
	if !results[1].Succeeded {
		t.Errorf("good URL should still be extracted: %s", results[1].ErrorMessage)
	}
}

func TestBatchOrchestrator_DuplicateURLsShareOneExtraction(t *testing.T) {
	const url = "https://example.com/dup"
	var calls int
	var mu sync.Mutex
	backend := backendFunc(func(ctx context.Context, rawURL string) *Result {
		mu.Lock()
		calls++
		mu.Unlock()
		return newResult(rawURL, "T", "content")
	})

	o := newTestOrchestrator(backend)
	results := o.ExtractAll(context.Background(), []string{url, url, url}, BatchOptions{MaxConcurrency: 3})

	if calls != 1 {
		t.Errorf("backend ran %d times for 3 identical URLs, want 1", calls)
	}
	for i, r := range results {
		if !r.Succeeded {
			t.Errorf("results[%d] failed: %s", i, r.ErrorMessage)
		}
	}
}

type backendFunc func(ctx context.Context, rawURL string) *Result

func (f backendFunc) Name() string { return "func" }

func (f backendFunc) Extract(ctx context.Context, rawURL string) *Result {
	return f(ctx, rawURL)
}

func TestBatchOrchestrator_DeadlineDrainsQueuedURLs(t *testing.T) {
	backend := backendFunc(func(ctx context.Context, rawURL string) *Result {
		// Block until cancelled, like a hung origin.
		<-ctx.Done()
		return failure(rawURL, KindTimeout, "origin never answered")
	})
	o := newTestOrchestrator(backend)

	urls := []string{
		"https://example.com/1",
		"https://example.com/2",
		"https://example.com/3",
	}
	results := o.ExtractAll(context.Background(), urls, BatchOptions{
		MaxConcurrency: 1,
		Deadline:       30 * time.Millisecond,
	})

	for i, r := range results {
		if r == nil {
			t.Fatalf("results[%d] is nil; every URL must resolve", i)
		}
		if r.Succeeded {
			t.Errorf("results[%d] should fail under the deadline", i)
		}
	}
	// The in-flight URL fails through the chain; URLs still queued when the
	// deadline hit are marked Timeout, not silently dropped.
	if results[0].ErrorKind != KindAllBackendsFailed {
		t.Errorf("results[0].ErrorKind = %q", results[0].ErrorKind)
	}
	if results[2].ErrorKind != KindTimeout {
		t.Errorf("results[2].ErrorKind = %q, want %q", results[2].ErrorKind, KindTimeout)
	}
	if !strings.Contains(results[2].ErrorMessage, "batch deadline exceeded") {
		t.Errorf("queued URL message = %q", results[2].ErrorMessage)
	}
}

func TestSummarize(t *testing.T) {
	results := []*Result{
		newResult("https://example.com/a", "A", "四个字哦"),
		newResult("https://example.com/b", "B", "12345"),
		failure("https://example.com/c", KindTimeout, "slow"),
		failure("https://example.com/d", KindTimeout, "slower"),
		failure("https://example.com/e", KindRateLimited, "429"),
		nil,
	}

	stats := Summarize(results)
	if stats.Total != 6 {
		t.Errorf("Total = %d, want 6", stats.Total)
	}
	if stats.Succeeded != 2 || stats.Failed != 3 {
		t.Errorf("Succeeded/Failed = %d/%d, want 2/3", stats.Succeeded, stats.Failed)
	}
	if stats.TotalWords != 9 {
		t.Errorf("TotalWords = %d, want 9", stats.TotalWords)
	}
	if stats.ErrorKinds[KindTimeout] != 2 || stats.ErrorKinds[KindRateLimited] != 1 {
		t.Errorf("ErrorKinds = %v", stats.ErrorKinds)
	}
}
