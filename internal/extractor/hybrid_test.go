package extractor

import (
	"context"
	"strings"
	"testing"
)

// noRetry keeps chain tests about fallback order, not backoff.
var noRetry = RetryPolicy{MaxAttempts: 1}

func entryFor(name string, b Backend) ChainEntry {
	return ChainEntry{Name: name, Factory: func() Backend { return b }, Retry: noRetry}
}

func TestHybridSelector_FirstSuccessWins(t *testing.T) {
	const url = "https://example.com/article"
	first := &scriptedBackend{name: "a", results: []*Result{newResult(url, "A", "content from a")}}
	second := &scriptedBackend{name: "b", results: []*Result{newResult(url, "B", "content from b")}}

	h := NewHybridSelector(entryFor("a", first), entryFor("b", second))
	result := h.Extract(context.Background(), url)

	if result.Title != "A" {
		t.Errorf("Title = %q, want A", result.Title)
	}
	if second.calls != 0 {
		t.Errorf("later backend called %d times, want 0", second.calls)
	}
}

func TestHybridSelector_FallsBackOnFailure(t *testing.T) {
	const url = "https://example.com/article"
	first := &scriptedBackend{name: "a", results: []*Result{failure(url, KindUpstreamError, "HTTP 503")}}
	second := &scriptedBackend{name: "b", results: []*Result{newResult(url, "B", "content from b")}}

	h := NewHybridSelector(entryFor("a", first), entryFor("b", second))
	result := h.Extract(context.Background(), url)

	if !result.Succeeded {
		t.Fatalf("expected fallback success, got %s: %s", result.ErrorKind, result.ErrorMessage)
	}
	if result.Title != "B" {
		t.Errorf("Title = %q, want B", result.Title)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestHybridSelector_AllBackendsFailed(t *testing.T) {
	const url = "https://example.com/article"
	first := &scriptedBackend{name: "a", results: []*Result{failure(url, KindUpstreamError, "HTTP 503")}}
	second := &scriptedBackend{name: "b", results: []*Result{failure(url, KindNavigationTimeout, "page never loaded")}}

	h := NewHybridSelector(entryFor("a", first), entryFor("b", second))
	result := h.Extract(context.Background(), url)

	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if result.ErrorKind != KindAllBackendsFailed {
		t.Errorf("ErrorKind = %q, want %q", result.ErrorKind, KindAllBackendsFailed)
	}
	// The message names the last backend and preserves its original kind.
	for _, want := range []string{`"b"`, string(KindNavigationTimeout), "page never loaded"} {
		if !strings.Contains(result.ErrorMessage, want) {
			t.Errorf("message %q should contain %q", result.ErrorMessage, want)
		}
	}
}

func TestHybridSelector_LazyConstruction(t *testing.T) {
	const url = "https://example.com/article"
	first := &scriptedBackend{name: "a", results: []*Result{newResult(url, "A", "content")}}

	constructed := false
	h := NewHybridSelector(
		entryFor("a", first),
		ChainEntry{
			Name: "expensive",
			Factory: func() Backend {
				constructed = true
				return &scriptedBackend{name: "expensive"}
			},
			Retry: noRetry,
		},
	)

	h.Extract(context.Background(), url)
	h.Extract(context.Background(), url)
	if constructed {
		t.Error("unreached backend must never be constructed")
	}
}

func TestHybridSelector_InvalidURLSkipsChain(t *testing.T) {
	first := &scriptedBackend{name: "a", results: []*Result{nil}}

	h := NewHybridSelector(entryFor("a", first))
	result := h.Extract(context.Background(), "definitely not a url")

	if result.ErrorKind != KindInvalidURL {
		t.Errorf("ErrorKind = %q, want %q", result.ErrorKind, KindInvalidURL)
	}
	if first.calls != 0 {
		t.Errorf("backend called %d times for invalid URL, want 0", first.calls)
	}
}

func TestHybridSelector_EmptyChain(t *testing.T) {
	h := NewHybridSelector()
	result := h.Extract(context.Background(), "https://example.com")
	if result.ErrorKind != KindAllBackendsFailed {
		t.Errorf("ErrorKind = %q, want %q", result.ErrorKind, KindAllBackendsFailed)
	}
	if !strings.Contains(result.ErrorMessage, "no backends configured") {
		t.Errorf("message = %q", result.ErrorMessage)
	}
}

type closableBackend struct {
	scriptedBackend
	closed bool
}

func (b *closableBackend) Close() error {
	b.closed = true
	return nil
}

func TestHybridSelector_CloseOnlyConstructed(t *testing.T) {
	const url = "https://example.com"
	used := &closableBackend{scriptedBackend: scriptedBackend{
		name:    "used",
		results: []*Result{newResult(url, "T", "content")},
	}}
	unused := &closableBackend{scriptedBackend: scriptedBackend{name: "unused"}}

	h := NewHybridSelector(entryFor("used", used), entryFor("unused", unused))
	h.Extract(context.Background(), url)

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !used.closed {
		t.Error("constructed backend should be closed")
	}
	if unused.closed {
		t.Error("never-constructed backend should not be closed")
	}
}
