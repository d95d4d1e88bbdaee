package extractor

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ChainEntry declares one backend in a fallback chain. Factory runs at most
// once, the first time the selector actually reaches this entry, so expensive
// backends (the browser) never start while earlier ones keep succeeding.
type ChainEntry struct {
	Name    string
	Factory func() Backend
	Retry   RetryPolicy
}

type chainSlot struct {
	ChainEntry
	once    sync.Once
	backend Backend
}

func (s *chainSlot) get() Backend {
	s.once.Do(func() {
		s.backend = s.Factory()
	})
	return s.backend
}

// HybridSelector tries backends in priority order, falling back on failure.
// Configuration order is priority order: cheapest and most reliable first.
type HybridSelector struct {
	slots []*chainSlot
}

func NewHybridSelector(entries ...ChainEntry) *HybridSelector {
	slots := make([]*chainSlot, len(entries))
	for i, e := range entries {
		slots[i] = &chainSlot{ChainEntry: e}
	}
	return &HybridSelector{slots: slots}
}

// Extract returns the first succeeding backend's result. When every backend
// fails, the last backend's result is returned retagged AllBackendsFailed,
// its message naming the backend and preserving the original kind.
func (h *HybridSelector) Extract(ctx context.Context, rawURL string) *Result {
	if len(h.slots) == 0 {
		return failure(rawURL, KindAllBackendsFailed, "no backends configured")
	}
	if bad := validateURL(rawURL); bad != nil {
		// Malformed input fails identically on every backend; skip the chain.
		return bad
	}

	var last *Result
	var lastName string
	for _, slot := range h.slots {
		last = slot.Retry.Do(ctx, slot.get(), rawURL)
		if last.Succeeded {
			return last
		}
		lastName = slot.Name
	}

	wrapped := *last
	wrapped.ErrorKind = KindAllBackendsFailed
	wrapped.ErrorMessage = fmt.Sprintf("all backends failed; last backend %q: %s: %s", lastName, last.ErrorKind, last.ErrorMessage)
	return &wrapped
}

// Close releases every backend that was actually constructed and implements
// io.Closer. Backends never reached stay untouched.
func (h *HybridSelector) Close() error {
	var firstErr error
	for _, slot := range h.slots {
		if slot.backend == nil {
			continue
		}
		if closer, ok := slot.backend.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
