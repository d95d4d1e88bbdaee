package extractor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the worker pool when the caller does not.
const DefaultConcurrency = 5

// BatchOptions tune one ExtractAll run.
type BatchOptions struct {
	// MaxConcurrency is the worker pool size; <=0 uses DefaultConcurrency.
	MaxConcurrency int
	// Pacing is the minimum delay between dispatches, to respect upstream
	// rate limits. Zero disables pacing.
	Pacing time.Duration
	// Deadline bounds the whole batch. Once exceeded, in-flight attempts
	// finish without further retries and queued URLs resolve as Timeout
	// failures. Zero means no overall deadline.
	Deadline time.Duration
}

// BatchOrchestrator fans a list of URLs out across a bounded worker pool,
// dispatching each URL through the cache and selector, and collects results
// in input order.
type BatchOrchestrator struct {
	cache    *ResultCache
	selector *HybridSelector
	log      zerolog.Logger
}

func NewBatchOrchestrator(cache *ResultCache, selector *HybridSelector, log zerolog.Logger) *BatchOrchestrator {
	return &BatchOrchestrator{
		cache:    cache,
		selector: selector,
		log:      log,
	}
}

// Extract runs a single URL through the cache and selector.
func (o *BatchOrchestrator) Extract(ctx context.Context, rawURL string) *Result {
	return o.cache.GetOrExtract(ctx, rawURL, o.selector.Extract)
}

// ExtractAll processes every URL and returns one result per input, in input
// order regardless of completion order. A single URL's failure never aborts
// the batch.
func (o *BatchOrchestrator) ExtractAll(ctx context.Context, urls []string, opts BatchOptions) []*Result {
	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	results := make([]*Result, len(urls))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, rawURL := range urls {
		if opts.Pacing > 0 && i > 0 {
			// Deadline hit while pacing still dispatches the worker, which
			// drains the URL as a Timeout failure.
			_ = sleepCtx(ctx, opts.Pacing)
		}

		i, rawURL := i, rawURL
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = failure(rawURL, KindTimeout, "batch deadline exceeded")
				return nil
			}
			start := time.Now()
			r := o.Extract(ctx, rawURL)
			results[i] = r

			evt := o.log.Info()
			if !r.Succeeded {
				evt = o.log.Warn().Str("error_kind", string(r.ErrorKind)).Str("error", r.ErrorMessage)
			}
			evt.Str("url", rawURL).
				Int("words", r.WordCount).
				Dur("elapsed", time.Since(start)).
				Msg("extracted")
			return nil
		})
	}
	g.Wait()

	return results
}

// Stats aggregates a batch outcome.
type Stats struct {
	Total      int               `json:"total"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	TotalWords int               `json:"total_words"`
	ErrorKinds map[ErrorKind]int `json:"error_kinds,omitempty"`
}

// Summarize computes aggregate statistics over a batch's results.
func Summarize(results []*Result) Stats {
	stats := Stats{
		Total:      len(results),
		ErrorKinds: make(map[ErrorKind]int),
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Succeeded {
			stats.Succeeded++
			stats.TotalWords += r.WordCount
		} else {
			stats.Failed++
			stats.ErrorKinds[r.ErrorKind]++
		}
	}
	return stats
}
