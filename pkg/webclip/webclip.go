// Package webclip exposes the extraction engine behind a small facade: build
// an Extractor from config, then call Extract or ExtractBatch.
package webclip

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/crazyfrank/webclip/internal/browser"
	"github.com/crazyfrank/webclip/internal/config"
	"github.com/crazyfrank/webclip/internal/extractor"
	"github.com/crazyfrank/webclip/internal/log"
)

// Extractor wires the session cache, the hybrid backend chain and the batch
// orchestrator. Instances are safe for concurrent use; the cache is scoped to
// the Extractor's lifetime. Close releases any renderer that was started.
type Extractor struct {
	cfg      *config.Config
	cache    *extractor.ResultCache
	selector *extractor.HybridSelector
	batch    *extractor.BatchOrchestrator
	log      zerolog.Logger
}

// New builds an Extractor from the config's backend chain. Backends are
// constructed lazily, so listing "chrome" costs nothing until the chain
// actually falls back to it.
func New(cfg *config.Config) (*Extractor, error) {
	chain := cfg.Backends.Chain
	if len(chain) == 0 {
		chain = []string{"jina", "chrome"}
	}

	retry := extractor.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
	}

	entries := make([]extractor.ChainEntry, 0, len(chain))
	for _, name := range chain {
		factory, err := backendFactory(name, cfg)
		if err != nil {
			return nil, err
		}
		entries = append(entries, extractor.ChainEntry{
			Name:    name,
			Factory: factory,
			Retry:   retry,
		})
	}

	cache := extractor.NewResultCache()
	cache.RetryFailures = cfg.Cache.RetryFailures
	selector := extractor.NewHybridSelector(entries...)
	logger := log.NewLogger("extractor")

	return &Extractor{
		cfg:      cfg,
		cache:    cache,
		selector: selector,
		batch:    extractor.NewBatchOrchestrator(cache, selector, logger),
		log:      logger,
	}, nil
}

func backendFactory(name string, cfg *config.Config) (func() extractor.Backend, error) {
	switch name {
	case "jina":
		return func() extractor.Backend {
			apiKey := cfg.Jina.APIKey
			if envKey := os.Getenv("JINA_API_KEY"); envKey != "" {
				apiKey = envKey
			}
			b := extractor.NewJinaBackend(apiKey, time.Duration(cfg.Jina.Timeout)*time.Second)
			if cfg.Jina.BaseURL != "" {
				b.BaseURL = cfg.Jina.BaseURL
			}
			b.IncludeImages = cfg.Jina.IncludeImages
			return b
		}, nil

	case "chrome":
		return func() extractor.Backend {
			b := extractor.NewChromeBackend(time.Duration(cfg.Chrome.Timeout) * time.Second)
			b.Headless = cfg.Chrome.Headless
			b.Settle = time.Duration(cfg.Chrome.SettleMs) * time.Millisecond
			b.WaitForSelector = cfg.Chrome.WaitForSelector
			b.UserAgent = cfg.Chrome.UserAgent
			b.IncludeImages = cfg.Chrome.IncludeImages
			return b
		}, nil

	case "static":
		return func() extractor.Backend {
			b := extractor.NewStaticBackend(time.Duration(cfg.Static.Timeout) * time.Second)
			b.UserAgent = cfg.Static.UserAgent
			b.BrowserAgent = cfg.Static.BrowserAgent
			if cfg.Static.InjectCookies {
				b.Cookies = browser.NewCookieJar(browser.BrowserType(cfg.Static.CookieBrowser))
			}
			return b
		}, nil

	default:
		return nil, fmt.Errorf("unknown extraction backend: %s (available: static, jina, chrome)", name)
	}
}

// Extract runs a single URL through the cache and the backend chain.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *extractor.Result {
	return e.batch.Extract(ctx, rawURL)
}

// ExtractBatch processes URLs concurrently and returns one result per input,
// in input order. maxConcurrency <= 0 uses the configured default.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string, maxConcurrency int) []*extractor.Result {
	if maxConcurrency <= 0 {
		maxConcurrency = e.cfg.Batch.MaxConcurrency
	}
	return e.batch.ExtractAll(ctx, urls, extractor.BatchOptions{
		MaxConcurrency: maxConcurrency,
		Pacing:         time.Duration(e.cfg.Batch.DelayMs) * time.Millisecond,
		Deadline:       time.Duration(e.cfg.Batch.DeadlineS) * time.Second,
	})
}

// Close releases backend resources (the browser, if it ever started).
func (e *Extractor) Close() error {
	return e.selector.Close()
}
