// Package rewrite wraps generative-text calls in a prompt cache, bounded
// retries with classification-driven backoff, and ordered fallback across a
// priority list of backends.
package rewrite

import (
	"context"
	"math/rand"
	"time"

	"espanews/internal/logger"
	"espanews/internal/metrics"
	"espanews/internal/model"
)

// Config tunes the retry/backoff behaviour of the engine.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration // unit for exponential/linear schedules
	RateLimitDelay time.Duration // flat wait after quota errors
}

// Engine performs rewrites with caching, retries, and backend fallback.
type Engine struct {
	backends []Backend
	cache    *Cache
	cfg      Config

	// sleep waits for d or until ctx is cancelled. Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an engine over an ordered fallback list. The first backend
// is the primary; each retry advances one step down the list and pins to the
// last backend once the list is exhausted.
func NewEngine(backends []Backend, cache *Cache, cfg Config) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = 45 * time.Second
	}

	return &Engine{
		backends: backends,
		cache:    cache,
		cfg:      cfg,
		sleep:    sleepCtx,
	}
}

// Rewrite produces the translated/rewritten form of an item. The prompt hash
// is checked against the cache first; a hit costs nothing. On a miss the
// engine walks the retry/fallback schedule and caches any accepted result
// before returning it.
func (e *Engine) Rewrite(ctx context.Context, title, content string) (model.RewriteResult, error) {
	prompt := BuildPrompt(title, content)
	hash := PromptHash(prompt)

	if res, ok := e.cache.Get(hash); ok {
		metrics.Global.IncrementCacheHits()
		logger.Debug("rewrite cache hit", "hash", hash[:12])
		return res, nil
	}
	metrics.Global.IncrementCacheMisses()

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		backend := e.backendFor(attempt)

		raw, err := backend.Generate(ctx, prompt)
		if err != nil {
			kind := Classify(err)
			lastErr = err
			logger.Warn("rewrite attempt failed",
				"backend", backend.Name(),
				"attempt", attempt+1,
				"kind", kind.String(),
				"error", err,
			)
			if attempt < e.cfg.MaxAttempts-1 {
				if serr := e.sleep(ctx, e.backoff(kind, attempt)); serr != nil {
					return model.RewriteResult{}, serr
				}
			}
			continue
		}

		res, perr := ParseResponse(raw)
		if perr != nil {
			// Unusable output is retried like any other failure.
			lastErr = perr
			logger.Warn("rewrite response unusable",
				"backend", backend.Name(),
				"attempt", attempt+1,
				"error", perr,
			)
			if attempt < e.cfg.MaxAttempts-1 {
				if serr := e.sleep(ctx, e.backoff(FailureUnknown, attempt)); serr != nil {
					return model.RewriteResult{}, serr
				}
			}
			continue
		}

		res.PromptHash = hash
		e.cache.Put(hash, res)
		if res.Origin == model.OriginHeuristic {
			logger.Info("rewrite accepted via heuristic extraction", "backend", backend.Name())
		}
		return res, nil
	}

	return model.RewriteResult{}, &ExhaustedError{Attempts: e.cfg.MaxAttempts, LastErr: lastErr}
}

// backendFor returns the backend for a given attempt index: the fallback list
// position advances with the attempt and pins to the last entry.
func (e *Engine) backendFor(attempt int) Backend {
	idx := attempt
	if idx >= len(e.backends) {
		idx = len(e.backends) - 1
	}
	return e.backends[idx]
}

// backoff computes the wait before the next attempt, with jitter.
func (e *Engine) backoff(kind FailureKind, attempt int) time.Duration {
	return backoffBase(kind, attempt, e.cfg.BaseDelay, e.cfg.RateLimitDelay) + jitter(e.cfg.BaseDelay)
}

// backoffBase is the deterministic part of the schedule: flat for rate
// limits, exponential for overload, linear for timeouts and anything
// unclassified.
func backoffBase(kind FailureKind, attempt int, base, rateLimitDelay time.Duration) time.Duration {
	switch kind {
	case FailureRateLimit:
		return rateLimitDelay
	case FailureOverloaded:
		return base * (1 << attempt)
	default:
		return base * time.Duration(attempt+1)
	}
}

// jitter spreads retries out so sequentially processed items don't hammer a
// recovering backend in lockstep.
func jitter(base time.Duration) time.Duration {
	max := int64(base / 2)
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(max))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
