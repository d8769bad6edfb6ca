package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/siance/internal/cache"
	"github.com/ppiankov/siance/internal/logging"
)

// Limiter paces calls to a named service
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Options tunes the Cached wrapper
type Options struct {
	BatchSize  int           // Texts per service call; <= 0 sends everything at once
	MaxRetries int           // Extra attempts per batch after the first failure
	Backoff    time.Duration // First retry delay, doubled on each attempt
	TTL        time.Duration // Cache TTL; 0 uses the cache default
}

// Cached memoizes vectors per (model, sentence), deduplicates repeated
// sentences, splits misses into batches and retries failed batches
type Cached struct {
	provider Provider
	cache    cache.Cache
	limiter  Limiter
	opts     Options
	log      logging.Logger
}

// NewCached wraps provider. c and limiter may be nil.
func NewCached(provider Provider, c cache.Cache, limiter Limiter, opts Options, log logging.Logger) *Cached {
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	return &Cached{
		provider: provider,
		cache:    c,
		limiter:  limiter,
		opts:     opts,
		log:      logging.OrNop(log).Named("embed"),
	}
}

// Name returns the wrapped provider name
func (c *Cached) Name() string { return c.provider.Name() }

// Model returns the wrapped provider model
func (c *Cached) Model() string { return c.provider.Model() }

// IsAvailable delegates to the wrapped provider
func (c *Cached) IsAvailable(ctx context.Context) bool { return c.provider.IsAvailable(ctx) }

// Embed returns one vector per text, in input order
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	positions := make(map[string][]int)
	var misses []string

	for i, text := range texts {
		if vec, ok := c.lookup(text); ok {
			out[i] = vec
			continue
		}
		if _, seen := positions[text]; !seen {
			misses = append(misses, text)
		}
		positions[text] = append(positions[text], i)
	}

	size := c.opts.BatchSize
	if size <= 0 {
		size = len(misses)
	}
	for start := 0; start < len(misses); start += size {
		end := min(start+size, len(misses))
		batch := misses[start:end]

		vectors, err := c.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, text := range batch {
			for _, pos := range positions[text] {
				out[pos] = vectors[j]
			}
			c.store(text, vectors[j])
		}
	}

	if len(texts) > 0 {
		c.log.Debug("embedded sentences",
			logging.Int("requested", len(texts)),
			logging.Int("fetched", len(misses)),
		)
	}
	return out, nil
}

func (c *Cached) embedWithRetry(ctx context.Context, batch []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.opts.Backoff * time.Duration(1<<uint(attempt-1))
			c.log.Warn("retrying embedding batch",
				logging.Int("attempt", attempt),
				logging.Duration("backoff", backoff),
				logging.Err(lastErr),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, c.provider.Name()); err != nil {
				return nil, err
			}
		}

		vectors, err := c.provider.Embed(ctx, batch)
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("%w: %d vectors for %d texts", ErrBadResponse, len(vectors), len(batch))
			}
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embed: exhausted %d retries: %w", c.opts.MaxRetries, lastErr)
}

func (c *Cached) lookup(text string) ([]float64, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(cache.EmbeddingKey(c.provider.Model(), text))
	if !ok {
		return nil, false
	}
	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *Cached) store(text string, vec []float64) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.cache.Set(cache.EmbeddingKey(c.provider.Model(), text), data, c.opts.TTL); err != nil {
		c.log.Warn("failed to cache embedding", logging.Err(err))
	}
}
