package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/document"
	"github.com/poiesic/catalogsync/storage"
	"golang.org/x/time/rate"
)

// EmbeddingResult is the outcome of embedding one document.
// Exactly one of Vector and Err is set.
type EmbeddingResult struct {
	Vector []float32
	Cached bool
	Err    *core.Failure
}

// OK reports whether a usable vector was produced.
func (r EmbeddingResult) OK() bool {
	return r.Err == nil
}

// EmbeddingProvider turns composed documents into fixed-length vectors.
// It never panics on service errors and never returns a nil vector without a failure.
type EmbeddingProvider struct {
	embedder ai.Embedder
	model    string
	maxChars int
	dims     int
	limiter  *rate.Limiter
	cache    storage.EmbeddingCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// ProviderOption configures an EmbeddingProvider.
type ProviderOption func(*EmbeddingProvider) error

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) ProviderOption {
	return func(e *EmbeddingProvider) error {
		if rps < 0 {
			return fmt.Errorf("rate limit must not be negative, got %v", rps)
		}
		if rps == 0 {
			e.limiter = nil
			return nil
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		return nil
	}
}

// WithCache reuses vectors of unchanged documents across cycles.
// A zero ttl keeps entries forever.
func WithCache(cache storage.EmbeddingCache, ttl time.Duration) ProviderOption {
	return func(e *EmbeddingProvider) error {
		e.cache = cache
		e.cacheTTL = ttl
		return nil
	}
}

// WithProviderLogger sets a custom logger.
// Default is slog.Default().
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(e *EmbeddingProvider) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEmbeddingProvider creates a provider over embedder. Model, input cap and
// expected dimension come from cfg.
func NewEmbeddingProvider(embedder ai.Embedder, cfg *ai.Config, opts ...ProviderOption) (*EmbeddingProvider, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if cfg.Dimensions < 1 || cfg.MaxInputChars < 1 {
		return nil, fmt.Errorf("invalid embedding config: dimensions=%d max chars=%d", cfg.Dimensions, cfg.MaxInputChars)
	}

	e := &EmbeddingProvider{
		embedder: embedder,
		model:    cfg.EmbeddingModel,
		maxChars: cfg.MaxInputChars,
		dims:     cfg.Dimensions,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	e.logger = e.logger.With("component", "embedding-provider", "model", e.model)
	return e, nil
}

// Dimensions returns the expected vector length.
func (e *EmbeddingProvider) Dimensions() int {
	return e.dims
}

// Embed truncates doc to the input cap and returns its vector.
func (e *EmbeddingProvider) Embed(ctx context.Context, doc string) EmbeddingResult {
	text := document.Truncate(doc, e.maxChars)

	var fp core.Fingerprint
	if e.cache != nil {
		fp = core.FingerprintOf(e.model, text)
		vector, err := e.cache.GetVector(ctx, fp)
		switch {
		case err == nil && len(vector) == e.dims:
			return EmbeddingResult{Vector: vector, Cached: true}
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			e.logger.Warn("embedding cache read failed", "err", err)
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return e.fail(fmt.Errorf("rate limiter: %w", err))
		}
	}

	vector, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		return e.fail(err)
	}
	if len(vector) != e.dims {
		return e.fail(fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, e.dims, len(vector)))
	}

	if e.cache != nil {
		if err := e.cache.PutVector(ctx, fp, vector, e.cacheTTL); err != nil {
			e.logger.Warn("embedding cache write failed", "err", err)
		}
	}

	return EmbeddingResult{Vector: vector}
}

func (e *EmbeddingProvider) fail(err error) EmbeddingResult {
	return EmbeddingResult{Err: core.NewFailure(core.KindEmbedding, "", err)}
}
