package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryingEmbedder retries transient gateway failures with capped exponential backoff.
type RetryingEmbedder struct {
	inner      Embedder
	maxRetries uint64
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
}

// RetryOption configures a RetryingEmbedder.
type RetryOption func(*RetryingEmbedder)

// WithBaseDelay sets the first backoff interval.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *RetryingEmbedder) { r.baseDelay = d }
}

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(logger *zap.Logger) RetryOption {
	return func(r *RetryingEmbedder) { r.logger = logger }
}

// NewRetryingEmbedder wraps inner, retrying up to maxRetries times.
func NewRetryingEmbedder(inner Embedder, maxRetries int, opts ...RetryOption) *RetryingEmbedder {
	if maxRetries < 0 {
		maxRetries = 0
	}
	r := &RetryingEmbedder{
		inner:      inner,
		maxRetries: uint64(maxRetries),
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Embed embeds one text with retries.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.Embed(ctx, text)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// EmbedBatch embeds texts with retries.
func (r *RetryingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.do(ctx, func(ctx context.Context) error {
		v, err := r.inner.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (r *RetryingEmbedder) do(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.NewExponential(r.baseDelay)
	backoff = retry.WithCappedDuration(r.maxDelay, backoff)
	backoff = retry.WithMaxRetries(r.maxRetries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return err
		}
		r.logger.Warn("embedding request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
}

// isTransient reports whether err is a gateway failure worth repeating.
func isTransient(err error) bool {
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Temporary()
	}
	return errors.Is(err, ErrGateway)
}

// Dimensions returns the wrapped embedder's dimension.
func (r *RetryingEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (r *RetryingEmbedder) Close() error {
	return r.inner.Close()
}
