package collector

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"QuoteHarvester/internal/model"
)

// RateLimited wraps a QuoteSource and spaces out calls to the provider.
// Waiting honours the caller's context.
type RateLimited struct {
	Source  QuoteSource
	Limiter *rate.Limiter
}

// WithMinInterval returns src unchanged when interval is not positive.
func WithMinInterval(src QuoteSource, interval time.Duration) QuoteSource {
	if interval <= 0 {
		return src
	}
	return &RateLimited{Source: src, Limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (r *RateLimited) Name() string { return r.Source.Name() }

func (r *RateLimited) FetchQuotes(ctx context.Context, symbols []model.Symbol) ([]model.RawQuote, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Source.FetchQuotes(ctx, symbols)
}
