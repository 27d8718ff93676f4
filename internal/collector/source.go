package collector

import (
	"context"
	"errors"

	"QuoteHarvester/internal/model"
)

// ErrProvider marks a response the quote provider itself rejected.
var ErrProvider = errors.New("quote provider error")

// QuoteSource fetches raw quotes for a set of symbols in one round trip.
// It may answer for fewer symbols than requested; an absent symbol means
// no data this time, not an error.
//
//go:generate mockgen -package=mocks -destination=mocks/mock_source.go -source=source.go QuoteSource
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbols []model.Symbol) ([]model.RawQuote, error)
	Name() string
}
