package price

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ForexSignalBot/internal/models"
)

var (
	// ErrProviderUnavailable wraps any failure of a single provider
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	// ErrAllProvidersFailed is returned when every provider in a chain failed
	ErrAllProvidersFailed = errors.New("all market data providers failed")
	ErrUnsupportedSymbol  = errors.New("symbol not supported by provider")
)

// Provider returns at least minBars of the most recent candles, oldest first
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error)
}

func unavailable(provider, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrProviderUnavailable, provider, fmt.Sprintf(format, args...))
}

// checkLength enforces the minBars part of the contract
func checkLength(provider string, series models.CandleSeries, minBars int) error {
	if series.Len() < minBars {
		return unavailable(provider, "%s %s returned %d bars, need %d",
			series.Symbol, series.TimeFrame, series.Len(), minBars)
	}
	return nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", s, err)
	}
	return f, nil
}
