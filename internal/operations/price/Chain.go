package price

import (
	"context"
	"errors"
	"fmt"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"

	"github.com/rs/zerolog"
)

// FallbackRecorder counts providers that could not serve a request
type FallbackRecorder interface {
	RecordFallback(provider string)
}

// ChainProvider tries providers in priority order and returns the first
// series that satisfies the contract.
type ChainProvider struct {
	providers []Provider
	recorder  FallbackRecorder
	log       zerolog.Logger
}

func NewChainProvider(log zerolog.Logger, recorder FallbackRecorder, providers ...Provider) *ChainProvider {
	return &ChainProvider{
		providers: providers,
		recorder:  recorder,
		log:       logger.Component(log, "price_chain"),
	}
}

func (c *ChainProvider) Name() string {
	return "chain"
}

func (c *ChainProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	var errs []error

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return models.CandleSeries{}, err
		}

		series, err := p.Fetch(ctx, symbol, tf, minBars)
		if err == nil {
			err = checkLength(p.Name(), series, minBars)
		}
		if err != nil {
			errs = append(errs, err)
			if c.recorder != nil {
				c.recorder.RecordFallback(p.Name())
			}
			c.log.Warn().
				Err(err).
				Str("provider", p.Name()).
				Str("symbol", symbol).
				Str("timeframe", tf.String()).
				Msg("provider failed, trying next")
			continue
		}

		if series.Source == "" {
			series.Source = p.Name()
		}
		if gaps := series.Gaps(); gaps > 0 {
			c.log.Debug().
				Str("provider", series.Source).
				Str("symbol", symbol).
				Str("timeframe", tf.String()).
				Int("gaps", gaps).
				Msg("series has gaps")
		}
		if series.Synthetic {
			c.log.Warn().
				Str("symbol", symbol).
				Str("timeframe", tf.String()).
				Msg("using synthetic candles")
		}
		return series, nil
	}

	return models.CandleSeries{}, fmt.Errorf("%w: %s %s: %w", ErrAllProvidersFailed, symbol, tf, errors.Join(errs...))
}
