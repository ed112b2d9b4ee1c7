package price

import (
	"context"
	"errors"
	"testing"
	"time"

	"ForexSignalBot/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	bars  int
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	f.calls++
	if f.err != nil {
		return models.CandleSeries{}, f.err
	}
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, f.bars)
	for i := range candles {
		candles[i] = models.Candle{Time: start.Add(time.Duration(i) * tf.Duration()), Close: 1.1}
	}
	return models.CandleSeries{Symbol: symbol, TimeFrame: tf, Candles: candles}, nil
}

type countingRecorder map[string]int

func (r countingRecorder) RecordFallback(provider string) { r[provider]++ }

func TestChainProvider_FirstSuccessWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", bars: 300}
	secondary := &fakeProvider{name: "secondary", bars: 300}
	chain := NewChainProvider(zerolog.Nop(), nil, primary, secondary)

	series, err := chain.Fetch(context.Background(), "EURUSD", models.TimeFrameH1, 250)

	require.NoError(t, err)
	assert.Equal(t, "primary", series.Source)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls)
}

func TestChainProvider_FallsBackInOrder(t *testing.T) {
	failing := &fakeProvider{name: "oanda", err: unavailable("oanda", "status code 503")}
	short := &fakeProvider{name: "binance", bars: 40}
	last := &fakeProvider{name: "synthetic", bars: 250}
	rec := countingRecorder{}
	chain := NewChainProvider(zerolog.Nop(), rec, failing, short, last)

	series, err := chain.Fetch(context.Background(), "EURUSD", models.TimeFrameM15, 250)

	require.NoError(t, err)
	assert.Equal(t, "synthetic", series.Source)
	assert.Equal(t, 250, series.Len())
	assert.Equal(t, countingRecorder{"oanda": 1, "binance": 1}, rec)
}

func TestChainProvider_AllFail(t *testing.T) {
	chain := NewChainProvider(zerolog.Nop(), nil,
		&fakeProvider{name: "a", err: unavailable("a", "down")},
		&fakeProvider{name: "b", bars: 10},
	)

	_, err := chain.Fetch(context.Background(), "EURUSD", models.TimeFrameD1, 250)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "returned 10 bars, need 250")
}

func TestChainProvider_StopsOnCancelledContext(t *testing.T) {
	p := &fakeProvider{name: "a", bars: 300}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChainProvider(zerolog.Nop(), nil, p).Fetch(ctx, "EURUSD", models.TimeFrameH1, 250)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, p.calls)
}

func TestSyntheticProvider(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 37, 0, 0, time.UTC)
	p := NewSyntheticProvider(func() time.Time { return now })

	series, err := p.Fetch(context.Background(), "EURUSD", models.TimeFrameM15, 250)
	require.NoError(t, err)

	assert.True(t, series.Synthetic)
	assert.Equal(t, "synthetic", series.Source)
	assert.Equal(t, 250, series.Len())
	assert.True(t, series.Ordered())
	assert.Zero(t, series.Gaps())
	assert.Equal(t, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), series.Last().Time)
	for _, c := range series.Candles {
		assert.GreaterOrEqual(t, c.High, max(c.Open, c.Close))
		assert.LessOrEqual(t, c.Low, min(c.Open, c.Close))
		assert.InDelta(t, 1.085, c.Close, 0.01)
	}

	again, err := p.Fetch(context.Background(), "EURUSD", models.TimeFrameM15, 250)
	require.NoError(t, err)
	assert.Equal(t, series, again)

	other, err := p.Fetch(context.Background(), "GBPUSD", models.TimeFrameM15, 250)
	require.NoError(t, err)
	assert.NotEqual(t, series.Candles, other.Candles)

	yen, err := p.Fetch(context.Background(), "USDJPY", models.TimeFrameH1, 60)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, yen.Last().Close, 2)
}
