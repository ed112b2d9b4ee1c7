package price

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"ForexSignalBot/internal/models"
)

var syntheticBasePrices = map[string]float64{
	"EURUSD": 1.0850,
	"GBPUSD": 1.2700,
	"USDJPY": 150.00,
	"USDCHF": 0.8800,
	"USDCAD": 1.3600,
	"AUDUSD": 0.6600,
	"NZDUSD": 0.6100,
	"XAUUSD": 2300.0,
	"XAGUSD": 27.00,
}

const syntheticDefaultBase = 1.2500

// SyntheticProvider generates a deterministic uptrending series with noise.
// It is the last link of a provider chain and never fails.
type SyntheticProvider struct {
	now func() time.Time
}

func NewSyntheticProvider(now func() time.Time) *SyntheticProvider {
	if now == nil {
		now = time.Now
	}
	return &SyntheticProvider{now: now}
}

func (p *SyntheticProvider) Name() string {
	return "synthetic"
}

func (p *SyntheticProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	if err := ctx.Err(); err != nil {
		return models.CandleSeries{}, err
	}

	if minBars < 1 {
		minBars = 1
	}
	step := tf.Duration()
	if step == 0 {
		step = time.Hour
	}
	end := p.now().UTC().Truncate(step)
	start := end.Add(-time.Duration(minBars-1) * step)

	base, ok := syntheticBasePrices[symbol]
	if !ok {
		base = syntheticDefaultBase
	}
	if models.IsJPYPair(symbol) && !ok {
		base = 100
	}
	// noise and trend scale with the quote size
	scale := base / syntheticDefaultBase

	rng := rand.New(rand.NewSource(syntheticSeed(symbol, tf)))
	candles := make([]models.Candle, minBars)
	for i := range candles {
		price := base + scale*(0.00001*float64(i)+rng.NormFloat64()*0.00005)

		open := round5(price + scale*rng.NormFloat64()*0.00002)
		closePrice := round5(price + scale*rng.NormFloat64()*0.00002)
		high := round5(math.Max(open, closePrice) + scale*math.Abs(rng.NormFloat64()*0.0002))
		low := round5(math.Min(open, closePrice) - scale*math.Abs(rng.NormFloat64()*0.0002))

		candles[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * step),
			Open:   open,
			High:   math.Max(high, math.Max(open, closePrice)),
			Low:    math.Min(low, math.Min(open, closePrice)),
			Close:  closePrice,
			Volume: uint64(100 + rng.Intn(900)),
		}
	}

	return models.CandleSeries{
		Symbol:    symbol,
		TimeFrame: tf,
		Candles:   candles,
		Source:    p.Name(),
		Synthetic: true,
	}, nil
}

func syntheticSeed(symbol string, tf models.TimeFrame) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	h.Write([]byte(tf))
	return int64(h.Sum64() & math.MaxInt64)
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
