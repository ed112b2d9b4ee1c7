package strategy

import (
	"math"

	"ForexSignalBot/internal/models"
)

const TrendStrategy = "trend"

type TrendVariant struct {
	// D1 |ema20 - ema50| / close must exceed this
	minTrendStrength float64
	targets          targets
}

func NewTrendVariant() *TrendVariant {
	return &TrendVariant{
		minTrendStrength: 0.002,
		targets:          targets{stopLossATR: 1.5, takeProfitATR: 3.0},
	}
}

func (v *TrendVariant) Name() string {
	return TrendStrategy
}

func (v *TrendVariant) Timeframes() []models.TimeFrame {
	return models.TimeFrames
}

// Evaluate scores one point each for D1 EMA trend, H4 EMA stack, H1 MACD
// direction and an M15 reversal candle.
func (v *TrendVariant) Evaluate(frames Frames, symbol string) models.Signal {
	if !frames.Ready(2, v.Timeframes()...) {
		return newNeutral(symbol, TrendStrategy, insufficientHistory)
	}

	d1 := frames[models.TimeFrameD1].Last()
	h4 := frames[models.TimeFrameH4].Last()
	h1 := frames[models.TimeFrameH1]
	m15 := frames[models.TimeFrameM15].Last()

	if d1.Close == 0 || math.Abs(d1.EMA20-d1.EMA50)/d1.Close <= v.minTrendStrength {
		return newNeutral(symbol, TrendStrategy, "No clear D1 trend direction")
	}

	h1Hist, h1PrevHist := h1.Last().MACDHist, h1.Back(1).MACDHist
	bullCandle, bearCandle := bucket{up: m15.BullishEngulfing || m15.Hammer, down: m15.BearishEngulfing}.resolve()

	buy := count(
		d1.EMA20 > d1.EMA50,
		h4.EMA20 > h4.EMA50 && h4.EMA50 > h4.EMA200,
		h1Hist > h1PrevHist,
		bullCandle,
	)
	sell := count(
		d1.EMA20 < d1.EMA50,
		h4.EMA20 < h4.EMA50 && h4.EMA50 < h4.EMA200,
		h1Hist < h1PrevHist,
		bearCandle,
	)

	return pointsSignal(symbol, TrendStrategy, "Trend strategy confluence", buy, sell, m15, v.targets)
}
