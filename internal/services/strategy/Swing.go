package strategy

import "ForexSignalBot/internal/models"

const SwingStrategy = "swing"

type SwingVariant struct {
	oversold   float64
	overbought float64
	targets    targets
}

func NewSwingVariant() *SwingVariant {
	return &SwingVariant{
		oversold:   30,
		overbought: 70,
		targets:    targets{stopLossATR: 1.2, takeProfitATR: 2.4},
	}
}

func (v *SwingVariant) Name() string {
	return SwingStrategy
}

// Timeframes are M15 for entry and H1 for the trend filter
func (v *SwingVariant) Timeframes() []models.TimeFrame {
	return []models.TimeFrame{models.TimeFrameH1, models.TimeFrameM15}
}

// Evaluate looks for an M15 RSI extreme, a stochastic cross and a reversal
// candle in the direction of the H1 SMA50/SMA200 trend.
func (v *SwingVariant) Evaluate(frames Frames, symbol string) models.Signal {
	if !frames.Ready(2, v.Timeframes()...) {
		return newNeutral(symbol, SwingStrategy, insufficientHistory)
	}

	m15Frame := frames[models.TimeFrameM15]
	m15, m15Prev := m15Frame.Last(), m15Frame.Back(1)
	h1 := frames[models.TimeFrameH1].Last()

	crossUp := m15Prev.StochK < m15Prev.StochD && m15.StochK > m15.StochD
	crossDown := m15Prev.StochK > m15Prev.StochD && m15.StochK < m15.StochD
	bullCandle, bearCandle := bucket{up: m15.BullishEngulfing || m15.Hammer, down: m15.BearishEngulfing}.resolve()

	buy := count(
		m15.RSI < v.oversold,
		crossUp,
		bullCandle,
		h1.SMA50 > h1.SMA200,
	)
	sell := count(
		m15.RSI > v.overbought,
		crossDown,
		bearCandle,
		h1.SMA50 < h1.SMA200,
	)

	return pointsSignal(symbol, SwingStrategy, "Swing MTF", buy, sell, m15, v.targets)
}
