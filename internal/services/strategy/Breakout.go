package strategy

import "ForexSignalBot/internal/models"

const BreakoutStrategy = "breakout"

type BreakoutVariant struct {
	// range is tight when resistance - support is under this many ATRs
	tightRangeATR float64
	// ATR is compared against this many bars back
	atrLookback int
	targets     targets
}

func NewBreakoutVariant() *BreakoutVariant {
	return &BreakoutVariant{
		tightRangeATR: 2.0,
		atrLookback:   4,
		targets:       targets{stopLossATR: 1.5, takeProfitATR: 3.0},
	}
}

func (v *BreakoutVariant) Name() string {
	return BreakoutStrategy
}

func (v *BreakoutVariant) Timeframes() []models.TimeFrame {
	return []models.TimeFrame{models.TimeFrameH4, models.TimeFrameH1, models.TimeFrameM15}
}

// Evaluate scores an M15 close outside the Bollinger bands after a tight
// 20-bar range, rising ATR on H1 and H4, and the H1/H4 EMA20/EMA50 trend.
// Rising ATR counts for both sides.
func (v *BreakoutVariant) Evaluate(frames Frames, symbol string) models.Signal {
	if !frames.Ready(v.atrLookback+1, v.Timeframes()...) {
		return newNeutral(symbol, BreakoutStrategy, insufficientHistory)
	}

	m15 := frames[models.TimeFrameM15].Last()
	h1Frame, h4Frame := frames[models.TimeFrameH1], frames[models.TimeFrameH4]
	h1, h4 := h1Frame.Last(), h4Frame.Last()

	rangeTight := m15.ResistanceLevel-m15.SupportLevel < v.tightRangeATR*m15.ATR
	breakoutUp := m15.Close > m15.BBUpper && rangeTight
	breakoutDown := m15.Close < m15.BBLower && rangeTight

	h1ATRRising := h1.ATR > h1Frame.Back(v.atrLookback).ATR
	h4ATRRising := h4.ATR > h4Frame.Back(v.atrLookback).ATR

	buy := count(
		breakoutUp,
		h1ATRRising,
		h4ATRRising,
		h1.EMA20 > h1.EMA50,
		h4.EMA20 > h4.EMA50,
	)
	sell := count(
		breakoutDown,
		h1ATRRising,
		h4ATRRising,
		h1.EMA20 < h1.EMA50,
		h4.EMA20 < h4.EMA50,
	)

	return pointsSignal(symbol, BreakoutStrategy, "Breakout MTF", buy, sell, m15, v.targets)
}
