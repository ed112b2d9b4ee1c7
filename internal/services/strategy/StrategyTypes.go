package strategy

import (
	"errors"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/services/indicators"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Frames holds one enriched frame per timeframe for a single symbol
type Frames map[models.TimeFrame]*indicators.Frame

// Ready reports whether every listed timeframe is present, enriched and long
// enough to look minBars back.
func (f Frames) Ready(minBars int, timeframes ...models.TimeFrame) bool {
	for _, tf := range timeframes {
		frame, ok := f[tf]
		if !ok || frame == nil || !frame.Enriched || frame.Len() < minBars {
			return false
		}
	}
	return true
}

// FilterVerdict is the market condition filter's reading for one evaluation
type FilterVerdict struct {
	InSession    bool
	NewsTime     bool
	SpreadOK     bool
	SpreadReason string
}

// RiskVerdict is the risk gate's reading for one evaluation
type RiskVerdict struct {
	OK     bool
	Reason string
}

// Variant is a points-based scorer that only looks at indicator frames
type Variant interface {
	Name() string
	Timeframes() []models.TimeFrame
	Evaluate(frames Frames, symbol string) models.Signal
}

const insufficientHistory = "Insufficient history for MTF analysis"

// Helper functions for non-tradable results
func newRejected(symbol, strategy, reason string) models.Signal {
	return models.Signal{
		Symbol:    symbol,
		TimeFrame: models.TimeFrameM15,
		Direction: models.DirectionRejected,
		Reason:    reason,
		Strategy:  strategy,
	}
}

func newNeutral(symbol, strategy, reason string) models.Signal {
	return models.Signal{
		Symbol:    symbol,
		TimeFrame: models.TimeFrameM15,
		Direction: models.DirectionNeutral,
		Reason:    reason,
		Strategy:  strategy,
	}
}

// targets sets ATR based stop loss and take profit around the entry. Levels
// sit below the entry for BUY and above it for SELL.
type targets struct {
	stopLossATR   float64
	takeProfitATR float64
}

func (t targets) signal(symbol, strategy string, dir models.Direction, entry, atr float64, confidence int, reason string) models.Signal {
	sign := 1.0
	if dir == models.DirectionSell {
		sign = -1.0
	}
	return models.Signal{
		Symbol:     symbol,
		TimeFrame:  models.TimeFrameM15,
		Direction:  dir,
		Entry:      entry,
		StopLoss:   entry - sign*t.stopLossATR*atr,
		TakeProfit: entry + sign*t.takeProfitATR*atr,
		Confidence: confidence,
		Reason:     reason,
		Strategy:   strategy,
	}
}
