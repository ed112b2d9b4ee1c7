package strategy

import (
	"fmt"
	"math"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/services/indicators"
)

const ConfluenceStrategy = "confluence"

const (
	// D1 |ema20 - ema50| / close must exceed this to score at all
	confluenceTrendStrength = 0.001

	// AccuracyThreshold is the score either side needs to produce a signal.
	// It is tuned separately from the confidence ladder below.
	AccuracyThreshold = 5

	maxAccuracyBonus = 2
)

var confluenceWeights = map[models.TimeFrame]int{
	models.TimeFrameD1:  2,
	models.TimeFrameH4:  3,
	models.TimeFrameH1:  2,
	models.TimeFrameM15: 1,
}

var confluenceTargets = targets{stopLossATR: 1.5, takeProfitATR: 3.0}

// confidenceLadder maps the score fraction to a confidence, first match wins
var confidenceLadder = []struct {
	fraction   float64
	confidence int
}{
	{0.8, 80},
	{0.7, 70},
	{0.6, 60},
	{0.5, 50},
}

// ScoreState is the per-call accumulator of the weighted vote
type ScoreState struct {
	Buy           int
	Sell          int
	AccuracyBonus int
	MaxScore      int
}

// bucket is one timeframe's vote. Up and down are never both counted.
type bucket struct {
	timeframe models.TimeFrame
	up        bool
	down      bool
}

func (b bucket) resolve() (up, down bool) {
	if b.up && b.down {
		return false, false
	}
	return b.up, b.down
}

// Score runs the gate chain and then the weighted multi-timeframe vote. It is
// a pure function of its inputs.
func Score(frames Frames, symbol string, filter FilterVerdict, risk RiskVerdict) models.Signal {
	if !filter.InSession {
		return newRejected(symbol, ConfluenceStrategy, "Outside major trading session - avoiding low liquidity")
	}
	if filter.NewsTime {
		return newRejected(symbol, ConfluenceStrategy, "High-impact news window - avoiding volatility spike")
	}
	if !filter.SpreadOK {
		return newRejected(symbol, ConfluenceStrategy, "Execution conditions: "+filter.SpreadReason)
	}
	if !risk.OK {
		return newRejected(symbol, ConfluenceStrategy, "Risk management: "+risk.Reason)
	}

	if !frames.Ready(2, models.TimeFrames...) {
		return newNeutral(symbol, ConfluenceStrategy, insufficientHistory)
	}

	d1 := frames[models.TimeFrameD1].Last()
	m15 := frames[models.TimeFrameM15].Last()

	if !m15.SafeEntryZone {
		return newRejected(symbol, ConfluenceStrategy,
			fmt.Sprintf("S/R FILTER: Too close to key levels - avoiding breakout failure (Position: %.2f)", m15.PricePosition))
	}
	if !m15.VolatilityOK {
		return newRejected(symbol, ConfluenceStrategy,
			"VOLATILITY FILTER: Unsuitable market conditions - avoiding choppy/spike market")
	}

	if d1.Close == 0 || math.Abs(d1.EMA20-d1.EMA50)/d1.Close <= confluenceTrendStrength {
		return newNeutral(symbol, ConfluenceStrategy, "No clear D1 trend direction")
	}

	state := Tally(frames)
	return decide(symbol, state, m15)
}

// Tally computes the weighted BUY and SELL totals. Callers must have checked
// that all four frames are ready.
func Tally(frames Frames) ScoreState {
	d1 := frames[models.TimeFrameD1].Last()
	h4 := frames[models.TimeFrameH4].Last()
	m15 := frames[models.TimeFrameM15].Last()
	h1Up, h1Down := h1Momentum(frames[models.TimeFrameH1])

	buckets := []bucket{
		{
			timeframe: models.TimeFrameD1,
			up:        d1.EMA20 > d1.EMA50,
			down:      d1.EMA20 < d1.EMA50,
		},
		{
			timeframe: models.TimeFrameH4,
			up:        h4.EMA20 > h4.EMA50 && h4.EMA50 > h4.EMA200,
			down:      h4.EMA20 < h4.EMA50 && h4.EMA50 < h4.EMA200,
		},
		{
			timeframe: models.TimeFrameH1,
			up:        h1Up,
			down:      h1Down,
		},
		{
			timeframe: models.TimeFrameM15,
			up:        m15.BullishEngulfing || m15.Hammer,
			down:      m15.BearishEngulfing,
		},
	}

	state := ScoreState{AccuracyBonus: m15.AccuracyScore}
	for _, b := range buckets {
		weight := confluenceWeights[b.timeframe]
		state.MaxScore += weight

		up, down := b.resolve()
		if up {
			state.Buy += weight
		}
		if down {
			state.Sell += weight
		}
	}

	state.Buy += state.AccuracyBonus
	state.Sell += state.AccuracyBonus
	state.MaxScore += maxAccuracyBonus

	return state
}

// h1Momentum compares the last two MACD histogram bars. Without MACD history
// it falls back to RSI direction confirmed by the 50 line.
func h1Momentum(h1 *indicators.Frame) (up, down bool) {
	last := h1.Len() - 1
	cur, prev := h1.Points[last], h1.Points[last-1]

	if h1.HasMACD(last - 1) {
		return cur.MACDHist > prev.MACDHist, cur.MACDHist < prev.MACDHist
	}

	rising := cur.RSI > prev.RSI
	return rising && cur.RSI > 50, !rising && cur.RSI < 50
}

func decide(symbol string, state ScoreState, m15 indicators.Point) models.Signal {
	buyHit := state.Buy >= AccuracyThreshold
	sellHit := state.Sell >= AccuracyThreshold

	switch {
	case buyHit && !sellHit:
		if confidence := confluenceConfidence(state.Buy, state.MaxScore); confidence > 0 {
			return confluenceTargets.signal(symbol, ConfluenceStrategy, models.DirectionBuy,
				m15.Close, m15.ATR, confidence, confluenceReason(models.DirectionBuy, state.Buy, state))
		}
	case sellHit && !buyHit:
		if confidence := confluenceConfidence(state.Sell, state.MaxScore); confidence > 0 {
			return confluenceTargets.signal(symbol, ConfluenceStrategy, models.DirectionSell,
				m15.Close, m15.ATR, confidence, confluenceReason(models.DirectionSell, state.Sell, state))
		}
	case buyHit && sellHit:
		return newNeutral(symbol, ConfluenceStrategy,
			fmt.Sprintf("CONFLICTING: BUY %d/%d vs SELL %d/%d - choppy market",
				state.Buy, state.MaxScore, state.Sell, state.MaxScore))
	}

	return newNeutral(symbol, ConfluenceStrategy,
		fmt.Sprintf("Below threshold: BUY %d/%d, SELL %d/%d",
			state.Buy, state.MaxScore, state.Sell, state.MaxScore))
}

func confluenceConfidence(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	fraction := float64(score) / float64(maxScore)
	for _, step := range confidenceLadder {
		if fraction >= step.fraction {
			return step.confidence
		}
	}
	return 0
}

func confluenceReason(dir models.Direction, score int, state ScoreState) string {
	return fmt.Sprintf("MTF %s: %d/%d (%.1f%%) | Accuracy: %d/%d | S/R ok, volatility ok",
		dir, score, state.MaxScore, 100*float64(score)/float64(state.MaxScore),
		state.AccuracyBonus, maxAccuracyBonus)
}
