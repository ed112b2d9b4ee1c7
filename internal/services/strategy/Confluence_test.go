package strategy

import (
	"math/rand"
	"testing"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/services/indicators"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	passFilter = FilterVerdict{InSession: true, SpreadOK: true, SpreadReason: "OK"}
	passRisk   = RiskVerdict{OK: true, Reason: "OK"}
)

func frameOf(tf models.TimeFrame, points ...indicators.Point) *indicators.Frame {
	return indicators.NewFrame("EURUSD", tf, points)
}

func closeAt(price float64) models.Candle {
	return models.Candle{Open: price, High: price, Low: price, Close: price}
}

// bullishFrames is the reference uptrend: every timeframe votes BUY and the
// M15 bar sits in a safe, calm zone.
func bullishFrames() Frames {
	return Frames{
		models.TimeFrameD1: frameOf(models.TimeFrameD1,
			indicators.Point{Candle: closeAt(1.1040), EMA20: 1.1045, EMA50: 1.1000},
			indicators.Point{Candle: closeAt(1.1060), EMA20: 1.1050, EMA50: 1.1000},
		),
		models.TimeFrameH4: frameOf(models.TimeFrameH4,
			indicators.Point{Candle: closeAt(1.1050)},
			indicators.Point{Candle: closeAt(1.1055), EMA20: 1.1050, EMA50: 1.1020, EMA200: 1.0950},
		),
		models.TimeFrameH1: frameOf(models.TimeFrameH1,
			indicators.Point{Candle: closeAt(1.1050), MACDHist: 0.0001, RSI: 52},
			indicators.Point{Candle: closeAt(1.1058), MACDHist: 0.0002, RSI: 55},
		),
		models.TimeFrameM15: frameOf(models.TimeFrameM15,
			indicators.Point{Candle: closeAt(1.1050)},
			indicators.Point{
				Candle:           closeAt(1.1000),
				ATR:              0.0010,
				BullishEngulfing: true,
				SafeEntryZone:    true,
				VolatilityOK:     true,
				PricePosition:    0.45,
				AccuracyScore:    2,
			},
		),
	}
}

// bearishFrames mirrors bullishFrames
func bearishFrames() Frames {
	f := bullishFrames()
	f[models.TimeFrameD1].Points[1].EMA20, f[models.TimeFrameD1].Points[1].EMA50 = 1.1000, 1.1050
	f[models.TimeFrameH4].Points[1].EMA20, f[models.TimeFrameH4].Points[1].EMA200 = 1.0950, 1.1050
	f[models.TimeFrameH1].Points[1].MACDHist = -0.0001
	m15 := &f[models.TimeFrameM15].Points[1]
	m15.BullishEngulfing, m15.BearishEngulfing = false, true
	return f
}

func TestScore_BullishConfluence(t *testing.T) {
	signal := Score(bullishFrames(), "EURUSD", passFilter, passRisk)

	assert.Equal(t, models.DirectionBuy, signal.Direction)
	assert.Equal(t, 80, signal.Confidence)
	assert.Equal(t, models.TimeFrameM15, signal.TimeFrame)
	assert.Equal(t, ConfluenceStrategy, signal.Strategy)
	assert.InDelta(t, 1.1000, signal.Entry, 1e-12)
	assert.InDelta(t, 1.0985, signal.StopLoss, 1e-9)
	assert.InDelta(t, 1.1030, signal.TakeProfit, 1e-9)
	assert.Equal(t, "MTF BUY: 10/10 (100.0%) | Accuracy: 2/2 | S/R ok, volatility ok", signal.Reason)
}

func TestScore_BearishConfluence(t *testing.T) {
	signal := Score(bearishFrames(), "EURUSD", passFilter, passRisk)

	assert.Equal(t, models.DirectionSell, signal.Direction)
	assert.Equal(t, 80, signal.Confidence)
	assert.InDelta(t, 1.1015, signal.StopLoss, 1e-9)
	assert.InDelta(t, 1.0970, signal.TakeProfit, 1e-9)
	assert.Contains(t, signal.Reason, "MTF SELL: 10/10")
}

func TestScore_UnsafeEntryIsRejected(t *testing.T) {
	frames := bullishFrames()
	frames[models.TimeFrameM15].Points[1].SafeEntryZone = false
	frames[models.TimeFrameM15].Points[1].PricePosition = 0.98

	signal := Score(frames, "EURUSD", passFilter, passRisk)

	assert.Equal(t, models.DirectionRejected, signal.Direction)
	assert.Zero(t, signal.Confidence)
	assert.Zero(t, signal.Entry)
	assert.Equal(t, "S/R FILTER: Too close to key levels - avoiding breakout failure (Position: 0.98)", signal.Reason)
}

func TestScore_GateOrder(t *testing.T) {
	unsafe := bullishFrames()
	unsafe[models.TimeFrameM15].Points[1].SafeEntryZone = false
	unsafe[models.TimeFrameM15].Points[1].VolatilityOK = false
	unsafe[models.TimeFrameD1].Points[1].EMA20 = 1.1001

	calm := bullishFrames()
	calm[models.TimeFrameM15].Points[1].VolatilityOK = false
	calm[models.TimeFrameD1].Points[1].EMA20 = 1.1001

	flat := bullishFrames()
	flat[models.TimeFrameD1].Points[1].EMA20 = 1.1001

	failRisk := RiskVerdict{Reason: "Maximum positions reached"}
	failSpread := FilterVerdict{InSession: true, SpreadReason: "Spread too wide: 3.2 > 2.5"}

	tests := []struct {
		name      string
		frames    Frames
		filter    FilterVerdict
		risk      RiskVerdict
		direction models.Direction
		reason    string
	}{
		{
			name:      "session first",
			frames:    unsafe,
			filter:    FilterVerdict{NewsTime: true},
			risk:      failRisk,
			direction: models.DirectionRejected,
			reason:    "Outside major trading session - avoiding low liquidity",
		},
		{
			name:      "news before spread",
			frames:    unsafe,
			filter:    FilterVerdict{InSession: true, NewsTime: true},
			risk:      failRisk,
			direction: models.DirectionRejected,
			reason:    "High-impact news window - avoiding volatility spike",
		},
		{
			name:      "spread before risk",
			frames:    unsafe,
			filter:    failSpread,
			risk:      failRisk,
			direction: models.DirectionRejected,
			reason:    "Execution conditions: Spread too wide: 3.2 > 2.5",
		},
		{
			name:      "risk before levels",
			frames:    unsafe,
			filter:    passFilter,
			risk:      failRisk,
			direction: models.DirectionRejected,
			reason:    "Risk management: Maximum positions reached",
		},
		{
			name:      "levels before volatility",
			frames:    unsafe,
			filter:    passFilter,
			risk:      passRisk,
			direction: models.DirectionRejected,
			reason:    "S/R FILTER: Too close to key levels - avoiding breakout failure (Position: 0.45)",
		},
		{
			name:      "volatility before trend strength",
			frames:    calm,
			filter:    passFilter,
			risk:      passRisk,
			direction: models.DirectionRejected,
			reason:    "VOLATILITY FILTER: Unsuitable market conditions - avoiding choppy/spike market",
		},
		{
			name:      "weak D1 trend",
			frames:    flat,
			filter:    passFilter,
			risk:      passRisk,
			direction: models.DirectionNeutral,
			reason:    "No clear D1 trend direction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal := Score(tt.frames, "EURUSD", tt.filter, tt.risk)
			assert.Equal(t, tt.direction, signal.Direction)
			assert.Equal(t, tt.reason, signal.Reason)
		})
	}
}

func TestScore_Decisions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(f Frames)
		direction  models.Direction
		confidence int
		reason     string
	}{
		{
			name: "conflicting votes",
			mutate: func(f Frames) {
				f[models.TimeFrameH1].Points[1].MACDHist = -0.0001
				m15 := &f[models.TimeFrameM15].Points[1]
				m15.BullishEngulfing, m15.BearishEngulfing = false, true
			},
			direction: models.DirectionNeutral,
			reason:    "CONFLICTING: BUY 7/10 vs SELL 5/10 - choppy market",
		},
		{
			name: "below threshold",
			mutate: func(f Frames) {
				f[models.TimeFrameH4].Points[1].EMA200 = 1.1030
				f[models.TimeFrameH1].Points[1].MACDHist = 0.0001
				f[models.TimeFrameM15].Points[1].BullishEngulfing = false
			},
			direction: models.DirectionNeutral,
			reason:    "Below threshold: BUY 4/10, SELL 2/10",
		},
		{
			name: "seven points reads seventy",
			mutate: func(f Frames) {
				f[models.TimeFrameH1].Points[1].MACDHist = 0.0001
				f[models.TimeFrameM15].Points[1].BullishEngulfing = false
			},
			direction:  models.DirectionBuy,
			confidence: 70,
			reason:     "MTF BUY: 7/10 (70.0%) | Accuracy: 2/2 | S/R ok, volatility ok",
		},
		{
			name: "hammer counts as bullish candle",
			mutate: func(f Frames) {
				m15 := &f[models.TimeFrameM15].Points[1]
				m15.BullishEngulfing, m15.Hammer = false, true
			},
			direction:  models.DirectionBuy,
			confidence: 80,
			reason:     "MTF BUY: 10/10 (100.0%) | Accuracy: 2/2 | S/R ok, volatility ok",
		},
		{
			name: "bullish and bearish candle cancel out",
			mutate: func(f Frames) {
				f[models.TimeFrameM15].Points[1].BearishEngulfing = true
			},
			direction:  models.DirectionBuy,
			confidence: 80,
			reason:     "MTF BUY: 9/10 (90.0%) | Accuracy: 2/2 | S/R ok, volatility ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := bullishFrames()
			tt.mutate(frames)

			signal := Score(frames, "EURUSD", passFilter, passRisk)
			assert.Equal(t, tt.direction, signal.Direction)
			assert.Equal(t, tt.confidence, signal.Confidence)
			assert.Equal(t, tt.reason, signal.Reason)
		})
	}
}

func TestScore_InsufficientHistory(t *testing.T) {
	missing := bullishFrames()
	delete(missing, models.TimeFrameH4)

	raw := bullishFrames()
	raw[models.TimeFrameH1] = &indicators.Frame{Series: raw[models.TimeFrameH1].Series}

	for name, frames := range map[string]Frames{"missing": missing, "unenriched": raw} {
		signal := Score(frames, "EURUSD", passFilter, passRisk)
		assert.Equal(t, models.DirectionNeutral, signal.Direction, name)
		assert.Equal(t, insufficientHistory, signal.Reason, name)
	}

	// Gates still come first
	signal := Score(missing, "EURUSD", FilterVerdict{}, passRisk)
	assert.Equal(t, models.DirectionRejected, signal.Direction)
}

func TestScore_Deterministic(t *testing.T) {
	frames := bullishFrames()
	first := Score(frames, "EURUSD", passFilter, passRisk)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(frames, "EURUSD", passFilter, passRisk))
	}
}

func TestH1Momentum_FallsBackToRSI(t *testing.T) {
	tests := []struct {
		name     string
		prevRSI  float64
		lastRSI  float64
		wantUp   bool
		wantDown bool
	}{
		{"rising above fifty", 52, 58, true, false},
		{"rising below fifty", 40, 45, false, false},
		{"falling below fifty", 48, 42, false, true},
		{"falling above fifty", 65, 60, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := frameOf(models.TimeFrameH1,
				indicators.Point{RSI: tt.prevRSI, MACDHist: 5},
				indicators.Point{RSI: tt.lastRSI, MACDHist: -5},
			)
			h1.MACDStart = 33

			up, down := h1Momentum(h1)
			assert.Equal(t, tt.wantUp, up)
			assert.Equal(t, tt.wantDown, down)
		})
	}
}

// Each timeframe bucket votes for at most one side, whatever the inputs
func TestTally_BucketsAreMutuallyExclusive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pick := func() float64 { return 1 + float64(rng.Intn(3))/100 }

	for i := 0; i < 500; i++ {
		frames := bullishFrames()
		d1 := &frames[models.TimeFrameD1].Points[1]
		d1.EMA20, d1.EMA50 = pick(), pick()
		h4 := &frames[models.TimeFrameH4].Points[1]
		h4.EMA20, h4.EMA50, h4.EMA200 = pick(), pick(), pick()
		frames[models.TimeFrameH1].Points[1].MACDHist = float64(rng.Intn(3)-1) / 10000
		m15 := &frames[models.TimeFrameM15].Points[1]
		m15.BullishEngulfing = rng.Intn(2) == 0
		m15.Hammer = rng.Intn(2) == 0
		m15.BearishEngulfing = rng.Intn(2) == 0
		m15.AccuracyScore = rng.Intn(3)

		state := Tally(frames)
		require.Equal(t, 10, state.MaxScore)
		base := (state.Buy - state.AccuracyBonus) + (state.Sell - state.AccuracyBonus)
		assert.LessOrEqual(t, base, 8, "iteration %d", i)
		assert.GreaterOrEqual(t, state.Buy, state.AccuracyBonus)
		assert.GreaterOrEqual(t, state.Sell, state.AccuracyBonus)
	}
}

func TestConfluenceConfidence(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{10, 80}, {8, 80}, {7, 70}, {6, 60}, {5, 50}, {4, 0}, {0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, confluenceConfidence(tt.score, 10), "score %d", tt.score)
	}
	assert.Zero(t, confluenceConfidence(5, 0))
}
