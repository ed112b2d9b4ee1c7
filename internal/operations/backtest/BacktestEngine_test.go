package backtest

import (
	"context"
	"testing"
	"time"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/filters"
	"ForexSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var replayStart = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// scriptedAnalyzer returns one signal on its first call and NEUTRAL after
type scriptedAnalyzer struct {
	direction models.Direction
	slOffset  float64
	tpOffset  float64
	calls     int
	lastSeen  map[models.TimeFrame]int
}

func (a *scriptedAnalyzer) Timeframes(string) ([]models.TimeFrame, error) {
	return []models.TimeFrame{models.TimeFrameH1, models.TimeFrameM15}, nil
}

func (a *scriptedAnalyzer) Analyze(name string, frames strategy.Frames, symbol string, _ strategy.FilterVerdict, _ strategy.RiskVerdict) (models.Signal, error) {
	a.calls++
	a.lastSeen = make(map[models.TimeFrame]int)
	for tf, f := range frames {
		a.lastSeen[tf] = f.Len()
	}
	if a.calls > 1 {
		return models.Signal{Symbol: symbol, Direction: models.DirectionNeutral}, nil
	}

	entry := frames[models.TimeFrameM15].Series.Last().Close
	sign := 1.0
	if a.direction == models.DirectionSell {
		sign = -1.0
	}
	return models.Signal{
		Symbol:     symbol,
		Direction:  a.direction,
		Entry:      entry,
		StopLoss:   entry - sign*a.slOffset,
		TakeProfit: entry + sign*a.tpOffset,
		Confidence: 80,
		Strategy:   name,
	}, nil
}

type alwaysOpen struct{}

func (alwaysOpen) IsTradingSession(time.Time) bool { return true }
func (alwaysOpen) IsNewsTime(time.Time) bool       { return false }

func flatSeries(symbol string, tf models.TimeFrame, n int, px float64) models.CandleSeries {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{
			Time:  replayStart.Add(time.Duration(i) * tf.Duration()),
			Open:  px,
			High:  px + 0.0002,
			Low:   px - 0.0002,
			Close: px,
		}
	}
	return models.CandleSeries{Symbol: symbol, TimeFrame: tf, Candles: candles}
}

func flatHistory(n int) map[models.TimeFrame]models.CandleSeries {
	return map[models.TimeFrame]models.CandleSeries{
		models.TimeFrameM15: flatSeries("EURUSD", models.TimeFrameM15, n, 1.1),
		models.TimeFrameH1:  flatSeries("EURUSD", models.TimeFrameH1, n/4, 1.1),
	}
}

func TestEngineRun(t *testing.T) {
	ctx := context.Background()

	t.Run("take profit", func(t *testing.T) {
		history := flatHistory(80)
		history[models.TimeFrameM15].Candles[55].High = 1.1045

		analyzer := &scriptedAnalyzer{direction: models.DirectionBuy, slOffset: 0.0020, tpOffset: 0.0040}
		res, err := NewEngine(analyzer, alwaysOpen{}, zerolog.Nop()).Run(ctx, history, Config{Strategy: "scripted"})
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		trade := res.Trades[0]
		assert.Equal(t, ExitTakeProfit, trade.Reason)
		assert.Equal(t, 0.5, trade.Lots)
		assert.InDelta(t, 1.1040, trade.ExitPrice, 1e-9)
		assert.Equal(t, 200.0, trade.PnL)
		assert.Equal(t, replayStart.Add(49*15*time.Minute), trade.EntryTime)
		assert.Equal(t, replayStart.Add(55*15*time.Minute), trade.ExitTime)

		assert.Equal(t, 7, res.Evaluations)
		assert.Equal(t, 10200.0, res.FinalBalance)
		assert.Equal(t, 1.0, res.WinRate)
		assert.Equal(t, 0.0, res.MaxDrawdown)
		assert.Len(t, res.EquityCurve, 2)
	})

	t.Run("stop fills first when a bar spans both targets", func(t *testing.T) {
		history := flatHistory(80)
		bar := &history[models.TimeFrameM15].Candles[52]
		bar.High, bar.Low = 1.1050, 1.0950

		analyzer := &scriptedAnalyzer{direction: models.DirectionSell, slOffset: 0.0020, tpOffset: 0.0040}
		res, err := NewEngine(analyzer, alwaysOpen{}, zerolog.Nop()).Run(ctx, history, Config{})
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		assert.Equal(t, ExitStopLoss, res.Trades[0].Reason)
		assert.InDelta(t, 1.1020, res.Trades[0].ExitPrice, 1e-9)
		assert.Equal(t, -100.0, res.Trades[0].PnL)
		assert.Equal(t, 9900.0, res.FinalBalance)
		assert.InDelta(t, 0.01, res.MaxDrawdown, 1e-9)
		assert.Equal(t, 1, res.LosingTrades)
	})

	t.Run("open position closes at the last bar", func(t *testing.T) {
		analyzer := &scriptedAnalyzer{direction: models.DirectionBuy, slOffset: 0.0020, tpOffset: 0.0040}
		res, err := NewEngine(analyzer, alwaysOpen{}, zerolog.Nop()).Run(ctx, flatHistory(60), Config{})
		require.NoError(t, err)

		require.Len(t, res.Trades, 1)
		assert.Equal(t, ExitEndOfData, res.Trades[0].Reason)
		assert.Equal(t, 0.0, res.Trades[0].PnL)
	})

	t.Run("low confidence signals are skipped", func(t *testing.T) {
		analyzer := &scriptedAnalyzer{direction: models.DirectionBuy, slOffset: 0.0020, tpOffset: 0.0040}
		res, err := NewEngine(analyzer, alwaysOpen{}, zerolog.Nop()).Run(ctx, flatHistory(80), Config{MinConfidence: 90})
		require.NoError(t, err)
		assert.Empty(t, res.Trades)
		assert.Equal(t, 10000.0, res.FinalBalance)
	})

	t.Run("only closed candles are visible", func(t *testing.T) {
		analyzer := &scriptedAnalyzer{direction: models.DirectionBuy, slOffset: 0.0020, tpOffset: 0.0040}
		_, err := NewEngine(analyzer, alwaysOpen{}, zerolog.Nop()).Run(ctx, flatHistory(80), Config{MinConfidence: 90})
		require.NoError(t, err)

		// last evaluation is at M15 index 77, closing at 19:30
		assert.Equal(t, 78, analyzer.lastSeen[models.TimeFrameM15])
		assert.Equal(t, 19, analyzer.lastSeen[models.TimeFrameH1])
	})

	t.Run("short history", func(t *testing.T) {
		_, err := NewEngine(&scriptedAnalyzer{}, alwaysOpen{}, zerolog.Nop()).Run(ctx, flatHistory(50), Config{})
		assert.ErrorIs(t, err, ErrNotEnoughHistory)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		engine := NewEngine(strategy.NewStrategyManager(), alwaysOpen{}, zerolog.Nop())
		_, err := engine.Run(ctx, flatHistory(80), Config{Strategy: "scalper"})
		assert.ErrorIs(t, err, strategy.ErrUnknownStrategy)
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewEngine(&scriptedAnalyzer{}, alwaysOpen{}, zerolog.Nop()).Run(cancelled, flatHistory(80), Config{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReplaySyntheticHistory(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC) }
	manager := strategy.NewStrategyManager()

	history, err := FetchHistory(ctx, price.NewSyntheticProvider(now), "EURUSD", models.TimeFrames, 250, 400)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, history[models.TimeFrameM15].Len(), 651)
	assert.GreaterOrEqual(t, history[models.TimeFrameD1].Len(), 255)

	engine := NewEngine(manager, filters.NewMarketFilter(filters.DefaultConfig()), zerolog.Nop())
	for _, name := range manager.Names() {
		res, err := engine.Run(ctx, history, Config{Strategy: name})
		require.NoError(t, err, name)

		assert.Positive(t, res.Evaluations, name)
		balance := DefaultInitialBalance
		for i, trade := range res.Trades {
			balance += trade.PnL
			assert.True(t, trade.Direction.Tradable())
			assert.False(t, trade.ExitTime.Before(trade.EntryTime))
			if i > 0 {
				assert.False(t, trade.EntryTime.Before(res.Trades[i-1].ExitTime), "positions overlap")
			}
		}
		assert.InDelta(t, balance, res.FinalBalance, 1e-6, name)
		assert.Equal(t, res.TotalTrades, res.WinningTrades+res.LosingTrades)
	}
}

func TestClosedAt(t *testing.T) {
	series := flatSeries("EURUSD", models.TimeFrameH4, 10, 1.1)

	assert.Equal(t, 3, closedAt(series, replayStart.Add(12*time.Hour)).Len())
	assert.Equal(t, 2, closedAt(series, replayStart.Add(11*time.Hour)).Len())
	assert.Equal(t, 0, closedAt(series, replayStart).Len())
	assert.Equal(t, 10, closedAt(series, replayStart.Add(100*time.Hour)).Len())
}

func TestSharpeRatio(t *testing.T) {
	flat := []EquityPoint{{Balance: 100}, {Balance: 110}}
	assert.Equal(t, 0.0, sharpeRatio(flat))

	curve := []EquityPoint{{Balance: 100}, {Balance: 110}, {Balance: 99}, {Balance: 108.9}}
	// returns 0.10, -0.10, 0.10
	assert.InDelta(t, (0.1/3)/0.11547005, sharpeRatio(curve), 1e-6)
}
