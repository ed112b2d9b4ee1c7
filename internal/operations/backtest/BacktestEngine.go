package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/indicators"
	"ForexSignalBot/internal/services/risk"
	"ForexSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var ErrNotEnoughHistory = errors.New("not enough M15 history to replay")

// Analyzer is the strategy router the replay drives
type Analyzer interface {
	Analyze(name string, frames strategy.Frames, symbol string, filter strategy.FilterVerdict, riskVerdict strategy.RiskVerdict) (models.Signal, error)
	Timeframes(name string) ([]models.TimeFrame, error)
}

// SessionFilter supplies the time based gates. Spread is not replayed.
type SessionFilter interface {
	IsTradingSession(now time.Time) bool
	IsNewsTime(now time.Time) bool
}

// Engine replays stored candles bar by bar through a strategy. Each
// evaluation only sees candles that had closed at that moment.
type Engine struct {
	analyzer Analyzer
	filter   SessionFilter
	pipeline *indicators.Pipeline
	log      zerolog.Logger
}

func NewEngine(analyzer Analyzer, filter SessionFilter, log zerolog.Logger) *Engine {
	return &Engine{
		analyzer: analyzer,
		filter:   filter,
		pipeline: indicators.NewPipeline(),
		log:      logger.Component(log, "backtest"),
	}
}

// run holds the mutable state of one replay
type run struct {
	cfg         Config
	symbol      string
	balance     float64
	open        *Trade
	openIndex   int
	trades      []Trade
	equityCurve []EquityPoint
	evaluations int
}

// Run replays history, which must hold an M15 series plus every frame the
// strategy needs. One position is open at a time.
func (e *Engine) Run(ctx context.Context, history map[models.TimeFrame]models.CandleSeries, cfg Config) (*Results, error) {
	cfg = cfg.withDefaults()

	timeframes, err := e.analyzer.Timeframes(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	clock, ok := history[models.TimeFrameM15]
	if !ok || clock.Len() <= indicators.MinimumCandles {
		return nil, fmt.Errorf("%w: have %d bars, need more than %d",
			ErrNotEnoughHistory, clock.Len(), indicators.MinimumCandles)
	}

	r := &run{
		cfg:     cfg,
		symbol:  clock.Symbol,
		balance: cfg.InitialBalance,
	}
	start := indicators.MinimumCandles - 1
	r.equityCurve = append(r.equityCurve, EquityPoint{Timestamp: clock.Candles[start].Time, Balance: r.balance})

	e.log.Info().
		Str("symbol", r.symbol).
		Str("strategy", cfg.Strategy).
		Int("bars", clock.Len()-start).
		Msg("starting replay")

	for i := start; i < clock.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar := clock.Candles[i]

		if r.open != nil {
			if i > r.openIndex {
				if exit, reason, hit := exitPrice(r.open, bar); hit {
					r.close(exit, bar.Time, reason)
				}
			}
			continue
		}

		if (i-start)%cfg.Step != 0 {
			continue
		}

		asOf := bar.Time.Add(models.TimeFrameM15.Duration())
		frames := e.framesAt(history, timeframes, asOf, cfg.Lookback)
		filter := strategy.FilterVerdict{
			InSession: e.filter.IsTradingSession(asOf),
			NewsTime:  e.filter.IsNewsTime(asOf),
			SpreadOK:  true,
		}

		signal, err := e.analyzer.Analyze(cfg.Strategy, frames, r.symbol, filter, strategy.RiskVerdict{OK: true})
		if err != nil {
			return nil, err
		}
		r.evaluations++

		if !signal.Direction.Tradable() || signal.Confidence < cfg.MinConfidence {
			continue
		}
		r.enter(signal, bar.Time, i)
	}

	if r.open != nil {
		last := clock.Last()
		r.close(last.Close, last.Time, ExitEndOfData)
	}

	results := r.results()
	e.log.Info().
		Str("symbol", r.symbol).
		Int("trades", results.TotalTrades).
		Float64("win_rate", results.WinRate).
		Float64("final_balance", results.FinalBalance).
		Msg("replay finished")

	return results, nil
}

// framesAt enriches the closed part of each series as of asOf
func (e *Engine) framesAt(history map[models.TimeFrame]models.CandleSeries, timeframes []models.TimeFrame, asOf time.Time, lookback int) strategy.Frames {
	frames := make(strategy.Frames, len(timeframes))
	for _, tf := range timeframes {
		series, ok := history[tf]
		if !ok {
			continue
		}
		frames[tf] = e.pipeline.Enrich(closedAt(series, asOf).Tail(lookback))
	}
	return frames
}

// closedAt returns the candles whose interval ended at or before asOf
func closedAt(series models.CandleSeries, asOf time.Time) models.CandleSeries {
	step := series.TimeFrame.Duration()
	cut := sort.Search(len(series.Candles), func(i int) bool {
		return series.Candles[i].Time.Add(step).After(asOf)
	})
	out := series
	out.Candles = series.Candles[:cut]
	return out
}

// exitPrice checks a bar against the targets. When one bar spans both, the
// stop is assumed to fill first.
func exitPrice(t *Trade, bar models.Candle) (float64, string, bool) {
	if t.Direction == models.DirectionBuy {
		if bar.Low <= t.StopLoss {
			return t.StopLoss, ExitStopLoss, true
		}
		if bar.High >= t.TakeProfit {
			return t.TakeProfit, ExitTakeProfit, true
		}
		return 0, "", false
	}

	if bar.High >= t.StopLoss {
		return t.StopLoss, ExitStopLoss, true
	}
	if bar.Low <= t.TakeProfit {
		return t.TakeProfit, ExitTakeProfit, true
	}
	return 0, "", false
}

func (r *run) enter(signal models.Signal, at time.Time, index int) {
	slPips := risk.StopLossPips(signal.Symbol, signal.Entry, signal.StopLoss)
	r.open = &Trade{
		Symbol:     signal.Symbol,
		Strategy:   signal.Strategy,
		Direction:  signal.Direction,
		EntryTime:  at,
		EntryPrice: signal.Entry,
		Lots:       risk.CalculateLotSize(r.balance, r.cfg.RiskPercent, slPips, risk.DefaultPipValue),
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		Confidence: signal.Confidence,
	}
	r.openIndex = index
}

func (r *run) close(exit float64, at time.Time, reason string) {
	t := *r.open
	t.ExitPrice = exit
	t.ExitTime = at
	t.Reason = reason
	t.PnL = tradePnL(t)

	r.balance += t.PnL
	r.trades = append(r.trades, t)
	r.equityCurve = append(r.equityCurve, EquityPoint{Timestamp: at, Balance: r.balance})
	r.open = nil
}

// tradePnL values the move in pips at the standard pip value per lot
func tradePnL(t Trade) float64 {
	move := t.ExitPrice - t.EntryPrice
	if t.Direction == models.DirectionSell {
		move = -move
	}
	pips := move / models.PipSize(t.Symbol)
	return decimal.NewFromFloat(pips * risk.DefaultPipValue * t.Lots).Round(2).InexactFloat64()
}

func (r *run) results() *Results {
	res := &Results{
		Symbol:       r.symbol,
		Strategy:     r.cfg.Strategy,
		Evaluations:  r.evaluations,
		FinalBalance: r.balance,
		Trades:       r.trades,
		EquityCurve:  r.equityCurve,
	}
	if len(r.trades) == 0 {
		return res
	}

	totalPnL := 0.0
	for _, t := range r.trades {
		if t.PnL > 0 {
			res.WinningTrades++
		} else {
			res.LosingTrades++
		}
		totalPnL += t.PnL
	}
	res.TotalTrades = len(r.trades)
	res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
	res.AveragePnL = totalPnL / float64(res.TotalTrades)
	res.MaxDrawdown = maxDrawdown(r.equityCurve)
	res.SharpeRatio = sharpeRatio(r.equityCurve)
	return res
}

// maxDrawdown is the largest peak to trough fall as a fraction of the peak
func maxDrawdown(curve []EquityPoint) float64 {
	worst := 0.0
	peak := math.Inf(-1)
	for _, p := range curve {
		peak = max(peak, p.Balance)
		if peak > 0 {
			worst = max(worst, (peak-p.Balance)/peak)
		}
	}
	return worst
}

// sharpeRatio is mean over standard deviation of per trade returns, not
// annualised
func sharpeRatio(curve []EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if prev := curve[i-1].Balance; prev != 0 {
			returns = append(returns, (curve[i].Balance-prev)/prev)
		}
	}
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 {
		return 0
	}
	return mean / std
}

// FetchHistory loads enough candles per timeframe to replay replayBars M15
// bars with a full lookback window on every frame.
func FetchHistory(ctx context.Context, provider price.Provider, symbol string, timeframes []models.TimeFrame, lookback, replayBars int) (map[models.TimeFrame]models.CandleSeries, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	span := time.Duration(replayBars) * models.TimeFrameM15.Duration()

	needed := []models.TimeFrame{models.TimeFrameM15}
	for _, tf := range timeframes {
		if tf != models.TimeFrameM15 {
			needed = append(needed, tf)
		}
	}
	series := make([]models.CandleSeries, len(needed))

	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range needed {
		bars := lookback + int(span/tf.Duration()) + 1
		g.Go(func() error {
			s, err := provider.Fetch(gctx, symbol, tf, bars)
			if err != nil {
				return fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	history := make(map[models.TimeFrame]models.CandleSeries, len(needed))
	for i, tf := range needed {
		history[tf] = series[i]
	}
	return history, nil
}
