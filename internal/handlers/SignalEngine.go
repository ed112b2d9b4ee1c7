package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/broker"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/filters"
	"ForexSignalBot/internal/services/indicators"
	"ForexSignalBot/internal/services/risk"
	"ForexSignalBot/internal/services/strategy"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrInsufficientHistory means a timeframe came back too short to enrich. The
// symbol is skipped rather than scored on partial data.
var ErrInsufficientHistory = errors.New("insufficient history for MTF analysis")

const (
	DefaultMinBars     = 250
	DefaultScanWorkers = 4
)

// Metrics is what the engine and dispatcher report to
type Metrics interface {
	RecordSignal(symbol, strategy, direction string)
	RecordError(kind string)
	RecordOrder(outcome string)
	RecordLatency(op string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignal(string, string, string) {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordOrder(string)                  {}
func (nopMetrics) RecordLatency(string, time.Duration) {}

type EngineConfig struct {
	MinBars int
	Workers int
}

// SignalEngine evaluates one symbol end to end: fetch every timeframe, enrich,
// read the market filter and risk gate, then score.
type SignalEngine struct {
	provider   price.Provider
	gateway    broker.Gateway
	filter     *filters.MarketFilter
	riskGate   *risk.RiskGate
	strategies *strategy.StrategyManager
	metrics    Metrics
	now        func() time.Time
	log        zerolog.Logger

	minBars int
	workers int
}

func NewSignalEngine(
	provider price.Provider,
	gateway broker.Gateway,
	filter *filters.MarketFilter,
	riskGate *risk.RiskGate,
	strategies *strategy.StrategyManager,
	metrics Metrics,
	now func() time.Time,
	log zerolog.Logger,
	cfg EngineConfig,
) *SignalEngine {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	if cfg.MinBars < indicators.MinimumCandles {
		cfg.MinBars = DefaultMinBars
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultScanWorkers
	}
	return &SignalEngine{
		provider:   provider,
		gateway:    gateway,
		filter:     filter,
		riskGate:   riskGate,
		strategies: strategies,
		metrics:    metrics,
		now:        now,
		log:        logger.Component(log, "signal_engine"),
		minBars:    cfg.MinBars,
		workers:    cfg.Workers,
	}
}

// Strategies lists the strategy names the engine can run
func (e *SignalEngine) Strategies() []string {
	return e.strategies.Names()
}

// Evaluate runs the confluence scorer for one symbol
func (e *SignalEngine) Evaluate(ctx context.Context, symbol string) (models.Signal, error) {
	return e.EvaluateStrategy(ctx, symbol, strategy.ConfluenceStrategy)
}

// EvaluateStrategy runs the named strategy through the same fetch and enrich
// path. Only the confluence scorer reads the filter and risk verdicts.
func (e *SignalEngine) EvaluateStrategy(ctx context.Context, symbol, name string) (models.Signal, error) {
	start := time.Now()
	defer func() { e.metrics.RecordLatency("evaluate", time.Since(start)) }()

	if name == "" {
		name = strategy.ConfluenceStrategy
	}
	timeframes, err := e.strategies.Timeframes(name)
	if err != nil {
		return models.Signal{}, err
	}

	frames, err := e.loadFrames(ctx, symbol, timeframes)
	if err != nil {
		e.metrics.RecordError(errorKind(err))
		return models.Signal{}, err
	}

	var filterVerdict strategy.FilterVerdict
	var riskVerdict strategy.RiskVerdict
	if name == strategy.ConfluenceStrategy {
		filterVerdict = e.filterVerdict(ctx, symbol)
		riskVerdict, err = e.riskVerdict(ctx, symbol)
		if err != nil {
			e.metrics.RecordError("account")
			return models.Signal{}, err
		}
	}

	signal, err := e.strategies.Analyze(name, frames, symbol, filterVerdict, riskVerdict)
	if err != nil {
		return models.Signal{}, err
	}

	e.metrics.RecordSignal(symbol, signal.Strategy, string(signal.Direction))
	return signal, nil
}

// loadFrames fetches every timeframe concurrently, then enriches them in
// parallel. Any failed or short timeframe aborts the symbol.
func (e *SignalEngine) loadFrames(ctx context.Context, symbol string, timeframes []models.TimeFrame) (strategy.Frames, error) {
	series := make([]models.CandleSeries, len(timeframes))

	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range timeframes {
		g.Go(func() error {
			s, err := e.provider.Fetch(gctx, symbol, tf, e.minBars)
			if err != nil {
				return fmt.Errorf("fetch %s %s: %w", symbol, tf, err)
			}
			if s.Len() < indicators.MinimumCandles {
				return fmt.Errorf("%w: %s %s has %d bars", ErrInsufficientHistory, symbol, tf, s.Len())
			}
			series[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enriched := make([]*indicators.Frame, len(timeframes))
	var eg errgroup.Group
	for i := range series {
		eg.Go(func() error {
			enriched[i] = indicators.Enrich(series[i])
			return nil
		})
	}
	_ = eg.Wait()

	frames := make(strategy.Frames, len(timeframes))
	for i, tf := range timeframes {
		frames[tf] = enriched[i]
	}
	return frames, nil
}

func (e *SignalEngine) filterVerdict(ctx context.Context, symbol string) strategy.FilterVerdict {
	now := e.now().UTC()

	tick, err := e.gateway.GetTick(ctx, symbol)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("no tick")
		tick = nil
	}
	info, err := e.gateway.GetSymbolInfo(ctx, symbol)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("no symbol info")
		info = nil
	}

	spreadOK, reason := e.filter.CheckSpreadConditions(symbol, tick, info)
	return strategy.FilterVerdict{
		InSession:    e.filter.IsTradingSession(now),
		NewsTime:     e.filter.IsNewsTime(now),
		SpreadOK:     spreadOK,
		SpreadReason: reason,
	}
}

func (e *SignalEngine) riskVerdict(ctx context.Context, symbol string) (strategy.RiskVerdict, error) {
	state, err := broker.AccountState(ctx, e.gateway, symbol)
	if err != nil {
		return strategy.RiskVerdict{}, fmt.Errorf("failed to read account state: %w", err)
	}
	ok, reason := e.riskGate.CanTrade(symbol, state)
	return strategy.RiskVerdict{OK: ok, Reason: reason}, nil
}

// ScanResult is one symbol's outcome in a scan. Err is set when the symbol
// was skipped.
type ScanResult struct {
	Symbol string
	Signal models.Signal
	Err    error
}

// Scan evaluates symbols concurrently with a bounded worker count. A failure
// on one symbol never affects the others. Results keep the input order.
func (e *SignalEngine) Scan(ctx context.Context, symbols []string) []ScanResult {
	start := time.Now()
	results := make([]ScanResult, len(symbols))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			signal, err := e.Evaluate(ctx, symbol)
			results[i] = ScanResult{Symbol: symbol, Signal: signal, Err: err}
			if err != nil {
				e.log.Error().Err(err).Str("symbol", symbol).Msg("symbol skipped")
			}
			return nil
		})
	}
	_ = g.Wait()

	e.metrics.RecordLatency("scan", time.Since(start))
	return results
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, price.ErrAllProvidersFailed), errors.Is(err, price.ErrProviderUnavailable):
		return "provider"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "fetch"
	}
}
