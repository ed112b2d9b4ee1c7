package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/broker"
	"ForexSignalBot/internal/operations/price"
	"ForexSignalBot/internal/services/risk"

	"github.com/rs/zerolog"
)

const (
	DefaultExecuteThreshold = 75
	DefaultRiskPercent      = 1.0
)

// SignalStore persists dispatched signals and pending forecasts
type SignalStore interface {
	Exists(ctx context.Context, symbol, timeframe, direction string, since time.Time) (bool, error)
	Create(ctx context.Context, record *models.SignalRecord) error
	MarkExecuted(ctx context.Context, id uint) error
	CreateForecast(ctx context.Context, record *models.ForecastRecord) error
	PendingForecastExists(ctx context.Context, symbol, timeframe, direction string) (bool, error)
	FindPendingForecasts(ctx context.Context) ([]models.ForecastRecord, error)
	MarkForecastTriggered(ctx context.Context, id uint, at time.Time) error
}

type Outcome string

const (
	OutcomeDiscarded   Outcome = "discarded"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeInFlight    Outcome = "in_flight"
	OutcomeExecuted    Outcome = "executed"
	OutcomeOrderFailed Outcome = "order_failed"
	OutcomeForecast    Outcome = "forecast"
)

type DispatcherConfig struct {
	ExecuteThreshold int
	RiskPercent      float64
	// DuplicateWindow suppresses a repeat of the same symbol, timeframe and
	// direction stored within this long
	DuplicateWindow time.Duration
}

// DuplicateWindow covers one scan interval plus half an interval of slack, so a
// signal repeated on the next scan is still inside it.
func DuplicateWindow(scanInterval time.Duration) time.Duration {
	return scanInterval + scanInterval/2
}

// Dispatcher sizes BUY/SELL signals and either executes them or parks them as
// forecasts waiting for a better entry.
type Dispatcher struct {
	store    SignalStore
	gateway  broker.Gateway
	riskGate *risk.RiskGate
	provider price.Provider
	metrics  Metrics
	now      func() time.Time
	log      zerolog.Logger
	cfg      DispatcherConfig

	// one dispatch per symbol at a time
	inFlight sync.Map
}

func NewDispatcher(
	store SignalStore,
	gateway broker.Gateway,
	riskGate *risk.RiskGate,
	provider price.Provider,
	metrics Metrics,
	now func() time.Time,
	log zerolog.Logger,
	cfg DispatcherConfig,
) *Dispatcher {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if now == nil {
		now = time.Now
	}
	if riskGate == nil {
		riskGate = risk.NewRiskGate(risk.DefaultLimits())
	}
	if cfg.ExecuteThreshold <= 0 {
		cfg.ExecuteThreshold = DefaultExecuteThreshold
	}
	if cfg.RiskPercent <= 0 {
		cfg.RiskPercent = DefaultRiskPercent
	}
	return &Dispatcher{
		store:    store,
		gateway:  gateway,
		riskGate: riskGate,
		provider: provider,
		metrics:  metrics,
		now:      now,
		log:      logger.Component(log, "dispatcher"),
		cfg:      cfg,
	}
}

// Dispatch handles one scored signal. REJECTED and NEUTRAL signals are logged
// and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, signal models.Signal) (Outcome, error) {
	if !signal.Direction.Tradable() {
		d.log.Info().
			Str("symbol", signal.Symbol).
			Str("direction", string(signal.Direction)).
			Str("reason", signal.Reason).
			Msg("signal filtered")
		return OutcomeDiscarded, nil
	}

	if _, busy := d.inFlight.LoadOrStore(signal.Symbol, true); busy {
		return OutcomeInFlight, nil
	}
	defer d.inFlight.Delete(signal.Symbol)

	if d.cfg.DuplicateWindow > 0 {
		since := d.now().UTC().Add(-d.cfg.DuplicateWindow)
		dup, err := d.store.Exists(ctx, signal.Symbol, string(signal.TimeFrame), string(signal.Direction), since)
		if err != nil {
			return "", fmt.Errorf("failed to check duplicates: %w", err)
		}
		if dup {
			d.log.Debug().Str("symbol", signal.Symbol).Msg("duplicate signal suppressed")
			return OutcomeDuplicate, nil
		}
	}

	balance, err := d.gateway.GetAccountBalance(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get balance: %w", err)
	}
	slPips := risk.StopLossPips(signal.Symbol, signal.Entry, signal.StopLoss)
	signal.LotSize = risk.CalculateLotSize(balance, d.cfg.RiskPercent, slPips, risk.DefaultPipValue)

	if signal.Confidence < d.cfg.ExecuteThreshold {
		waiting, err := d.store.PendingForecastExists(ctx, signal.Symbol, string(signal.TimeFrame), string(signal.Direction))
		if err != nil {
			return "", fmt.Errorf("failed to check forecasts: %w", err)
		}
		if waiting {
			d.log.Debug().Str("symbol", signal.Symbol).Msg("forecast already pending")
			return OutcomeDuplicate, nil
		}
		if err := d.store.CreateForecast(ctx, models.NewForecastRecord(signal)); err != nil {
			return "", fmt.Errorf("failed to save forecast: %w", err)
		}
		d.log.Info().
			Str("symbol", signal.Symbol).
			Int("confidence", signal.Confidence).
			Msg("lower confidence, saved as forecast")
		return OutcomeForecast, nil
	}

	record := models.NewSignalRecord(signal)
	if err := d.store.Create(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save signal: %w", err)
	}

	executed, err := d.gateway.PlaceOrder(ctx, orderFor(signal, "signal"))
	if err != nil || !executed {
		d.metrics.RecordOrder(string(OutcomeOrderFailed))
		d.log.Error().Err(err).Str("symbol", signal.Symbol).Msg("order not placed")
		return OutcomeOrderFailed, nil
	}
	if err := d.store.MarkExecuted(ctx, record.ID); err != nil {
		d.log.Error().Err(err).Uint("id", record.ID).Msg("failed to flag signal as executed")
	}

	d.metrics.RecordOrder(string(OutcomeExecuted))
	d.log.Info().
		Str("symbol", signal.Symbol).
		Str("direction", string(signal.Direction)).
		Int("confidence", signal.Confidence).
		Float64("lots", signal.LotSize).
		Msg("signal executed")
	return OutcomeExecuted, nil
}

// CheckForecasts places every pending forecast whose entry has been reached:
// BUY once price is at or below entry, SELL once it is at or above. A forecast
// the risk gate refuses stays pending. It returns the number triggered.
func (d *Dispatcher) CheckForecasts(ctx context.Context) (int, error) {
	pending, err := d.store.FindPendingForecasts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load forecasts: %w", err)
	}

	triggered := 0
	for _, f := range pending {
		if err := ctx.Err(); err != nil {
			return triggered, err
		}

		tf := models.TimeFrame(f.TimeFrame)
		if !tf.Valid() {
			tf = models.TimeFrameM15
		}
		series, err := d.provider.Fetch(ctx, f.Symbol, tf, 1)
		if err != nil || series.Len() == 0 {
			d.log.Error().Err(err).Str("symbol", f.Symbol).Msg("failed to price forecast")
			continue
		}
		current := series.Last().Close

		dir := models.Direction(f.Direction)
		reached := (dir == models.DirectionBuy && current <= f.Entry) ||
			(dir == models.DirectionSell && current >= f.Entry)
		if !reached {
			continue
		}

		account, err := broker.AccountState(ctx, d.gateway, f.Symbol)
		if err != nil {
			d.log.Error().Err(err).Str("symbol", f.Symbol).Msg("failed to read account state")
			continue
		}
		if ok, reason := d.riskGate.CanTrade(f.Symbol, account); !ok {
			d.log.Warn().Uint("id", f.ID).Str("symbol", f.Symbol).Str("reason", reason).Msg("forecast held by risk gate")
			continue
		}

		signal := models.Signal{
			Symbol:     f.Symbol,
			Direction:  dir,
			Entry:      f.Entry,
			StopLoss:   f.StopLoss,
			TakeProfit: f.TakeProfit,
			LotSize:    max(f.LotSize, risk.MinLot),
		}
		executed, err := d.gateway.PlaceOrder(ctx, orderFor(signal, "forecast"))
		if err != nil || !executed {
			d.metrics.RecordOrder(string(OutcomeOrderFailed))
			d.log.Error().Err(err).Uint("id", f.ID).Str("symbol", f.Symbol).Msg("forecast order not placed")
			continue
		}
		d.metrics.RecordOrder(string(OutcomeExecuted))

		if err := d.store.MarkForecastTriggered(ctx, f.ID, d.now().UTC()); err != nil {
			d.log.Error().Err(err).Uint("id", f.ID).Msg("failed to flag forecast as triggered")
			continue
		}
		triggered++
		d.log.Info().
			Uint("id", f.ID).
			Str("symbol", f.Symbol).
			Str("direction", f.Direction).
			Float64("entry", f.Entry).
			Float64("price", current).
			Msg("forecast triggered")
	}
	return triggered, nil
}

func orderFor(s models.Signal, comment string) broker.Order {
	return broker.Order{
		Symbol:     s.Symbol,
		Direction:  s.Direction,
		Entry:      s.Entry,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		Lots:       s.LotSize,
		Comment:    comment,
	}
}
