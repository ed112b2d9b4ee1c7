package handlers

import (
	"context"
	"sync"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"

	"github.com/rs/zerolog"
)

const (
	DefaultScanInterval     = 30 * time.Minute
	DefaultForecastInterval = 180 * time.Minute
)

// Scanner evaluates a batch of symbols
type Scanner interface {
	Scan(ctx context.Context, symbols []string) []ScanResult
}

// SignalDispatcher acts on scored signals and pending forecasts
type SignalDispatcher interface {
	Dispatch(ctx context.Context, signal models.Signal) (Outcome, error)
	CheckForecasts(ctx context.Context) (int, error)
}

// StrategyHandler drives the periodic scan and forecast check
type StrategyHandler struct {
	scanner    Scanner
	dispatcher SignalDispatcher
	log        zerolog.Logger

	scanInterval     time.Duration
	forecastInterval time.Duration

	mu      sync.RWMutex
	symbols []string
}

func NewStrategyHandler(
	scanner Scanner,
	dispatcher SignalDispatcher,
	symbols []string,
	scanInterval, forecastInterval time.Duration,
	log zerolog.Logger,
) *StrategyHandler {
	if scanInterval <= 0 {
		scanInterval = DefaultScanInterval
	}
	if forecastInterval <= 0 {
		forecastInterval = DefaultForecastInterval
	}
	return &StrategyHandler{
		scanner:          scanner,
		dispatcher:       dispatcher,
		symbols:          append([]string(nil), symbols...),
		scanInterval:     scanInterval,
		forecastInterval: forecastInterval,
		log:              logger.Component(log, "scheduler"),
	}
}

// Start runs both loops until ctx is cancelled
func (h *StrategyHandler) Start(ctx context.Context) {
	scanTicker := time.NewTicker(h.scanInterval)
	defer scanTicker.Stop()
	forecastTicker := time.NewTicker(h.forecastInterval)
	defer forecastTicker.Stop()

	h.log.Info().
		Dur("scan_interval", h.scanInterval).
		Dur("forecast_interval", h.forecastInterval).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("scheduler stopped")
			return
		case <-scanTicker.C:
			h.ScanAll(ctx)
		case <-forecastTicker.C:
			h.CheckForecasts(ctx)
		}
	}
}

// ScanSummary counts what one pass over the symbols produced
type ScanSummary struct {
	Symbols  int
	Signals  int
	Filtered int
	Skipped  int
	Executed int
	Forecast int
}

// ScanAll evaluates every symbol and dispatches the results
func (h *StrategyHandler) ScanAll(ctx context.Context) ScanSummary {
	symbols := h.Symbols()
	summary := ScanSummary{Symbols: len(symbols)}

	for _, res := range h.scanner.Scan(ctx, symbols) {
		if res.Err != nil {
			summary.Skipped++
			continue
		}
		if !res.Signal.Direction.Tradable() {
			summary.Filtered++
		} else {
			summary.Signals++
		}

		outcome, err := h.dispatcher.Dispatch(ctx, res.Signal)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", res.Symbol).Msg("dispatch failed")
			continue
		}
		switch outcome {
		case OutcomeExecuted:
			summary.Executed++
		case OutcomeForecast:
			summary.Forecast++
		}
	}

	h.log.Info().
		Int("symbols", summary.Symbols).
		Int("signals", summary.Signals).
		Int("filtered", summary.Filtered).
		Int("skipped", summary.Skipped).
		Int("executed", summary.Executed).
		Int("forecast", summary.Forecast).
		Msg("scan complete")
	return summary
}

func (h *StrategyHandler) CheckForecasts(ctx context.Context) int {
	triggered, err := h.dispatcher.CheckForecasts(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("forecast check failed")
	}
	if triggered > 0 {
		h.log.Info().Int("triggered", triggered).Msg("forecasts triggered")
	}
	return triggered
}

func (h *StrategyHandler) Symbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.symbols...)
}

// Helper methods for handler management
func (h *StrategyHandler) AddSymbol(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.symbols {
		if s == symbol {
			return
		}
	}
	h.symbols = append(h.symbols, symbol)
}

func (h *StrategyHandler) RemoveSymbol(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.symbols {
		if s == symbol {
			h.symbols = append(h.symbols[:i], h.symbols[i+1:]...)
			return
		}
	}
}
