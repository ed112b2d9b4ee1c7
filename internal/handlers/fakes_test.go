package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/broker"
	"ForexSignalBot/internal/operations/price"
)

// tuesday 10:00 UTC is inside the London session and outside news windows
var tradingHours = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeGateway struct {
	mu sync.Mutex

	tick       *models.Tick
	tickErr    error
	info       *models.SymbolInfo
	balance    float64
	dailyPnL   float64
	open       int
	accountErr error

	orderOK  bool
	orderErr error
	orders   []broker.Order
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		tick:    &models.Tick{Bid: 1.1000, Ask: 1.1001},
		info:    &models.SymbolInfo{TradeMode: models.TradeModeFull, ContractSize: 100000, VolumeMin: 0.01, VolumeMax: 100, VolumeStep: 0.01},
		balance: 10000,
		orderOK: true,
	}
}

func (g *fakeGateway) GetTick(ctx context.Context, symbol string) (*models.Tick, error) {
	if g.tickErr != nil {
		return nil, g.tickErr
	}
	t := *g.tick
	t.Symbol = symbol
	return &t, nil
}

func (g *fakeGateway) GetSymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error) {
	return g.info, nil
}

// GetOpenPositions counts the preset positions plus every accepted order
func (g *fakeGateway) GetOpenPositions(ctx context.Context, symbol string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.open
	if g.orderOK && g.orderErr == nil {
		for _, o := range g.orders {
			if symbol == "" || o.Symbol == symbol {
				n++
			}
		}
	}
	return n, g.accountErr
}

func (g *fakeGateway) GetAccountBalance(ctx context.Context) (float64, error) {
	return g.balance, g.accountErr
}

func (g *fakeGateway) GetDailyPnL(ctx context.Context) (float64, error) {
	return g.dailyPnL, g.accountErr
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, order broker.Order) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders = append(g.orders, order)
	return g.orderOK, g.orderErr
}

// flakyProvider fails for selected symbols or timeframes and delegates the rest
type flakyProvider struct {
	next       price.Provider
	badSymbol  string
	badTF      models.TimeFrame
	shortBars  int
	fixedClose map[string]float64
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	if symbol == p.badSymbol || tf == p.badTF {
		return models.CandleSeries{}, errors.Join(price.ErrAllProvidersFailed, errors.New("feed down"))
	}
	if px, ok := p.fixedClose[symbol]; ok {
		return models.CandleSeries{
			Symbol:    symbol,
			TimeFrame: tf,
			Candles:   []models.Candle{{Time: tradingHours, Close: px}},
		}, nil
	}
	if p.shortBars > 0 {
		minBars = p.shortBars
	}
	return p.next.Fetch(ctx, symbol, tf, minBars)
}

type memoryStore struct {
	mu        sync.Mutex
	signals   []models.SignalRecord
	forecasts []models.ForecastRecord
	err       error
}

func (s *memoryStore) Exists(ctx context.Context, symbol, timeframe, direction string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.signals {
		if r.Symbol == symbol && r.TimeFrame == timeframe && r.Direction == direction && !r.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, s.err
}

func (s *memoryStore) Create(ctx context.Context, record *models.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	record.ID = uint(len(s.signals) + 1)
	record.CreatedAt = tradingHours
	s.signals = append(s.signals, *record)
	return nil
}

func (s *memoryStore) MarkExecuted(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[id-1].Executed = true
	return nil
}

func (s *memoryStore) CreateForecast(ctx context.Context, record *models.ForecastRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = uint(len(s.forecasts) + 1)
	s.forecasts = append(s.forecasts, *record)
	return nil
}

func (s *memoryStore) PendingForecastExists(ctx context.Context, symbol, timeframe, direction string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.forecasts {
		if !f.Triggered && f.Symbol == symbol && f.TimeFrame == timeframe && f.Direction == direction {
			return true, nil
		}
	}
	return false, s.err
}

func (s *memoryStore) FindPendingForecasts(ctx context.Context) ([]models.ForecastRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ForecastRecord
	for _, f := range s.forecasts {
		if !f.Triggered {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkForecastTriggered(ctx context.Context, id uint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[id-1].Triggered = true
	s.forecasts[id-1].TriggerAt = at
	return nil
}

func (s *memoryStore) FindRecent(ctx context.Context, limit int) ([]models.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SignalRecord(nil), s.signals...), s.err
}

func (s *memoryStore) FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SignalRecord
	for _, r := range s.signals {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out, s.err
}

type countingMetrics struct {
	mu      sync.Mutex
	signals map[string]int
	errors  map[string]int
	orders  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{signals: map[string]int{}, errors: map[string]int{}, orders: map[string]int{}}
}

func (m *countingMetrics) RecordSignal(symbol, strategy, direction string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[direction]++
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *countingMetrics) RecordOrder(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[outcome]++
}

func (m *countingMetrics) RecordLatency(string, time.Duration) {}
