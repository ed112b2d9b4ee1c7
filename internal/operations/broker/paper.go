package broker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"

	"github.com/rs/zerolog"
)

const (
	paperContractSize = 100000
	paperVolumeMin    = 0.01
	paperVolumeMax    = 100
	paperVolumeStep   = 0.01
)

// CandleSource supplies the latest candles the paper gateway quotes from
type CandleSource interface {
	Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error)
}

type PaperConfig struct {
	Symbols           []string
	InitialBalance    float64
	SpreadPips        map[string]float64
	DefaultSpreadPips float64
}

// PaperGateway fills orders against the latest M15 close plus a fixed spread
// and keeps positions in memory. Every call holds the gateway lock.
type PaperGateway struct {
	mu sync.Mutex

	source  CandleSource
	symbols map[string]bool
	spreads map[string]float64
	spread  float64

	balance   float64
	dailyPnL  float64
	day       string
	positions []*models.Position
	nextID    uint

	now func() time.Time
	log zerolog.Logger
}

func NewPaperGateway(source CandleSource, cfg PaperConfig, now func() time.Time, log zerolog.Logger) *PaperGateway {
	if now == nil {
		now = time.Now
	}
	g := &PaperGateway{
		source:  source,
		symbols: make(map[string]bool, len(cfg.Symbols)),
		spreads: make(map[string]float64, len(cfg.SpreadPips)),
		spread:  cfg.DefaultSpreadPips,
		balance: cfg.InitialBalance,
		now:     now,
		log:     logger.Component(log, "paper_gateway"),
	}
	for _, s := range cfg.Symbols {
		g.symbols[strings.ToUpper(s)] = true
	}
	for s, pips := range cfg.SpreadPips {
		g.spreads[strings.ToUpper(s)] = pips
	}
	if g.spread <= 0 {
		g.spread = 1.0
	}
	return g
}

func (g *PaperGateway) known(symbol string) bool {
	return g.symbols[strings.ToUpper(symbol)]
}

func (g *PaperGateway) GetTick(ctx context.Context, symbol string) (*models.Tick, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tick(ctx, symbol)
}

func (g *PaperGateway) tick(ctx context.Context, symbol string) (*models.Tick, error) {
	if !g.known(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	series, err := g.source.Fetch(ctx, symbol, models.TimeFrameM15, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("failed to get quote for %s: empty series", symbol)
	}

	spread, ok := g.spreads[strings.ToUpper(symbol)]
	if !ok {
		spread = g.spread
	}
	last := series.Last()
	return &models.Tick{
		Symbol: symbol,
		Bid:    last.Close,
		Ask:    last.Close + spread*models.PipSize(symbol),
		Time:   last.Time,
	}, nil
}

func (g *PaperGateway) GetSymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error) {
	if !g.known(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return &models.SymbolInfo{
		Symbol:       symbol,
		TradeMode:    models.TradeModeFull,
		ContractSize: paperContractSize,
		VolumeMin:    paperVolumeMin,
		VolumeMax:    paperVolumeMax,
		VolumeStep:   paperVolumeStep,
	}, nil
}

func (g *PaperGateway) GetOpenPositions(ctx context.Context, symbol string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, p := range g.positions {
		if p.Status != models.PositionStatusOpen {
			continue
		}
		if symbol == "" || strings.EqualFold(p.Symbol, symbol) {
			count++
		}
	}
	return count, nil
}

func (g *PaperGateway) GetAccountBalance(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}

// GetDailyPnL returns realized P&L since 00:00 UTC
func (g *PaperGateway) GetDailyPnL(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDay()
	return g.dailyPnL, nil
}

func (g *PaperGateway) rollDay() {
	today := g.now().UTC().Format(time.DateOnly)
	if today != g.day {
		g.day = today
		g.dailyPnL = 0
	}
}

// PlaceOrder opens a position at the current ask for BUY or bid for SELL
func (g *PaperGateway) PlaceOrder(ctx context.Context, order Order) (bool, error) {
	if !order.Direction.Tradable() || order.Lots <= 0 {
		return false, fmt.Errorf("%w: %s %s %.2f lots", ErrInvalidOrder, order.Symbol, order.Direction, order.Lots)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	tick, err := g.tick(ctx, order.Symbol)
	if err != nil {
		return false, err
	}

	price := tick.Ask
	if order.Direction == models.DirectionSell {
		price = tick.Bid
	}

	g.nextID++
	position := &models.Position{
		ID:              g.nextID,
		Symbol:          order.Symbol,
		Side:            order.Direction,
		Lots:            math.Min(math.Max(order.Lots, paperVolumeMin), paperVolumeMax),
		EntryPrice:      price,
		StopLossPrice:   order.StopLoss,
		TakeProfitPrice: order.TakeProfit,
		OpenTime:        g.now().UTC(),
		Status:          models.PositionStatusOpen,
	}
	g.positions = append(g.positions, position)

	g.log.Info().
		Uint("id", position.ID).
		Str("symbol", position.Symbol).
		Str("side", string(position.Side)).
		Float64("lots", position.Lots).
		Float64("price", price).
		Str("comment", order.Comment).
		Msg("paper order filled")

	return true, nil
}

// Positions returns a copy of every position, open and closed
func (g *PaperGateway) Positions() []models.Position {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]models.Position, len(g.positions))
	for i, p := range g.positions {
		out[i] = *p
	}
	return out
}

// MonitorPositions closes positions whose stop loss or take profit was hit
func (g *PaperGateway) MonitorPositions(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.CheckPositions(ctx); err != nil {
				g.log.Error().Err(err).Msg("failed to check positions")
			}
		}
	}
}

// CheckPositions runs one stop loss / take profit pass over open positions
func (g *PaperGateway) CheckPositions(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.positions {
		if p.Status != models.PositionStatusOpen {
			continue
		}
		tick, err := g.tick(ctx, p.Symbol)
		if err != nil {
			g.log.Warn().Err(err).Uint("id", p.ID).Msg("failed to price position")
			continue
		}

		// longs exit on the bid, shorts on the ask
		shouldClose := false
		exit := tick.Bid
		if p.Side == models.DirectionBuy {
			shouldClose = exit >= p.TakeProfitPrice || exit <= p.StopLossPrice
		} else {
			exit = tick.Ask
			shouldClose = exit <= p.TakeProfitPrice || exit >= p.StopLossPrice
		}
		if shouldClose {
			g.closePosition(p, exit)
		}
	}
	return nil
}

func (g *PaperGateway) closePosition(p *models.Position, exit float64) {
	pnl := positionPnL(p, exit)

	p.CloseTime = g.now().UTC()
	p.Status = models.PositionStatusClosed
	p.PnL = pnl

	g.rollDay()
	g.balance += pnl
	g.dailyPnL += pnl

	g.log.Info().
		Uint("id", p.ID).
		Str("symbol", p.Symbol).
		Str("side", string(p.Side)).
		Float64("entry", p.EntryPrice).
		Float64("exit", exit).
		Float64("pnl", pnl).
		Msg("paper position closed")
}

// positionPnL is in account currency. Pairs not quoted in USD are converted
// at the exit price.
func positionPnL(p *models.Position, exit float64) float64 {
	move := exit - p.EntryPrice
	if p.Side == models.DirectionSell {
		move = -move
	}
	pnl := move * p.Lots * paperContractSize
	if !strings.HasSuffix(strings.ToUpper(p.Symbol), "USD") && exit > 0 {
		pnl /= exit
	}
	return math.Round(pnl*100) / 100
}
