package broker

import (
	"context"
	"errors"

	"ForexSignalBot/internal/models"
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrInvalidOrder  = errors.New("invalid order")
)

// Order is a market order with protective levels attached
type Order struct {
	Symbol     string
	Direction  models.Direction
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Lots       float64
	Comment    string
}

// Gateway is the execution side of a broker connection. Implementations are a
// single shared handle and must be safe for concurrent use.
type Gateway interface {
	GetTick(ctx context.Context, symbol string) (*models.Tick, error)
	GetSymbolInfo(ctx context.Context, symbol string) (*models.SymbolInfo, error)
	// GetOpenPositions counts open positions, for every symbol when symbol is empty
	GetOpenPositions(ctx context.Context, symbol string) (int, error)
	GetAccountBalance(ctx context.Context) (float64, error)
	GetDailyPnL(ctx context.Context) (float64, error)
	PlaceOrder(ctx context.Context, order Order) (bool, error)
}

// AccountState collects the snapshot the risk gate needs for one symbol
func AccountState(ctx context.Context, g Gateway, symbol string) (models.AccountState, error) {
	balance, err := g.GetAccountBalance(ctx)
	if err != nil {
		return models.AccountState{}, err
	}
	daily, err := g.GetDailyPnL(ctx)
	if err != nil {
		return models.AccountState{}, err
	}
	open, err := g.GetOpenPositions(ctx, "")
	if err != nil {
		return models.AccountState{}, err
	}
	bySymbol, err := g.GetOpenPositions(ctx, symbol)
	if err != nil {
		return models.AccountState{}, err
	}
	return models.AccountState{
		Balance:         balance,
		DailyPnL:        daily,
		OpenPositions:   open,
		SymbolPositions: bySymbol,
	}, nil
}
