package models

import (
	"strings"
	"time"
)

// Tick is the latest bid/ask quote for a symbol
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

// SpreadPips converts the quote spread to pips for the tick's symbol
func (t Tick) SpreadPips() float64 {
	return (t.Ask - t.Bid) / PipSize(t.Symbol)
}

type TradeMode int

const (
	TradeModeDisabled TradeMode = iota
	TradeModeCloseOnly
	TradeModeFull
)

// SymbolInfo is the broker's contract description for a symbol
type SymbolInfo struct {
	Symbol       string
	TradeMode    TradeMode
	ContractSize float64
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
}

// AccountState is the snapshot the risk gate decides on
type AccountState struct {
	Balance         float64
	DailyPnL        float64
	OpenPositions   int
	SymbolPositions int
}

// IsJPYPair reports whether the symbol is quoted in yen, which moves the pip
// to the second decimal.
func IsJPYPair(symbol string) bool {
	return strings.Contains(strings.ToUpper(symbol), "JPY")
}

func PipSize(symbol string) float64 {
	if IsJPYPair(symbol) {
		return 0.01
	}
	return 0.0001
}
