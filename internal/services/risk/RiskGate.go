package risk

import (
	"fmt"

	"ForexSignalBot/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultPipValue = 10.0

	MinLot = 0.01
	MaxLot = 5.0
)

type Limits struct {
	MaxRiskPerTrade    float64 `yaml:"max_risk_per_trade" default:"0.02" validate:"gt=0,lte=1"`
	MaxDailyLoss       float64 `yaml:"max_daily_loss" default:"0.06" validate:"gt=0,lte=1"`
	MaxOpenTrades      int     `yaml:"max_open_trades" default:"7" validate:"gt=0"`
	MaxSymbolPositions int     `yaml:"max_symbol_positions" default:"2" validate:"gt=0"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRiskPerTrade:    0.02,
		MaxDailyLoss:       0.06,
		MaxOpenTrades:      7,
		MaxSymbolPositions: 2,
	}
}

// RiskGate decides whether a new position may be opened and how large it is.
// The account snapshot is passed in per call, so one gate serves every symbol.
type RiskGate struct {
	limits Limits
}

func NewRiskGate(limits Limits) *RiskGate {
	return &RiskGate{limits: limits}
}

func (g *RiskGate) Limits() Limits {
	return g.limits
}

// CanTrade checks the daily loss limit, the open position cap and the per
// symbol cap, in that order.
func (g *RiskGate) CanTrade(symbol string, account models.AccountState) (bool, string) {
	if account.DailyPnL <= -g.limits.MaxDailyLoss*account.Balance {
		return false, "Daily loss limit reached"
	}

	if account.OpenPositions >= g.limits.MaxOpenTrades {
		return false, "Maximum positions reached"
	}

	if account.SymbolPositions >= g.limits.MaxSymbolPositions {
		return false, fmt.Sprintf("Maximum positions for %s reached", symbol)
	}

	return true, "OK"
}

// PositionSize sizes a trade so that hitting the stop loses MaxRiskPerTrade of
// the balance, within the broker's volume constraints. Without symbol info or
// a positive stop distance it falls back to the minimum lot.
func (g *RiskGate) PositionSize(balance, slPips float64, symbol string, info *models.SymbolInfo) float64 {
	if info == nil || slPips <= 0 {
		return MinLot
	}

	riskAmount := balance * g.limits.MaxRiskPerTrade

	pipValue := info.ContractSize * 0.0001
	if models.IsJPYPair(symbol) {
		pipValue = info.ContractSize * 0.01
	}
	if pipValue <= 0 {
		return MinLot
	}

	lots := riskAmount / (slPips * pipValue)
	lots = max(info.VolumeMin, lots)
	lots = min(info.VolumeMax, lots)

	return roundToStep(lots, info.VolumeStep)
}

// CalculateLotSize is the dispatch-time sizing: riskPercent of the balance over
// the stop distance at a fixed pip value, clamped to [0.01, 5.0] and rounded to
// two decimals.
func CalculateLotSize(balance, riskPercent, slPips, pipValue float64) float64 {
	if slPips <= 0 || pipValue <= 0 {
		return MinLot
	}

	riskAmount := balance * (riskPercent / 100)
	lots := riskAmount / (slPips * pipValue)
	lots = min(max(lots, MinLot), MaxLot)

	return decimal.NewFromFloat(lots).Round(2).InexactFloat64()
}

func roundToStep(lots, step float64) float64 {
	if step <= 0 {
		return lots
	}
	s := decimal.NewFromFloat(step)
	return decimal.NewFromFloat(lots).Div(s).Round(0).Mul(s).InexactFloat64()
}

// StopLossPips converts a stop distance to pips. Yen pairs quote to two
// decimals, everything else to four.
func StopLossPips(symbol string, entry, stopLoss float64) float64 {
	distance := entry - stopLoss
	if distance < 0 {
		distance = -distance
	}
	if models.IsJPYPair(symbol) {
		return distance * 100
	}
	return distance * 10000
}
