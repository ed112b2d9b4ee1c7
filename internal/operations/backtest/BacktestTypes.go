package backtest

import (
	"time"

	"ForexSignalBot/internal/models"
)

// Exit reasons
const (
	ExitTakeProfit = "take_profit"
	ExitStopLoss   = "stop_loss"
	ExitEndOfData  = "end_of_data"
)

// Trade is one simulated position from entry to exit
type Trade struct {
	Symbol     string
	Strategy   string
	Direction  models.Direction
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Lots       float64
	StopLoss   float64
	TakeProfit float64
	Confidence int
	PnL        float64
	Reason     string
}

type EquityPoint struct {
	Timestamp time.Time
	Balance   float64
}

// Results summarises one replay
type Results struct {
	Symbol   string
	Strategy string

	// Trade metrics
	Evaluations   int
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	AveragePnL    float64

	// Performance metrics
	MaxDrawdown  float64
	FinalBalance float64
	SharpeRatio  float64

	Trades      []Trade
	EquityCurve []EquityPoint
}

const (
	DefaultInitialBalance = 10000.0
	DefaultRiskPercent    = 1.0
	DefaultLookback       = 250
	DefaultStep           = 4
)

// Config controls a replay. Step is the number of M15 bars between
// evaluations; exits are checked on every bar.
type Config struct {
	Strategy       string
	InitialBalance float64
	RiskPercent    float64
	Lookback       int
	Step           int

	// MinConfidence drops weaker signals, 0 takes everything tradable
	MinConfidence int
}

func DefaultConfig() Config {
	return Config{
		InitialBalance: DefaultInitialBalance,
		RiskPercent:    DefaultRiskPercent,
		Lookback:       DefaultLookback,
		Step:           DefaultStep,
	}
}

func (c Config) withDefaults() Config {
	if c.InitialBalance <= 0 {
		c.InitialBalance = DefaultInitialBalance
	}
	if c.RiskPercent <= 0 {
		c.RiskPercent = DefaultRiskPercent
	}
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.Step <= 0 {
		c.Step = DefaultStep
	}
	return c
}
