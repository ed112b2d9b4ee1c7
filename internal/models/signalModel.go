package models

import (
	"fmt"
	"time"
)

type Direction string

const (
	DirectionBuy      Direction = "BUY"
	DirectionSell     Direction = "SELL"
	DirectionNeutral  Direction = "NEUTRAL"
	DirectionRejected Direction = "REJECTED"
)

// Tradable reports whether the direction carries price targets
func (d Direction) Tradable() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Signal is the outcome of one scoring pass for one symbol. Entry, StopLoss and
// TakeProfit are only meaningful for BUY and SELL.
type Signal struct {
	Symbol     string    `json:"symbol"`
	TimeFrame  TimeFrame `json:"timeframe"`
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`
	Strategy   string    `json:"strategy,omitempty"`

	// LotSize is filled by the dispatcher, never by a scorer
	LotSize float64 `json:"lot_size,omitempty"`
}

func (s Signal) String() string {
	if !s.Direction.Tradable() {
		return fmt.Sprintf("%s %s: %s", s.Symbol, s.Direction, s.Reason)
	}
	return fmt.Sprintf("%s %s @ %.5f SL %.5f TP %.5f (%d%%)",
		s.Symbol, s.Direction, s.Entry, s.StopLoss, s.TakeProfit, s.Confidence)
}

// SignalRecord is a dispatched BUY/SELL signal
type SignalRecord struct {
	ID         uint    `gorm:"primaryKey"`
	Symbol     string  `gorm:"index;not null"`
	TimeFrame  string  `gorm:"not null"`
	Strategy   string  `gorm:"index"`
	Direction  string  `gorm:"not null"`
	Entry      float64 `gorm:"type:decimal(20,8);not null"`
	StopLoss   float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfit float64 `gorm:"type:decimal(20,8);not null"`
	LotSize    float64 `gorm:"type:decimal(20,8)"`
	Confidence int     `gorm:"not null"`
	Reason     string
	Executed   bool

	CreatedAt time.Time `gorm:"index;autoCreateTime"`
}

// TableName sets the table name for SignalRecord
func (SignalRecord) TableName() string {
	return "signals"
}

// ForecastRecord is a lower-confidence signal waiting for price to reach its entry
type ForecastRecord struct {
	ID         uint    `gorm:"primaryKey"`
	Symbol     string  `gorm:"index;not null"`
	TimeFrame  string  `gorm:"not null"`
	Direction  string  `gorm:"not null"`
	Entry      float64 `gorm:"type:decimal(20,8);not null"`
	StopLoss   float64 `gorm:"type:decimal(20,8);not null"`
	TakeProfit float64 `gorm:"type:decimal(20,8);not null"`
	LotSize    float64 `gorm:"type:decimal(20,8)"`
	Confidence int     `gorm:"not null"`
	Reason     string
	Triggered  bool      `gorm:"index;not null;default:false"`
	TriggerAt  time.Time `gorm:"index"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ForecastRecord) TableName() string {
	return "forecast_signals"
}

// NewSignalRecord converts a tradable signal into its stored form
func NewSignalRecord(s Signal) *SignalRecord {
	return &SignalRecord{
		Symbol:     s.Symbol,
		TimeFrame:  string(s.TimeFrame),
		Strategy:   s.Strategy,
		Direction:  string(s.Direction),
		Entry:      s.Entry,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		LotSize:    s.LotSize,
		Confidence: s.Confidence,
		Reason:     s.Reason,
	}
}

func NewForecastRecord(s Signal) *ForecastRecord {
	return &ForecastRecord{
		Symbol:     s.Symbol,
		TimeFrame:  string(s.TimeFrame),
		Direction:  string(s.Direction),
		Entry:      s.Entry,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		LotSize:    s.LotSize,
		Confidence: s.Confidence,
		Reason:     s.Reason,
	}
}
