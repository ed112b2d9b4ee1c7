package models

import "time"

// Position is an order opened through the execution gateway
type Position struct {
	ID         uint
	Symbol     string
	Side       Direction
	Lots       float64
	EntryPrice float64

	StopLossPrice   float64
	TakeProfitPrice float64

	PnL float64

	OpenTime  time.Time
	CloseTime time.Time
	Status    string
}

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)
