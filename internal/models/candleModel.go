package models

import (
	"time"
)

type TimeFrame string

const (
	TimeFrameM15 TimeFrame = "M15"
	TimeFrameH1  TimeFrame = "H1"
	TimeFrameH4  TimeFrame = "H4"
	TimeFrameD1  TimeFrame = "D1"
)

// TimeFrames lists the timeframes the confluence scorer needs, highest first
var TimeFrames = []TimeFrame{TimeFrameD1, TimeFrameH4, TimeFrameH1, TimeFrameM15}

var timeFrameDurations = map[TimeFrame]time.Duration{
	TimeFrameM15: 15 * time.Minute,
	TimeFrameH1:  time.Hour,
	TimeFrameH4:  4 * time.Hour,
	TimeFrameD1:  24 * time.Hour,
}

// Duration returns the candle interval, or 0 for an unknown timeframe
func (t TimeFrame) Duration() time.Duration {
	return timeFrameDurations[t]
}

func (t TimeFrame) Valid() bool {
	_, ok := timeFrameDurations[t]
	return ok
}

func (t TimeFrame) String() string {
	return string(t)
}

type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume uint64    `json:"volume"`
}

// CandleSeries is an ordered run of candles for one symbol and timeframe.
type CandleSeries struct {
	Symbol    string    `json:"symbol"`
	TimeFrame TimeFrame `json:"timeframe"`
	Candles   []Candle  `json:"candles"`

	// Source names the provider that produced the series
	Source    string `json:"source"`
	Synthetic bool   `json:"synthetic"`
}

func (s CandleSeries) Len() int {
	return len(s.Candles)
}

func (s CandleSeries) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Closes extracts close prices in order
func (s CandleSeries) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

func (s CandleSeries) Highs() []float64 {
	highs := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		highs[i] = c.High
	}
	return highs
}

func (s CandleSeries) Lows() []float64 {
	lows := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		lows[i] = c.Low
	}
	return lows
}

// Gaps counts intervals between consecutive candles that are longer than the
// timeframe duration. Weekend closes show up as gaps too; callers only log them.
func (s CandleSeries) Gaps() int {
	step := s.TimeFrame.Duration()
	if step == 0 {
		return 0
	}
	gaps := 0
	for i := 1; i < len(s.Candles); i++ {
		if s.Candles[i].Time.Sub(s.Candles[i-1].Time) > step {
			gaps++
		}
	}
	return gaps
}

// Ordered reports whether candle times are strictly increasing
func (s CandleSeries) Ordered() bool {
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].Time.After(s.Candles[i-1].Time) {
			return false
		}
	}
	return true
}

// Tail returns a series holding at most the last n candles
func (s CandleSeries) Tail(n int) CandleSeries {
	if n >= len(s.Candles) {
		return s
	}
	out := s
	out.Candles = s.Candles[len(s.Candles)-n:]
	return out
}
