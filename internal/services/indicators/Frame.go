package indicators

import "ForexSignalBot/internal/models"

// Point is one candle with every derived field at that position. Values that
// lacked history at compute time read 0, so callers that care must check
// Frame.Enriched and the frame length.
type Point struct {
	models.Candle

	// Trend
	EMA20  float64
	EMA50  float64
	EMA200 float64
	SMA50  float64
	SMA200 float64

	// Momentum
	MACDHist float64
	RSI      float64
	StochK   float64
	StochD   float64

	// Volatility
	ATR             float64
	ATRSMA          float64
	ATRRatio        float64
	BBUpper         float64
	BBMid           float64
	BBLower         float64
	BBWidth         float64
	BBWidthSMA      float64
	RangeVolatility float64
	RangeVolSMA     float64

	VolatilitySpike bool
	LowVolatility   bool
	HighVolatility  bool
	StableMarket    bool
	VolatilityOK    bool

	// Structure
	ResistanceLevel float64
	SupportLevel    float64
	PricePosition   float64
	NearResistance  bool
	NearSupport     bool
	SafeEntryZone   bool
	PivotHigh       float64 // centered window, display only
	PivotLow        float64 // centered window, display only
	SupplyZone      float64
	DemandZone      float64

	// Patterns
	BullishEngulfing bool
	BearishEngulfing bool
	Hammer           bool
	Doji             bool
	ShootingStar     bool
	MorningStar      bool

	SuperTrend          float64
	SuperTrendDirection int

	// AccuracyScore is SafeEntryZone + VolatilityOK, 0..2
	AccuracyScore int
}

// Frame is a candle series with its derived fields, position aligned.
type Frame struct {
	Series   models.CandleSeries
	Enriched bool
	Points   []Point

	// MACDStart is the first position with a real MACD histogram
	MACDStart int
}

func (f *Frame) Len() int {
	return len(f.Points)
}

// Last returns the most recent point
func (f *Frame) Last() Point {
	return f.Points[len(f.Points)-1]
}

// Back returns the point n bars before the last one
func (f *Frame) Back(n int) Point {
	return f.Points[len(f.Points)-1-n]
}

// HasMACD reports whether the histogram is populated at position i
func (f *Frame) HasMACD(i int) bool {
	return f.Enriched && i >= f.MACDStart && i < len(f.Points)
}

// NewFrame builds an enriched frame from ready-made points. The series is
// rebuilt from the points' candles.
func NewFrame(symbol string, tf models.TimeFrame, points []Point) *Frame {
	candles := make([]models.Candle, len(points))
	for i, p := range points {
		candles[i] = p.Candle
	}
	return &Frame{
		Series:   models.CandleSeries{Symbol: symbol, TimeFrame: tf, Candles: candles},
		Enriched: true,
		Points:   points,
	}
}
