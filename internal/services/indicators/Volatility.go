package indicators

const (
	spikeMultiplier  = 1.8
	lowBandWidth     = 0.7
	highBandWidth    = 1.5
	stableRangeRatio = 1.3
)

type volatility struct {
	atrSMA          []float64
	atrRatio        []float64
	bbWidthSMA      []float64
	rangeVolatility []float64
	rangeVolSMA     []float64
	spike           []bool
	low             []bool
	high            []bool
	stable          []bool
	ok              []bool
}

// volatilityRegime derives the regime flags. Every comparison against a NaN
// average is false, so a bar without history is never "ok".
func volatilityRegime(highs, lows, closes, atr, bbWidth []float64) volatility {
	n := len(closes)
	v := volatility{
		atrSMA:          rollingMean(atr, 14),
		atrRatio:        make([]float64, n),
		bbWidthSMA:      rollingMean(bbWidth, 20),
		rangeVolatility: make([]float64, n),
		spike:           make([]bool, n),
		low:             make([]bool, n),
		high:            make([]bool, n),
		stable:          make([]bool, n),
		ok:              make([]bool, n),
	}
	for i := range closes {
		v.atrRatio[i] = atr[i] / closes[i]
		v.rangeVolatility[i] = (highs[i] - lows[i]) / closes[i]
	}
	v.rangeVolSMA = rollingMean(v.rangeVolatility, 14)

	for i := range closes {
		v.spike[i] = atr[i] > v.atrSMA[i]*spikeMultiplier
		v.low[i] = bbWidth[i] < v.bbWidthSMA[i]*lowBandWidth
		v.high[i] = bbWidth[i] > v.bbWidthSMA[i]*highBandWidth
		v.stable[i] = v.rangeVolatility[i] < v.rangeVolSMA[i]*stableRangeRatio
		v.ok[i] = !v.spike[i] && v.stable[i] && !v.low[i]
	}

	return v
}
