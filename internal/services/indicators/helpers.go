package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// firstValid returns the index of the first non-NaN value, or -1
func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// rolling applies a talib window function to the valid tail of values and
// re-aligns the result, leaving NaN where the window is not yet full.
// talib fills its lookback with zeros and indexes out of range on short input,
// so both cases are handled here.
func rolling(values []float64, period int, fn func([]float64, int) []float64) []float64 {
	out := nanSlice(len(values))
	start := firstValid(values)
	if start < 0 || period <= 0 || len(values)-start < period {
		return out
	}
	res := fn(values[start:], period)
	for i := period - 1; i < len(res); i++ {
		out[start+i] = res[i]
	}
	return out
}

func rollingMean(values []float64, period int) []float64 {
	return rolling(values, period, talib.Sma)
}

func rollingMax(values []float64, period int) []float64 {
	return rolling(values, period, talib.Max)
}

func rollingMin(values []float64, period int) []float64 {
	return rolling(values, period, talib.Min)
}

// rollingStd is the sample standard deviation over a trailing window
func rollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	start := firstValid(values)
	if start < 0 || period < 2 {
		return out
	}
	for i := start + period - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-period+1:i+1], nil)
	}
	return out
}

func orZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
