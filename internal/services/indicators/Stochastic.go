package indicators

import "math"

// Stochastic returns fast %K over kPeriod and its dPeriod SMA as %D. A window
// with no range reads 50.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) ([]float64, []float64) {
	highest := rollingMax(highs, kPeriod)
	lowest := rollingMin(lows, kPeriod)

	k := nanSlice(len(closes))
	for i := range closes {
		if math.IsNaN(highest[i]) || math.IsNaN(lowest[i]) {
			continue
		}
		rng := highest[i] - lowest[i]
		if rng <= 0 {
			k[i] = 50
			continue
		}
		k[i] = 100 * (closes[i] - lowest[i]) / rng
	}

	return k, rollingMean(k, dPeriod)
}
