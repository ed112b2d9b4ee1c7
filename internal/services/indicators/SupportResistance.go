package indicators

import "math"

const (
	levelWindow    = 20
	zoneWindow     = 30
	pivotHalfWidth = 2
	levelTolerance = 0.002
)

type levels struct {
	resistance     []float64
	support        []float64
	position       []float64
	nearResistance []bool
	nearSupport    []bool
	safeEntry      []bool
	pivotHigh      []float64
	pivotLow       []float64
	supplyZone     []float64
	demandZone     []float64
}

func supportResistance(highs, lows, closes []float64) levels {
	n := len(closes)
	lv := levels{
		resistance:     rollingMax(highs, levelWindow),
		support:        rollingMin(lows, levelWindow),
		position:       make([]float64, n),
		nearResistance: make([]bool, n),
		nearSupport:    make([]bool, n),
		safeEntry:      make([]bool, n),
		supplyZone:     rollingMax(highs, zoneWindow),
		demandZone:     rollingMin(lows, zoneWindow),
	}
	lv.pivotHigh, lv.pivotLow = pivots(highs, lows)

	for i := range closes {
		lv.position[i] = pricePosition(closes[i], lv.support[i], lv.resistance[i])
		// NaN levels compare false
		lv.nearResistance[i] = closes[i] >= lv.resistance[i]*(1-levelTolerance)
		lv.nearSupport[i] = closes[i] <= lv.support[i]*(1+levelTolerance)
		lv.safeEntry[i] = !(lv.nearResistance[i] || lv.nearSupport[i])
	}

	return lv
}

// pricePosition places close within [support, resistance]; 0.5 without a range
func pricePosition(close, support, resistance float64) float64 {
	rng := resistance - support
	if !(rng > 0) {
		return 0.5
	}
	return math.Min(math.Max((close-support)/rng, 0), 1)
}

// pivots are centered 5-bar extremes. They look two bars ahead and must never
// feed an entry decision.
func pivots(highs, lows []float64) ([]float64, []float64) {
	pivotHigh := nanSlice(len(highs))
	pivotLow := nanSlice(len(lows))
	for i := pivotHalfWidth; i+pivotHalfWidth < len(highs); i++ {
		hi, lo := highs[i], lows[i]
		for j := i - pivotHalfWidth; j <= i+pivotHalfWidth; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		pivotHigh[i] = hi
		pivotLow[i] = lo
	}
	return pivotHigh, pivotLow
}
