package indicators

import "math"

// superTrendState is the carry between bars: the ratcheted final bands and
// which of them is active.
type superTrendState struct {
	upper     float64
	lower     float64
	direction int
	ready     bool
}

// step folds one bar into the state. The upper band may only fall unless the
// previous close broke above it; the lower band may only rise unless the
// previous close broke below it. Direction flips when the close crosses the
// active band.
func (st superTrendState) step(high, low, close, prevClose, atr, multiplier float64) superTrendState {
	hl2 := (high + low) / 2
	basicUpper := hl2 + multiplier*atr
	basicLower := hl2 - multiplier*atr

	if !st.ready {
		direction := -1
		if close > hl2 {
			direction = 1
		}
		return superTrendState{upper: basicUpper, lower: basicLower, direction: direction, ready: true}
	}

	next := st
	if basicUpper < st.upper || prevClose > st.upper {
		next.upper = basicUpper
	}
	if basicLower > st.lower || prevClose < st.lower {
		next.lower = basicLower
	}

	switch st.direction {
	case 1:
		if close < next.lower {
			next.direction = -1
		}
	default:
		if close > next.upper {
			next.direction = 1
		}
	}
	return next
}

func (st superTrendState) value() float64 {
	if st.direction == 1 {
		return st.lower
	}
	return st.upper
}

// SuperTrend runs a single forward pass over the bars. Bars without a valid
// ATR carry the initial direction of 1 and a NaN line.
func SuperTrend(highs, lows, closes, atr []float64, multiplier float64) ([]float64, []int) {
	values := nanSlice(len(closes))
	directions := make([]int, len(closes))

	state := superTrendState{direction: 1}
	for i := range closes {
		if math.IsNaN(atr[i]) {
			directions[i] = state.direction
			continue
		}
		prevClose := closes[i]
		if i > 0 {
			prevClose = closes[i-1]
		}
		state = state.step(highs[i], lows[i], closes[i], prevClose, atr[i], multiplier)
		values[i] = state.value()
		directions[i] = state.direction
	}

	return values, directions
}
