package strategy

import (
	"fmt"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/services/indicators"
)

// pointsThreshold is the minimum count of agreeing conditions for the
// points-based variants
const pointsThreshold = 3

// pointsConfidence is the variants' ladder, unrelated to the confluence one
func pointsConfidence(score int) int {
	switch {
	case score >= 4:
		return 95
	case score == 3:
		return 80
	case score == 2:
		return 70
	default:
		return 0
	}
}

func count(conditions ...bool) int {
	n := 0
	for _, c := range conditions {
		if c {
			n++
		}
	}
	return n
}

// pointsSignal turns BUY/SELL point totals into a signal. BUY is checked
// first, so a tie at or above the threshold goes long.
func pointsSignal(symbol, name, label string, buy, sell int, m15 indicators.Point, t targets) models.Signal {
	if buy >= pointsThreshold {
		return t.signal(symbol, name, models.DirectionBuy, m15.Close, m15.ATR,
			pointsConfidence(buy), fmt.Sprintf("%s BUY score = %d", label, buy))
	}
	if sell >= pointsThreshold {
		return t.signal(symbol, name, models.DirectionSell, m15.Close, m15.ATR,
			pointsConfidence(sell), fmt.Sprintf("%s SELL score = %d", label, sell))
	}
	return newNeutral(symbol, name, fmt.Sprintf("%s below threshold: BUY %d, SELL %d", label, buy, sell))
}
