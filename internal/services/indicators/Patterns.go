package indicators

import (
	"math"

	"ForexSignalBot/internal/models"
)

type patterns struct {
	bullishEngulfing []bool
	bearishEngulfing []bool
	hammer           []bool
	doji             []bool
	shootingStar     []bool
	morningStar      []bool
}

type candleShape struct {
	body        float64
	upperShadow float64
	lowerShadow float64
	rng         float64
	bullish     bool
	bearish     bool
}

func shape(c models.Candle) candleShape {
	return candleShape{
		body:        math.Abs(c.Close - c.Open),
		upperShadow: c.High - math.Max(c.Open, c.Close),
		lowerShadow: math.Min(c.Open, c.Close) - c.Low,
		rng:         c.High - c.Low,
		bullish:     c.Close > c.Open,
		bearish:     c.Close < c.Open,
	}
}

// candlePatterns flags patterns per bar. Patterns needing earlier bars stay
// false until that history exists.
func candlePatterns(candles []models.Candle) patterns {
	n := len(candles)
	p := patterns{
		bullishEngulfing: make([]bool, n),
		bearishEngulfing: make([]bool, n),
		hammer:           make([]bool, n),
		doji:             make([]bool, n),
		shootingStar:     make([]bool, n),
		morningStar:      make([]bool, n),
	}

	for i, c := range candles {
		cur := shape(c)

		p.hammer[i] = cur.lowerShadow > 2*cur.body &&
			cur.upperShadow < cur.body*0.5 &&
			cur.rng > 0
		p.doji[i] = cur.rng > 0 && cur.body/cur.rng < 0.1
		p.shootingStar[i] = cur.upperShadow > 2*cur.body &&
			cur.lowerShadow < cur.body*0.3 &&
			cur.bearish

		if i >= 1 {
			prevCandle := candles[i-1]
			prev := shape(prevCandle)

			p.bullishEngulfing[i] = prev.bearish && cur.bullish &&
				c.Open < prevCandle.Close &&
				c.Close > prevCandle.Open &&
				cur.body > prev.body
			p.bearishEngulfing[i] = prev.bullish && cur.bearish &&
				c.Open > prevCandle.Close &&
				c.Close < prevCandle.Open &&
				cur.body > prev.body
		}

		if i >= 2 {
			first := candles[i-2]
			firstShape := shape(first)
			middle := shape(candles[i-1])

			p.morningStar[i] = firstShape.bearish &&
				middle.body < firstShape.body*0.3 &&
				cur.bullish &&
				c.Close > (first.Open+first.Close)/2
		}
	}

	return p
}
