package indicators

import "ForexSignalBot/internal/models"

// MinimumCandles is the shortest series the pipeline will compute on
const MinimumCandles = 50

const (
	bbPeriod             = 20
	bbDeviations         = 2.0
	atrPeriod            = 14
	rsiPeriod            = 14
	stochKPeriod         = 14
	stochDPeriod         = 3
	superTrendPeriod     = 10
	superTrendMultiplier = 3.0
)

// Pipeline turns a candle series into a Frame. It holds no state between
// calls and is safe for concurrent use.
type Pipeline struct {
	ema    *EMAService
	rsi    *RSIService
	macd   *MACDService
	bbands *BBandsService
	atr    *ATRService
}

func NewPipeline() *Pipeline {
	return &Pipeline{
		ema:    NewEMAService(),
		rsi:    NewRSIService(),
		macd:   NewMACDService(),
		bbands: NewBBandsService(),
		atr:    NewATRService(),
	}
}

var defaultPipeline = NewPipeline()

// Enrich runs the default pipeline
func Enrich(series models.CandleSeries) *Frame {
	return defaultPipeline.Enrich(series)
}

// Enrich computes every derived field. A series shorter than MinimumCandles
// comes back untouched with Enriched=false.
func (p *Pipeline) Enrich(series models.CandleSeries) *Frame {
	if series.Len() < MinimumCandles {
		return &Frame{Series: series}
	}

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	n := len(closes)

	ema20 := p.ema.Calculate(closes, 20)
	ema50 := p.ema.Calculate(closes, 50)
	ema200 := p.ema.Calculate(closes, 200)
	sma50 := rollingMean(closes, 50)
	sma200 := rollingMean(closes, 200)

	macdHist := nanSlice(n)
	macdStart := n
	if macd := p.macd.Calculate(closes, 12, 26, 9); macd != nil {
		macdHist = macd.Histogram
		macdStart = macd.Start
	}
	rsi := p.rsi.Calculate(closes, rsiPeriod)
	stochK, stochD := Stochastic(highs, lows, closes, stochKPeriod, stochDPeriod)

	atr := p.atr.Calculate(highs, lows, closes, atrPeriod)
	bb := p.bbands.Calculate(closes, bbPeriod, bbDeviations)
	vol := volatilityRegime(highs, lows, closes, atr, bb.Width)
	lv := supportResistance(highs, lows, closes)
	pat := candlePatterns(series.Candles)

	stATR := p.atr.Calculate(highs, lows, closes, superTrendPeriod)
	st, stDir := SuperTrend(highs, lows, closes, stATR, superTrendMultiplier)

	points := make([]Point, n)
	for i, c := range series.Candles {
		points[i] = Point{
			Candle: c,

			EMA20:  orZero(ema20[i]),
			EMA50:  orZero(ema50[i]),
			EMA200: orZero(ema200[i]),
			SMA50:  orZero(sma50[i]),
			SMA200: orZero(sma200[i]),

			MACDHist: orZero(macdHist[i]),
			RSI:      orZero(rsi[i]),
			StochK:   orZero(stochK[i]),
			StochD:   orZero(stochD[i]),

			ATR:             orZero(atr[i]),
			ATRSMA:          orZero(vol.atrSMA[i]),
			ATRRatio:        orZero(vol.atrRatio[i]),
			BBUpper:         orZero(bb.Upper[i]),
			BBMid:           orZero(bb.Middle[i]),
			BBLower:         orZero(bb.Lower[i]),
			BBWidth:         orZero(bb.Width[i]),
			BBWidthSMA:      orZero(vol.bbWidthSMA[i]),
			RangeVolatility: orZero(vol.rangeVolatility[i]),
			RangeVolSMA:     orZero(vol.rangeVolSMA[i]),

			VolatilitySpike: vol.spike[i],
			LowVolatility:   vol.low[i],
			HighVolatility:  vol.high[i],
			StableMarket:    vol.stable[i],
			VolatilityOK:    vol.ok[i],

			ResistanceLevel: orZero(lv.resistance[i]),
			SupportLevel:    orZero(lv.support[i]),
			PricePosition:   lv.position[i],
			NearResistance:  lv.nearResistance[i],
			NearSupport:     lv.nearSupport[i],
			SafeEntryZone:   lv.safeEntry[i],
			PivotHigh:       orZero(lv.pivotHigh[i]),
			PivotLow:        orZero(lv.pivotLow[i]),
			SupplyZone:      orZero(lv.supplyZone[i]),
			DemandZone:      orZero(lv.demandZone[i]),

			BullishEngulfing: pat.bullishEngulfing[i],
			BearishEngulfing: pat.bearishEngulfing[i],
			Hammer:           pat.hammer[i],
			Doji:             pat.doji[i],
			ShootingStar:     pat.shootingStar[i],
			MorningStar:      pat.morningStar[i],

			SuperTrend:          orZero(st[i]),
			SuperTrendDirection: stDir[i],

			AccuracyScore: boolToInt(lv.safeEntry[i]) + boolToInt(vol.ok[i]),
		}
	}

	return &Frame{
		Series:    series,
		Enriched:  true,
		Points:    points,
		MACDStart: macdStart,
	}
}
