package price

import (
	"context"
	"strings"
	"time"

	"ForexSignalBot/internal/models"
	"ForexSignalBot/internal/operations/binance"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
)

var binanceIntervals = map[models.TimeFrame]string{
	models.TimeFrameM15: "15m",
	models.TimeFrameH1:  "1h",
	models.TimeFrameH4:  "4h",
	models.TimeFrameD1:  "1d",
}

// BinanceProvider reads candles from Binance USDⓈ-M futures. Forex pairs are
// mapped onto their USDT-settled ticker, so only USD-quoted pairs resolve.
type BinanceProvider struct {
	client *binance.BinanceClient
	log    zerolog.Logger
}

func NewBinanceProvider(client *binance.BinanceClient, log zerolog.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: client,
		log:    log.With().Str("provider", "binance").Logger(),
	}
}

func (p *BinanceProvider) Name() string {
	return "binance"
}

// BinanceSymbol maps EURUSD to EURUSDT. Pairs not quoted in USD are rejected.
func BinanceSymbol(symbol string) (string, bool) {
	symbol = strings.ToUpper(symbol)
	if len(symbol) != 6 || !strings.HasSuffix(symbol, "USD") {
		return "", false
	}
	return symbol + "T", true
}

func (p *BinanceProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	ticker, ok := BinanceSymbol(symbol)
	if !ok {
		return models.CandleSeries{}, unavailable(p.Name(), "%v: %s", ErrUnsupportedSymbol, symbol)
	}
	interval, ok := binanceIntervals[tf]
	if !ok {
		return models.CandleSeries{}, unavailable(p.Name(), "unsupported timeframe %s", tf)
	}

	klines, err := p.client.GetKlines(ctx, ticker, interval, minBars)
	if err != nil {
		return models.CandleSeries{}, unavailable(p.Name(), "klines %s %s: %v", ticker, interval, err)
	}

	series := models.CandleSeries{
		Symbol:    symbol,
		TimeFrame: tf,
		Candles:   make([]models.Candle, 0, len(klines)),
		Source:    p.Name(),
	}
	for _, k := range klines {
		candle, err := klineToCandle(k)
		if err != nil {
			return models.CandleSeries{}, unavailable(p.Name(), "%v", err)
		}
		series.Candles = append(series.Candles, candle)
	}

	if err := checkLength(p.Name(), series, minBars); err != nil {
		return models.CandleSeries{}, err
	}

	p.log.Debug().
		Str("symbol", symbol).
		Str("timeframe", tf.String()).
		Int("bars", series.Len()).
		Msg("fetched candles")

	return series, nil
}

func klineToCandle(k *futures.Kline) (models.Candle, error) {
	open, err := parseFloat(k.Open)
	if err != nil {
		return models.Candle{}, err
	}
	high, err := parseFloat(k.High)
	if err != nil {
		return models.Candle{}, err
	}
	low, err := parseFloat(k.Low)
	if err != nil {
		return models.Candle{}, err
	}
	closePrice, err := parseFloat(k.Close)
	if err != nil {
		return models.Candle{}, err
	}
	volume, err := parseFloat(k.Volume)
	if err != nil {
		return models.Candle{}, err
	}

	return models.Candle{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: uint64(volume),
	}, nil
}
