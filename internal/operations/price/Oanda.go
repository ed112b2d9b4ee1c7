package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ForexSignalBot/internal/models"

	"github.com/rs/zerolog"
)

const (
	DefaultOandaURL = "https://api-fxpractice.oanda.com"
	// Limit is 5000 but we keep a buffer
	maxOandaCandles = 4000
)

var oandaGranularities = map[models.TimeFrame]string{
	models.TimeFrameM15: "M15",
	models.TimeFrameH1:  "H1",
	models.TimeFrameH4:  "H4",
	models.TimeFrameD1:  "D",
}

type oandaCandle struct {
	Time     string         `json:"time"`
	Mid      oandaPriceData `json:"mid"`
	Volume   int            `json:"volume"`
	Complete bool           `json:"complete"`
}

type oandaPriceData struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type oandaCandleResponse struct {
	Instrument  string        `json:"instrument"`
	Granularity string        `json:"granularity"`
	Candles     []oandaCandle `json:"candles"`
}

// OandaProvider reads mid-price candles from the OANDA v20 REST API
type OandaProvider struct {
	accountID  string
	apiKey     string
	apiURL     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewOandaProvider(accountID, apiKey, apiURL string, log zerolog.Logger) *OandaProvider {
	if apiURL == "" {
		apiURL = DefaultOandaURL
	}
	return &OandaProvider{
		accountID:  accountID,
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("provider", "oanda").Logger(),
	}
}

func (p *OandaProvider) Name() string {
	return "oanda"
}

// OandaInstrument maps EURUSD to EUR_USD
func OandaInstrument(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if len(symbol) != 6 {
		return symbol
	}
	return symbol[:3] + "_" + symbol[3:]
}

func (p *OandaProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	if p.apiKey == "" {
		return models.CandleSeries{}, unavailable(p.Name(), "no api key configured")
	}
	granularity, ok := oandaGranularities[tf]
	if !ok {
		return models.CandleSeries{}, unavailable(p.Name(), "unsupported timeframe %s", tf)
	}

	// one extra bar covers the forming candle dropped below
	resp, err := p.fetchCandles(ctx, OandaInstrument(symbol), granularity, min(minBars+1, maxOandaCandles))
	if err != nil {
		return models.CandleSeries{}, unavailable(p.Name(), "%v", err)
	}

	candles, err := oandaToCandles(resp.Candles)
	if err != nil {
		return models.CandleSeries{}, unavailable(p.Name(), "%v", err)
	}

	series := models.CandleSeries{
		Symbol:    symbol,
		TimeFrame: tf,
		Candles:   candles,
		Source:    p.Name(),
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

func (p *OandaProvider) fetchCandles(ctx context.Context, instrument, granularity string, count int) (*oandaCandleResponse, error) {
	endpoint := p.apiURL + "/v3/accounts/" + p.accountID + "/instruments/" + instrument + "/candles"

	params := url.Values{}
	params.Add("granularity", granularity)
	params.Add("count", strconv.Itoa(count))
	params.Add("price", "M")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out oandaCandleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode candle response: %w", err)
	}
	return &out, nil
}

// oandaToCandles keeps closed candles only
func oandaToCandles(raw []oandaCandle) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(raw))
	for _, c := range raw {
		if !c.Complete {
			continue
		}
		ts, err := time.Parse(time.RFC3339, c.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle time %s: %w", c.Time, err)
		}

		o, err := parseFloat(c.Mid.O)
		if err != nil {
			return nil, err
		}
		h, err := parseFloat(c.Mid.H)
		if err != nil {
			return nil, err
		}
		l, err := parseFloat(c.Mid.L)
		if err != nil {
			return nil, err
		}
		cl, err := parseFloat(c.Mid.C)
		if err != nil {
			return nil, err
		}

		candles = append(candles, models.Candle{
			Time:   ts.UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: uint64(max(c.Volume, 0)),
		})
	}
	return candles, nil
}
