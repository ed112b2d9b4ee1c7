package binance

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"
)

// MaxKlines is the largest page the klines endpoint serves
const MaxKlines = 1500

type BinanceClient struct {
	client      *futures.Client
	rateLimiter *rate.Limiter
	maxRetries  int
	backoff     time.Duration
}

type Option func(*BinanceClient)

// WithBaseURL points the client at another endpoint, e.g. a test server
func WithBaseURL(url string) Option {
	return func(c *BinanceClient) {
		c.client.BaseURL = url
	}
}

func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *BinanceClient) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

func NewBinanceClient(apiKey, secretKey string, opts ...Option) *BinanceClient {
	httpClient := &http.Client{
		Timeout: time.Second * 10,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient

	c := &BinanceClient{
		client: futuresClient,
		// 10 requests per second with burst of 20
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
		maxRetries:  3,
		backoff:     100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetKlines returns the latest limit klines, retrying with exponential backoff
func (c *BinanceClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*futures.Kline, error) {
	if limit > MaxKlines {
		limit = MaxKlines
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(limit).
			Do(ctx)
		if err == nil {
			return klines, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.backoff
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return nil, lastErr
}
