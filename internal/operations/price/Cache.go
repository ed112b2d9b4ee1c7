package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ForexSignalBot/internal/logger"
	"ForexSignalBot/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var cacheTTL = map[models.TimeFrame]time.Duration{
	models.TimeFrameM15: time.Minute,
	models.TimeFrameH1:  5 * time.Minute,
	models.TimeFrameH4:  15 * time.Minute,
	models.TimeFrameD1:  time.Hour,
}

// CachedProvider is a read-through Redis cache in front of another provider.
// Cache failures fall through to the wrapped provider.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

func NewCachedProvider(next Provider, client *redis.Client, prefix string, log zerolog.Logger) *CachedProvider {
	if prefix == "" {
		prefix = "forexbot"
	}
	return &CachedProvider{
		next:   next,
		client: client,
		prefix: prefix,
		log:    logger.Component(log, "price_cache"),
	}
}

func (c *CachedProvider) Name() string {
	return c.next.Name()
}

func (c *CachedProvider) key(symbol string, tf models.TimeFrame) string {
	return fmt.Sprintf("%s:candles:%s:%s", c.prefix, symbol, tf)
}

func (c *CachedProvider) Fetch(ctx context.Context, symbol string, tf models.TimeFrame, minBars int) (models.CandleSeries, error) {
	key := c.key(symbol, tf)

	series, err := c.get(ctx, key)
	switch {
	case err == nil && series.Len() >= minBars:
		return series.Tail(minBars), nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	series, err = c.next.Fetch(ctx, symbol, tf, minBars)
	if err != nil {
		return models.CandleSeries{}, err
	}

	// synthetic candles are regenerated on demand and never cached
	if !series.Synthetic {
		if err := c.set(ctx, key, series, cacheTTL[tf]); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return series, nil
}

func (c *CachedProvider) get(ctx context.Context, key string) (models.CandleSeries, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return models.CandleSeries{}, err
	}
	var series models.CandleSeries
	if err := json.Unmarshal(data, &series); err != nil {
		return models.CandleSeries{}, fmt.Errorf("decode cached series: %w", err)
	}
	return series, nil
}

func (c *CachedProvider) set(ctx context.Context, key string, series models.CandleSeries, ttl time.Duration) error {
	if ttl == 0 {
		ttl = time.Minute
	}
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}
