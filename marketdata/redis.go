package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/spotbot/market"
)

// RedisCache stores candle windows in Redis under
// <prefix>ohlcv:<symbol>:<timeframe>:<limit> with a short TTL. Keys are
// stable across process restarts, so a fresh process can serve a cached
// window while the TTL lasts.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to url and pings the server. Callers typically
// fall back to NopCache on error.
func NewRedisCache(ctx context.Context, url, prefix string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

func (c *RedisCache) key(symbol, timeframe string, limit int) string {
	return fmt.Sprintf("%sohlcv:%s:%s:%d", c.prefix, symbol, timeframe, limit)
}

// Get returns the cached window, or a miss on any failure.
func (c *RedisCache) Get(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, bool) {
	key := c.key(symbol, timeframe, limit)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("redis get failed")
		}
		return nil, false
	}

	var rows [][6]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis payload corrupt")
		return nil, false
	}

	candles := make([]market.Candle, len(rows))
	for i, r := range rows {
		candles[i] = market.Candle{
			Timestamp: int64(r[0]),
			Open:      r[1],
			High:      r[2],
			Low:       r[3],
			Close:     r[4],
			Volume:    r[5],
		}
	}
	return candles, true
}

// Set overwrites the cached window. Failures are logged and swallowed.
func (c *RedisCache) Set(ctx context.Context, symbol, timeframe string, limit int, candles []market.Candle) {
	rows := make([][6]float64, len(candles))
	for i, cd := range candles {
		rows[i] = [6]float64{float64(cd.Timestamp), cd.Open, cd.High, cd.Low, cd.Close, cd.Volume}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}

	key := c.key(symbol, timeframe, limit)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
