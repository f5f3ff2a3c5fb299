// Package marketdata fetches candle windows with a cache-backed
// degradation path: live fetches overwrite the cache, and a fetch failure
// falls back to the most recent cached window when one exists.
package marketdata

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/spotbot/market"
)

// Source fetches the most recent candles for a symbol. Implemented by
// *exchange.Binance.
type Source interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
}

// Cache stores candle windows keyed by (symbol, timeframe, limit). Every
// implementation is best-effort: failures degrade to a miss.
type Cache interface {
	Get(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, bool)
	Set(ctx context.Context, symbol, timeframe string, limit int, candles []market.Candle)
}

// Pipeline is the per-tick candle provider used by the trading loop.
type Pipeline struct {
	src       Source
	cache     Cache
	timeframe string
	limit     int
}

// NewPipeline wires a source and a cache. cache may be NopCache{}.
func NewPipeline(src Source, cache Cache, timeframe string, limit int) *Pipeline {
	if cache == nil {
		cache = NopCache{}
	}
	return &Pipeline{src: src, cache: cache, timeframe: timeframe, limit: limit}
}

// Candles returns the current window for symbol, or ok=false when neither
// the exchange nor the cache can provide one. The cache only affects
// freshness, never correctness.
func (p *Pipeline) Candles(ctx context.Context, symbol string) ([]market.Candle, bool) {
	candles, err := p.src.Candles(ctx, symbol, p.timeframe, p.limit)
	if err == nil {
		p.cache.Set(ctx, symbol, p.timeframe, p.limit, candles)
		return candles, true
	}

	if cached, ok := p.cache.Get(ctx, symbol, p.timeframe, p.limit); ok {
		log.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed, serving cached window")
		return cached, true
	}

	log.Warn().Err(err).Str("symbol", symbol).Msg("candle fetch failed and no cache available, skipping symbol")
	return nil, false
}

// NopCache is the disabled-cache implementation.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, bool) {
	return nil, false
}

func (NopCache) Set(ctx context.Context, symbol, timeframe string, limit int, candles []market.Candle) {
}
