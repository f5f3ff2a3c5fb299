package exchange

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/spotbot/market"
)

// Config holds connection settings for the Binance client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Timeout   time.Duration

	// BaseURL overrides the REST endpoint (e.g. https://api.binance.us).
	BaseURL string
}

// Binance is a spot-market client. It is not safe for concurrent use; the
// trading loop is single-threaded by design.
type Binance struct {
	client *binance.Client

	// stepSize per exchange symbol (e.g. "BTCUSDT"), loaded once.
	stepSizes map[string]float64
}

// NewBinance builds a client. Markets are loaded lazily on the first order
// or explicitly via LoadMarkets.
func NewBinance(cfg Config) *Binance {
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	client := binance.NewClient(cfg.APIKey, cfg.APISecret)
	if cfg.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	return &Binance{client: client}
}

// NewBinanceUS builds a client against the binance.us endpoint. Used as the
// automatic fallback when binance.com rejects the region (HTTP 451).
func NewBinanceUS(cfg Config) *Binance {
	cfg.BaseURL = "https://api.binance.us"
	cfg.Testnet = false
	return NewBinance(cfg)
}

// RestrictedLocation reports whether err looks like Binance's HTTP 451
// geo-block, which callers may answer by falling back to binance.us.
func RestrictedLocation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "451") || strings.Contains(msg, "restricted location")
}

// LoadMarkets fetches exchange metadata for the given symbols and records
// the LOT_SIZE step used to round order quantities. Calling it twice is a
// no-op.
func (b *Binance) LoadMarkets(ctx context.Context, symbols []string) error {
	if b.stepSizes != nil {
		return nil
	}

	exSymbols := make([]string, len(symbols))
	for i, s := range symbols {
		exSymbols[i] = market.ExchangeSymbol(s)
	}

	info, err := retry(ctx, "load_markets", func() (*binance.ExchangeInfo, error) {
		return b.client.NewExchangeInfoService().Symbols(exSymbols...).Do(ctx)
	})
	if err != nil {
		return err
	}

	steps := make(map[string]float64, len(info.Symbols))
	for _, s := range info.Symbols {
		if f := s.LotSizeFilter(); f != nil {
			if step, err := strconv.ParseFloat(f.StepSize, 64); err == nil && step > 0 {
				steps[s.Symbol] = step
			}
		}
	}
	b.stepSizes = steps
	return nil
}

// AmountToPrecision rounds a base amount down to the market's LOT_SIZE
// step. Unknown symbols pass through unchanged.
func (b *Binance) AmountToPrecision(symbol string, amount float64) float64 {
	step, ok := b.stepSizes[market.ExchangeSymbol(symbol)]
	if !ok || step <= 0 {
		return amount
	}
	return math.Floor(amount/step) * step
}

// Candles fetches the most recent limit bars for symbol at the given
// timeframe, oldest first.
func (b *Binance) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	op := fmt.Sprintf("fetch_ohlcv(%s,%s,%d)", symbol, timeframe, limit)
	rows, err := retry(ctx, op, func() ([]*binance.Kline, error) {
		return b.client.NewKlinesService().
			Symbol(market.ExchangeSymbol(symbol)).
			Interval(timeframe).
			Limit(limit).
			Do(ctx)
	})
	if err != nil {
		return nil, err
	}
	return klinesToCandles(rows), nil
}

// CandlesRange pages through kline history covering [startMS, endMS]
// inclusive, oldest first. Used by the backtester to download warmup plus
// trade-window data.
func (b *Binance) CandlesRange(ctx context.Context, symbol, timeframe string, startMS, endMS int64) ([]market.Candle, error) {
	tfSecs, err := market.TimeframeSeconds(timeframe)
	if err != nil {
		return nil, err
	}
	tfMS := tfSecs * 1000

	since := startMS
	if since < 0 {
		since = 0
	}

	var out []market.Candle
	var lastTS int64 = -1

	for {
		op := fmt.Sprintf("fetch_ohlcv_range(%s,%s)", symbol, timeframe)
		rows, err := retry(ctx, op, func() ([]*binance.Kline, error) {
			return b.client.NewKlinesService().
				Symbol(market.ExchangeSymbol(symbol)).
				Interval(timeframe).
				StartTime(since).
				Limit(1000).
				Do(ctx)
		})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}

		for _, c := range klinesToCandles(rows) {
			if c.Timestamp <= lastTS {
				continue
			}
			lastTS = c.Timestamp
			if c.Timestamp < startMS {
				continue
			}
			if c.Timestamp > endMS {
				return out, nil
			}
			out = append(out, c)
		}

		next := rows[len(rows)-1].OpenTime + tfMS
		if next <= since {
			next = since + tfMS
		}
		since = next
		if since > endMS {
			break
		}
	}
	return out, nil
}

// FreeBalances fetches the free (unlocked) balance per asset.
func (b *Binance) FreeBalances(ctx context.Context) (map[string]float64, error) {
	acct, err := retry(ctx, "fetch_balance", func() (*binance.Account, error) {
		return b.client.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(acct.Balances))
	for _, bal := range acct.Balances {
		free, err := strconv.ParseFloat(bal.Free, 64)
		if err != nil {
			continue
		}
		out[bal.Asset] = free
	}
	return out, nil
}

// MarketBuy submits a market buy for amount base units (rounded to the
// market step) and returns the normalized report.
func (b *Binance) MarketBuy(ctx context.Context, symbol string, amount float64) (OrderReport, error) {
	return b.marketOrder(ctx, symbol, binance.SideTypeBuy, amount)
}

// MarketSell submits a market sell for amount base units.
func (b *Binance) MarketSell(ctx context.Context, symbol string, amount float64) (OrderReport, error) {
	return b.marketOrder(ctx, symbol, binance.SideTypeSell, amount)
}

func (b *Binance) marketOrder(ctx context.Context, symbol string, side binance.SideType, amount float64) (OrderReport, error) {
	precise := b.AmountToPrecision(symbol, amount)
	if precise <= 0 {
		return OrderReport{}, fmt.Errorf("market %s %s: amount %.10f rounds to zero", side, symbol, amount)
	}
	qty := strconv.FormatFloat(precise, 'f', -1, 64)

	op := fmt.Sprintf("market_%s(%s,%s)", strings.ToLower(string(side)), symbol, qty)
	resp, err := retry(ctx, op, func() (*binance.CreateOrderResponse, error) {
		return b.client.NewCreateOrderService().
			Symbol(market.ExchangeSymbol(symbol)).
			Side(side).
			Type(binance.OrderTypeMarket).
			Quantity(qty).
			Do(ctx)
	})
	if err != nil {
		return OrderReport{}, err
	}

	report := OrderReport{OrderID: strconv.FormatInt(resp.OrderID, 10)}
	if v, err := strconv.ParseFloat(resp.ExecutedQuantity, 64); err == nil {
		report.Filled = v
	}

	// Volume-weighted average across fills; fall back to the cumulative
	// quote / executed quantity if per-fill prices are absent.
	var qtySum, quoteSum float64
	for _, f := range resp.Fills {
		price, perr := strconv.ParseFloat(f.Price, 64)
		fqty, qerr := strconv.ParseFloat(f.Quantity, 64)
		if perr == nil && qerr == nil {
			qtySum += fqty
			quoteSum += price * fqty
		}
		if commission, cerr := strconv.ParseFloat(f.Commission, 64); cerr == nil && commission > 0 {
			report.Fees = append(report.Fees, FeeEntry{Asset: f.CommissionAsset, Amount: commission})
		}
	}
	switch {
	case qtySum > 0:
		report.Average = quoteSum / qtySum
	case report.Filled > 0:
		if cum, err := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64); err == nil && cum > 0 {
			report.Average = cum / report.Filled
		}
	}

	log.Debug().
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("filled", report.Filled).
		Float64("average", report.Average).
		Msg("market order executed")

	return report, nil
}

func klinesToCandles(rows []*binance.Kline) []market.Candle {
	out := make([]market.Candle, 0, len(rows))
	for _, k := range rows {
		c := market.Candle{Timestamp: k.OpenTime}
		var err error
		if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
			continue
		}
		if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
			continue
		}
		if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
			continue
		}
		if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
			continue
		}
		if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}
