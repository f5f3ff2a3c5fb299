// Package exchange wraps the Binance spot REST API behind the narrow
// surface the rest of the engine needs: candle fetches, balances and
// market orders. Keeping every API call in one place centralizes retry,
// error classification and precision handling.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/rs/zerolog/log"
)

// APIError is a permanent exchange business error (rejected order,
// insufficient funds, bad symbol). It is never retried.
type APIError struct {
	Op      string
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: exchange error %d: %s", e.Op, e.Code, e.Message)
}

// FeeEntry is a single fee reported on an order fill.
type FeeEntry struct {
	Asset  string
	Amount float64
}

// OrderReport is the normalized result of a market order. Average is the
// volume-weighted fill price, zero when the exchange did not report one.
type OrderReport struct {
	OrderID string
	Filled  float64
	Average float64
	Fees    []FeeEntry
}

const (
	maxAttempts  = 3
	initialDelay = time.Second
)

// retry runs fn up to maxAttempts times with exponential backoff (1s, 2s)
// on transient failures. Exchange business errors surface immediately as
// *APIError.
func retry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	delay := initialDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}

		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return zero, &APIError{Op: op, Code: apiErr.Code, Message: apiErr.Message}
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max", maxAttempts).Str("op", op).
			Msg("transient exchange error, retrying")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, maxAttempts, lastErr)
}
