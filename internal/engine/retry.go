package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// qtyReduction is applied to the order quantity after each insufficient
// margin rejection.
var qtyReduction = decimal.RequireFromString("0.9")

// Retrier re-attempts order placement on insufficient margin, shrinking the
// quantity each time. Any other error aborts immediately; margin is the one
// rejection where a smaller order can still succeed.
type Retrier struct {
	clock      Clock
	maxRetries int
	pause      time.Duration
	logger     *slog.Logger
}

// NewRetrier builds a retrier. maxRetries counts total attempts, not
// re-attempts.
func NewRetrier(clock Clock, maxRetries int, pause time.Duration, logger *slog.Logger) *Retrier {
	return &Retrier{clock: clock, maxRetries: maxRetries, pause: pause, logger: logger}
}

// Run invokes attempt with a shrinking quantity until it succeeds, fails
// with a non-margin error, or the attempt budget runs out.
func (r *Retrier) Run(
	ctx context.Context,
	qty decimal.Decimal,
	attempt func(ctx context.Context, qty decimal.Decimal) (domain.ExecutionResult, error),
) (domain.ExecutionResult, error) {
	for i := 0; i < r.maxRetries; i++ {
		result, err := attempt(ctx, qty)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrInsufficientMargin) {
			return result, err
		}

		qty = qty.Mul(qtyReduction)
		r.logger.Warn("Insufficient margin, retrying with reduced quantity",
			slog.Int("attempt", i+1),
			slog.Int("max", r.maxRetries),
			slog.String("next_qty", qty.String()))

		if i < r.maxRetries-1 {
			if err := r.clock.Sleep(ctx, r.pause); err != nil {
				return domain.FailResult(err), err
			}
		}
	}

	err := fmt.Errorf("max retries: %w", domain.ErrInsufficientMargin)
	return domain.FailResult(err), err
}
