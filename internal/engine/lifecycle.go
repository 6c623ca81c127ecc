package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// OrderPlacer is the slice of the exchange the lifecycle needs.
type OrderPlacer interface {
	PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error)
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error)
	OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
}

// Lifecycle runs one order from limit placement to terminal fill. A limit
// order gets waitTime to fill, polled at pollInterval; whatever remains at
// the deadline is cancelled and swept with a market order.
type Lifecycle struct {
	exchange     OrderPlacer
	clock        Clock
	waitTime     time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewLifecycle wires a lifecycle with its timing parameters.
func NewLifecycle(ex OrderPlacer, clock Clock, waitTime, pollInterval time.Duration, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		exchange:     ex,
		clock:        clock,
		waitTime:     waitTime,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Execute places the limit order and drives it to a terminal state. The
// returned error is non-nil only when nothing was achieved at all, so
// callers can retry placement; once any quantity is filled the outcome is
// reported through the result status instead.
func (l *Lifecycle) Execute(ctx context.Context, symbol string, side domain.Side, qty, limitPrice decimal.Decimal) (domain.ExecutionResult, error) {
	order, err := l.exchange.PlaceLimitOrder(ctx, symbol, side, qty, limitPrice)
	if err != nil {
		return domain.FailResult(err), err
	}

	l.logger.Info("Limit order placed",
		slog.Int64("order_id", order.ID),
		slog.String("side", string(side)),
		slog.String("qty", qty.String()),
		slog.String("price", limitPrice.String()))

	deadline := l.clock.Now().Add(l.waitTime)
	last := order

	for l.clock.Now().Before(deadline) {
		if err := l.clock.Sleep(ctx, l.pollInterval); err != nil {
			return domain.FailResult(err), err
		}

		current, err := l.exchange.OrderStatus(ctx, symbol, order.ID)
		if err != nil {
			// Transient poll failures are retried on the next tick.
			l.logger.Warn("Order status check failed", slog.Int64("order_id", order.ID), "err", err)
			continue
		}
		last = current

		if current.Status == domain.OrderStatusFilled {
			l.logger.Info("Limit order filled",
				slog.Int64("order_id", order.ID),
				slog.String("avg_price", current.AvgPrice.String()))
			return domain.ExecutionResult{
				Status:    domain.ExecSuccess,
				FilledQty: current.ExecutedQty,
				AvgPrice:  current.AvgPrice,
			}, nil
		}
	}

	return l.sweep(ctx, symbol, side, last)
}

// sweep cancels whatever is still resting and market-orders the remainder.
func (l *Lifecycle) sweep(ctx context.Context, symbol string, side domain.Side, last domain.Order) (domain.ExecutionResult, error) {
	if err := l.exchange.CancelOrder(ctx, symbol, last.ID); err != nil {
		l.logger.Warn("Cancel before sweep failed", slog.Int64("order_id", last.ID), "err", err)
	}

	// Fills can land between the final poll and the cancel.
	if current, err := l.exchange.OrderStatus(ctx, symbol, last.ID); err == nil {
		last = current
	}

	if last.Status == domain.OrderStatusFilled || last.RemainingQty().Sign() <= 0 {
		return domain.ExecutionResult{
			Status:    domain.ExecSuccess,
			FilledQty: last.ExecutedQty,
			AvgPrice:  last.AvgPrice,
		}, nil
	}

	remainder := last.RemainingQty()
	l.logger.Info("Sweeping unfilled remainder at market",
		slog.Int64("order_id", last.ID),
		slog.String("remainder", remainder.String()))

	market, err := l.exchange.PlaceMarketOrder(ctx, symbol, side, remainder)
	if err != nil {
		if last.ExecutedQty.Sign() > 0 {
			// The partial fill is live exposure that still needs its stop,
			// so this counts as a filled outcome with a warning attached.
			return domain.ExecutionResult{
				Status:    domain.ExecSuccess,
				FilledQty: last.ExecutedQty,
				AvgPrice:  last.AvgPrice,
				Warning:   fmt.Sprintf("market sweep failed, %s left unfilled: %v", remainder, err),
			}, nil
		}
		return domain.FailResult(err), err
	}

	status := domain.ExecTimeoutThenMarket
	if last.ExecutedQty.Sign() > 0 {
		status = domain.ExecPartialThenMarket
	}

	return domain.ExecutionResult{
		Status:    status,
		FilledQty: last.ExecutedQty.Add(market.ExecutedQty),
		AvgPrice:  blendedPrice(last, market),
	}, nil
}

// blendedPrice is the fill-weighted average across the limit and market legs.
func blendedPrice(limit, market domain.Order) decimal.Decimal {
	total := limit.ExecutedQty.Add(market.ExecutedQty)
	if total.IsZero() {
		return decimal.Zero
	}
	notional := limit.ExecutedQty.Mul(limit.AvgPrice).Add(market.ExecutedQty.Mul(market.AvgPrice))
	return notional.Div(total)
}
