package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
	"github.com/jichang0619/aitrade/internal/exchange"
)

// Limit prices are offset 0.1% through the mark so the order is marketable
// but still bounded.
var (
	buyOffset  = decimal.RequireFromString("1.001")
	sellOffset = decimal.RequireFromString("0.999")
)

// Config carries the engine's timing and risk parameters.
type Config struct {
	Symbol         string
	MarginType     string
	WaitTime       time.Duration
	PollInterval   time.Duration
	MaxRetries     int
	RetryPause     time.Duration
	RiskPercentage float64
}

// Engine turns an advisor instruction into exchange orders. It is the only
// component that writes to the exchange.
type Engine struct {
	ex     exchange.Exchange
	rules  *exchange.RulesCache
	cfg    Config
	clock  Clock
	logger *slog.Logger
}

// New wires an engine. The clock is injectable for tests.
func New(ex exchange.Exchange, rules *exchange.RulesCache, cfg Config, clock Clock, logger *slog.Logger) *Engine {
	return &Engine{ex: ex, rules: rules, cfg: cfg, clock: clock, logger: logger}
}

// ExecutePositionAction runs one instruction to a terminal result.
//
// A hold returns before anything touches the exchange. Everything else goes
// through: validate, load rules, cancel stale orders, configure margin and
// leverage for opens, snapshot account state, size, then the limit-order
// lifecycle under the margin retrier. Successful opens get a protective
// stop attached; a stop failure downgrades to a warning on the result.
//
// The returned error is non-nil only for conditions that should abort the
// whole cycle, such as unavailable trading rules.
func (e *Engine) ExecutePositionAction(ctx context.Context, instr domain.TradingInstruction) (domain.ExecutionResult, error) {
	if instr.Action == domain.ActionHold {
		e.logger.Info("Holding position", slog.String("reason", instr.Reason))
		return domain.HoldResult(instr.Reason), nil
	}

	if err := instr.Validate(); err != nil {
		return domain.FailResult(err), nil
	}

	rules, err := e.rules.Rules(ctx, e.cfg.Symbol)
	if err != nil {
		return domain.FailResult(err), err
	}

	// Stale resting orders would double-spend margin or fight the new order.
	if err := e.ex.CancelAllOpenOrders(ctx, e.cfg.Symbol); err != nil {
		return domain.FailResult(fmt.Errorf("cancel open orders: %w", err)), nil
	}

	if instr.Action.IsOpen() {
		if err := e.prepareOpen(ctx, &instr, rules); err != nil {
			return domain.FailResult(err), nil
		}
	}

	balance, err := e.ex.AccountBalance(ctx)
	if err != nil {
		return domain.FailResult(err), nil
	}
	position, err := e.ex.Position(ctx, e.cfg.Symbol)
	if err != nil {
		return domain.FailResult(err), nil
	}
	markPrice, err := e.ex.MarkPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return domain.FailResult(err), nil
	}

	qty, err := SizeOrder(instr, balance, position, markPrice)
	if err != nil {
		if errors.Is(err, domain.ErrNoPositionToClose) {
			e.logger.Warn("Close requested with no open position", slog.String("action", string(instr.Action)))
		}
		return domain.FailResult(err), nil
	}
	side := orderSide(instr.Action)
	price, err := limitPrice(side, markPrice, rules)
	if err != nil {
		return domain.FailResult(err), nil
	}
	if instr.Action.IsOpen() {
		// The floor must hold at the price the order is submitted at, not
		// at the mark the sizer saw.
		qty = RaiseToMinNotional(qty, price, rules)
	}

	lifecycle := NewLifecycle(e.ex, e.clock, e.cfg.WaitTime, e.cfg.PollInterval, e.logger)
	retrier := NewRetrier(e.clock, e.cfg.MaxRetries, e.cfg.RetryPause, e.logger)

	result, err := retrier.Run(ctx, qty, func(ctx context.Context, q decimal.Decimal) (domain.ExecutionResult, error) {
		nq, err := NormalizeQuantity(q, rules)
		if err != nil {
			return domain.FailResult(err), err
		}
		return lifecycle.Execute(ctx, e.cfg.Symbol, side, nq, price)
	})
	if err != nil {
		return result, nil
	}

	if result.Filled() && instr.Action.IsOpen() {
		err := AttachStopLoss(ctx, e.ex, e.cfg.Symbol, side, result.FilledQty, result.AvgPrice, e.cfg.RiskPercentage, rules)
		if err != nil {
			// Position stands without protection; surface but do not fail.
			e.logger.Error("Stop-loss placement failed", "err", err)
			if result.Warning != "" {
				result.Warning += "; " + err.Error()
			} else {
				result.Warning = err.Error()
			}
		}
	}

	e.logger.Info("Execution finished",
		slog.String("action", string(instr.Action)),
		slog.String("status", string(result.Status)),
		slog.String("filled", result.FilledQty.String()),
		slog.String("avg_price", result.AvgPrice.String()))
	return result, nil
}

// prepareOpen sets margin mode and leverage ahead of an open, clamping the
// requested leverage to the bracket maximum.
func (e *Engine) prepareOpen(ctx context.Context, instr *domain.TradingInstruction, rules domain.SymbolTradingRules) error {
	if err := e.ex.SetMarginType(ctx, e.cfg.Symbol, e.cfg.MarginType); err != nil {
		return fmt.Errorf("set margin type: %w", err)
	}

	leverage := instr.Leverage
	if rules.MaxLeverage > 0 && leverage > rules.MaxLeverage {
		e.logger.Warn("Leverage clamped to bracket maximum",
			slog.Int("requested", leverage),
			slog.Int("max", rules.MaxLeverage))
		leverage = rules.MaxLeverage
		instr.Leverage = leverage
	}

	if err := e.ex.SetLeverage(ctx, e.cfg.Symbol, leverage); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	return nil
}

// orderSide maps an action onto the exchange side. Closes trade against the
// position direction.
func orderSide(a domain.Action) domain.Side {
	switch a {
	case domain.ActionOpenLong, domain.ActionCloseShort:
		return domain.SideBuy
	default:
		return domain.SideSell
	}
}

// limitPrice offsets the mark price 0.1% through the book and snaps it to
// the tick grid.
func limitPrice(side domain.Side, markPrice decimal.Decimal, rules domain.SymbolTradingRules) (decimal.Decimal, error) {
	offset := sellOffset
	if side == domain.SideBuy {
		offset = buyOffset
	}
	return NormalizePrice(markPrice.Mul(offset), rules)
}
