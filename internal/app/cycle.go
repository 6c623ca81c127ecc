package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/advisor"
	"github.com/jichang0619/aitrade/internal/domain"
)

const (
	dailyCandles     = 60
	hourlyCandles    = 60
	contextDaily     = 30 // candles shown to the advisor
	contextHourly    = 24
	reflectionDays   = 7
	reflectionTrades = 20

	// How old a streamed mark price may be and still substitute for a
	// failed REST lookup.
	markStaleAfter = time.Minute
)

// TradingCycle runs the decide-execute-record loop.
type TradingCycle struct {
	b      *Bootstrap
	logger *slog.Logger

	mu sync.Mutex // guards against overlapping cycles
}

// NewTradingCycle creates the cycle runner over bootstrapped components.
func NewTradingCycle(b *Bootstrap, logger *slog.Logger) *TradingCycle {
	return &TradingCycle{b: b, logger: logger}
}

// Loop runs a cycle immediately, then on every tick until ctx is cancelled.
// A tick that arrives while the previous cycle is still executing is
// skipped, not queued.
func (c *TradingCycle) Loop(ctx context.Context) {
	interval := time.Duration(c.b.Config.Trading.CycleMinutes) * time.Minute
	c.logger.Info("Trading loop started", slog.Duration("interval", interval))

	c.runGuarded(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Trading loop stopped")
			return
		case <-ticker.C:
			c.runGuarded(ctx)
		}
	}
}

func (c *TradingCycle) runGuarded(ctx context.Context) {
	if !c.mu.TryLock() {
		c.logger.Warn("Previous cycle still running, skipping tick")
		return
	}
	defer c.mu.Unlock()

	if err := c.RunOnce(ctx); err != nil {
		c.logger.Error("Cycle failed", "err", err)
	}
}

// RunOnce executes one full cycle: gather context, ask the advisor, run the
// instruction through the engine, record and notify.
func (c *TradingCycle) RunOnce(ctx context.Context) error {
	start := time.Now()
	symbol := c.b.Config.Trading.Symbol

	mctx, err := c.gatherContext(ctx, symbol)
	if err != nil {
		c.b.Notifier.NotifyError("market context", err)
		return err
	}

	instr, err := c.b.Advisor.Decide(ctx, mctx)
	if err != nil {
		c.b.Notifier.NotifyError("advisor", err)
		return fmt.Errorf("advisor decision: %w", err)
	}
	instr.Leverage = c.b.Config.Trading.Leverage

	result, err := c.b.Engine.ExecutePositionAction(ctx, instr)
	if err != nil {
		c.b.Notifier.NotifyError("execution", err)
		return fmt.Errorf("execution: %w", err)
	}

	record := domain.TradeRecord{
		Timestamp:  start,
		Action:     instr.Action,
		Percentage: instr.Percentage,
		Reason:     instr.Reason,
		Balance:    mctx.Balance.String(),
		Price:      mctx.MarkPrice.String(),
		Reflection: mctx.Reflection,
		Status:     result.Status,
		Detail:     result.Warning,
	}
	if result.Status == domain.ExecFailed {
		record.Detail = result.Reason
	}
	if err := c.b.Store.LogTrade(ctx, record); err != nil {
		c.logger.Error("Failed to persist trade record", "err", err)
	}

	if err := c.b.Notifier.NotifyTrade(instr, result); err != nil {
		c.logger.Warn("Discord notification failed", "err", err)
	}

	c.logger.Info("Cycle finished",
		slog.String("action", string(instr.Action)),
		slog.String("status", string(result.Status)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// gatherContext snapshots everything the advisor needs. Sentiment and
// reflection are best-effort; price, balance and candles are not.
func (c *TradingCycle) gatherContext(ctx context.Context, symbol string) (advisor.MarketContext, error) {
	var mctx advisor.MarketContext
	mctx.Symbol = symbol

	balance, err := c.b.Exchange.AccountBalance(ctx)
	if err != nil {
		return mctx, fmt.Errorf("account balance: %w", err)
	}
	mctx.Balance = balance

	position, err := c.b.Exchange.Position(ctx, symbol)
	if err != nil {
		return mctx, fmt.Errorf("position: %w", err)
	}
	mctx.Position = position

	mark, err := c.markPrice(ctx, symbol)
	if err != nil {
		return mctx, err
	}
	mctx.MarkPrice = mark

	daily, err := c.b.Exchange.Klines(ctx, symbol, "1d", dailyCandles)
	if err != nil {
		return mctx, fmt.Errorf("daily klines: %w", err)
	}
	hourly, err := c.b.Exchange.Klines(ctx, symbol, "1h", hourlyCandles)
	if err != nil {
		return mctx, fmt.Errorf("hourly klines: %w", err)
	}

	mctx.DailyInd, err = advisor.ComputeIndicators(daily)
	if err != nil {
		return mctx, fmt.Errorf("daily indicators: %w", err)
	}
	mctx.HourlyInd, err = advisor.ComputeIndicators(hourly)
	if err != nil {
		return mctx, fmt.Errorf("hourly indicators: %w", err)
	}
	mctx.Daily = tail(daily, contextDaily)
	mctx.Hourly = tail(hourly, contextHourly)

	sentiment, err := c.b.Sentiment.Fetch(ctx)
	if err != nil {
		c.logger.Warn("Fear & greed fetch failed", "err", err)
	} else {
		mctx.Sentiment = sentiment
	}

	trades, err := c.b.Store.RecentTrades(ctx, reflectionDays)
	if err != nil {
		c.logger.Warn("Trade history read failed", "err", err)
	} else if len(trades) > 0 {
		if len(trades) > reflectionTrades {
			trades = trades[:reflectionTrades]
		}
		reflection, err := c.b.Advisor.Reflect(ctx, trades, mark)
		if err != nil {
			c.logger.Warn("Reflection failed", "err", err)
		} else {
			mctx.Reflection = reflection
		}
	}

	return mctx, nil
}

// markPrice reads the mark over REST and falls back to the websocket stream
// when REST fails and the streamed value is fresh enough.
func (c *TradingCycle) markPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	mark, err := c.b.Exchange.MarkPrice(ctx, symbol)
	if err == nil {
		return mark, nil
	}

	if c.b.MarkStream != nil {
		price, at := c.b.MarkStream.Latest()
		if !price.IsZero() && time.Since(at) <= markStaleAfter {
			c.logger.Warn("Mark price REST failed, using streamed value",
				"err", err, slog.Time("streamed_at", at))
			return price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("mark price: %w", err)
}

func tail(klines []domain.Kline, n int) []domain.Kline {
	if len(klines) <= n {
		return klines
	}
	return klines[len(klines)-n:]
}
