package advisor

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// RuleAdvisor is a deterministic moving-average advisor used when no LLM
// key is configured. EMA12 above SMA20 on the hourly frame is the bull
// signal; RSI gates entries away from exhausted moves.
type RuleAdvisor struct {
	logger *slog.Logger
}

// NewRuleAdvisor creates the fallback advisor.
func NewRuleAdvisor(logger *slog.Logger) *RuleAdvisor {
	return &RuleAdvisor{logger: logger}
}

func (a *RuleAdvisor) Decide(ctx context.Context, mctx MarketContext) (domain.TradingInstruction, error) {
	ind := mctx.HourlyInd
	bull := ind.EMA12 > ind.SMA20

	a.logger.Debug("Rule signal",
		slog.Bool("bull", bull),
		slog.Float64("ema12", ind.EMA12),
		slog.Float64("sma20", ind.SMA20),
		slog.Float64("rsi14", ind.RSI14))

	switch {
	case mctx.Position.IsLong() && !bull:
		return domain.TradingInstruction{
			Action:     domain.ActionCloseLong,
			Percentage: 100,
			Reason:     "hourly EMA12 crossed below SMA20",
		}, nil

	case mctx.Position.IsShort() && bull:
		return domain.TradingInstruction{
			Action:     domain.ActionCloseShort,
			Percentage: 100,
			Reason:     "hourly EMA12 crossed above SMA20",
		}, nil

	case mctx.Position.IsFlat() && bull && ind.RSI14 < 70:
		return domain.TradingInstruction{
			Action:     domain.ActionOpenLong,
			Percentage: 25,
			Reason:     "hourly EMA12 above SMA20, RSI not overbought",
		}, nil

	case mctx.Position.IsFlat() && !bull && ind.RSI14 > 30:
		return domain.TradingInstruction{
			Action:     domain.ActionOpenShort,
			Percentage: 25,
			Reason:     "hourly EMA12 below SMA20, RSI not oversold",
		}, nil
	}

	return domain.TradingInstruction{
		Action: domain.ActionHold,
		Reason: "no signal",
	}, nil
}

// Reflect is a no-op for the rule advisor.
func (a *RuleAdvisor) Reflect(ctx context.Context, trades []domain.TradeRecord, markPrice decimal.Decimal) (string, error) {
	return "", nil
}
