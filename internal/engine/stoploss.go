package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// StopPlacer is the slice of the exchange needed for protective stops.
type StopPlacer interface {
	PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.Side, qty, stopPrice decimal.Decimal) (domain.Order, error)
}

// StopLossPercent is the default distance of the protective stop from the
// fill price, in percent.
const StopLossPercent = 2.5

// StopPrice computes the trigger price for a position entered at avgPrice.
// Longs stop below entry, shorts above.
func StopPrice(entrySide domain.Side, avgPrice decimal.Decimal, riskPct float64) decimal.Decimal {
	risk := decimal.NewFromFloat(riskPct).Div(oneHundred)
	if entrySide == domain.SideBuy {
		return avgPrice.Mul(decimal.NewFromInt(1).Sub(risk))
	}
	return avgPrice.Mul(decimal.NewFromInt(1).Add(risk))
}

// AttachStopLoss places a reduce-only stop market order protecting a fill.
// The stop side is the opposite of the entry side.
func AttachStopLoss(
	ctx context.Context,
	ex StopPlacer,
	symbol string,
	entrySide domain.Side,
	qty, avgPrice decimal.Decimal,
	riskPct float64,
	rules domain.SymbolTradingRules,
) error {
	stopPrice, err := NormalizePrice(StopPrice(entrySide, avgPrice, riskPct), rules)
	if err != nil {
		return fmt.Errorf("stop price: %w", err)
	}

	_, err = ex.PlaceStopMarketOrder(ctx, symbol, entrySide.Opposite(), qty, stopPrice)
	if err != nil {
		return fmt.Errorf("stop-loss placement: %w", err)
	}
	return nil
}
