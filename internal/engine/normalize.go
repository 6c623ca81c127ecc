package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// NormalizeQuantity snaps a raw quantity onto the symbol's lot grid.
// Quantities are floored, never rounded up; a floored result below minQty
// is raised to minQty.
func NormalizeQuantity(qty decimal.Decimal, rules domain.SymbolTradingRules) (decimal.Decimal, error) {
	if qty.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("quantity must be positive, got %s", qty)
	}

	normalized := qty.Div(rules.StepSize).Floor().Mul(rules.StepSize)
	if normalized.LessThan(rules.MinQty) {
		normalized = rules.MinQty
	}
	return normalized, nil
}

// NormalizePrice snaps a price onto the symbol's tick grid, rounding half
// away from the zero side so ties land on the upper tick.
func NormalizePrice(price decimal.Decimal, rules domain.SymbolTradingRules) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", price)
	}
	return price.Div(rules.TickSize).Round(0).Mul(rules.TickSize), nil
}

// RaiseToMinNotional bumps qty up to the smallest step multiple whose
// notional value at price clears the exchange minimum. Quantities already
// above the floor pass through unchanged.
func RaiseToMinNotional(qty, price decimal.Decimal, rules domain.SymbolTradingRules) decimal.Decimal {
	if qty.Mul(price).GreaterThanOrEqual(rules.MinNotional) {
		return qty
	}

	required := rules.MinNotional.Div(price)
	bumped := required.Div(rules.StepSize).Ceil().Mul(rules.StepSize)
	if bumped.LessThan(rules.MinQty) {
		bumped = rules.MinQty
	}
	return bumped
}
