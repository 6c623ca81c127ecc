package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SymbolTradingRules holds the exchange-imposed constraints for one symbol.
// Immutable once fetched; cached for the lifetime of the process.
type SymbolTradingRules struct {
	Symbol      string
	StepSize    decimal.Decimal // minimum quantity increment
	MinQty      decimal.Decimal // smallest order quantity
	TickSize    decimal.Decimal // minimum price increment
	MinNotional decimal.Decimal // smallest order value (quote currency)
	MaxLeverage int
}

// Validate checks that all constraints are usable. A rule set with a zero
// step or tick size would make normalization divide by zero.
func (r SymbolTradingRules) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("rules: empty symbol")
	}
	if !r.StepSize.IsPositive() {
		return fmt.Errorf("rules %s: stepSize must be positive, got %s", r.Symbol, r.StepSize)
	}
	if !r.TickSize.IsPositive() {
		return fmt.Errorf("rules %s: tickSize must be positive, got %s", r.Symbol, r.TickSize)
	}
	if !r.MinQty.IsPositive() {
		return fmt.Errorf("rules %s: minQty must be positive, got %s", r.Symbol, r.MinQty)
	}
	if !r.MinNotional.IsPositive() {
		return fmt.Errorf("rules %s: minNotional must be positive, got %s", r.Symbol, r.MinNotional)
	}
	if r.MaxLeverage <= 0 {
		return fmt.Errorf("rules %s: maxLeverage must be positive, got %d", r.Symbol, r.MaxLeverage)
	}
	return nil
}
