package domain

import "github.com/shopspring/decimal"

// PositionSnapshot describes the open position for a symbol at query time.
// Quantity is signed: positive for long, negative for short, zero when flat.
type PositionSnapshot struct {
	Symbol        string
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	UnrealizedPnl decimal.Decimal
}

// IsLong checks if the position is long.
func (p PositionSnapshot) IsLong() bool {
	return p.Quantity.IsPositive()
}

// IsShort checks if the position is short.
func (p PositionSnapshot) IsShort() bool {
	return p.Quantity.IsNegative()
}

// IsFlat checks if there is no open position.
func (p PositionSnapshot) IsFlat() bool {
	return p.Quantity.IsZero()
}

// AbsQuantity returns the unsigned position size.
func (p PositionSnapshot) AbsQuantity() decimal.Decimal {
	return p.Quantity.Abs()
}
