package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// marginBuffer holds back 5% of available balance so fees and funding
// never push an open over the account's free margin.
var marginBuffer = decimal.RequireFromString("0.95")

var oneHundred = decimal.NewFromInt(100)

// SizeOrder computes the base-asset quantity for an instruction.
//
// Opens spend a percentage of available balance, levered, converted at the
// mark price:
//
//	qty = balance * 0.95 * (pct/100) * leverage / markPrice
//
// Closes take a percentage of the current position. Closing with no
// position open returns ErrNoPositionToClose.
func SizeOrder(
	instr domain.TradingInstruction,
	balance decimal.Decimal,
	position domain.PositionSnapshot,
	markPrice decimal.Decimal,
) (decimal.Decimal, error) {
	pct := decimal.NewFromInt(int64(instr.Percentage)).Div(oneHundred)

	if instr.Action.IsClose() {
		if position.IsFlat() {
			return decimal.Zero, domain.ErrNoPositionToClose
		}
		return position.AbsQuantity().Mul(pct), nil
	}

	if markPrice.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("mark price must be positive, got %s", markPrice)
	}
	if balance.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: available balance %s", domain.ErrInsufficientMargin, balance)
	}

	leverage := decimal.NewFromInt(int64(instr.Leverage))
	notional := balance.Mul(marginBuffer).Mul(pct).Mul(leverage)
	return notional.Div(markPrice), nil
}
