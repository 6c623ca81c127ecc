package domain

import "github.com/shopspring/decimal"

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the reversing side, used for closes and stop orders.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order status values as reported by the exchange.
const (
	OrderStatusNew             = "NEW"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusFilled          = "FILLED"
	OrderStatusCanceled        = "CANCELED"
)

// Order is the exchange-side view of a submitted order. It exists only for
// the duration of one lifecycle execution.
type Order struct {
	ID          int64
	Symbol      string
	Side        Side
	Type        string // "LIMIT", "MARKET", "STOP_MARKET"
	Status      string
	Price       decimal.Decimal // limit price, zero for market orders
	OrigQty     decimal.Decimal
	ExecutedQty decimal.Decimal
	AvgPrice    decimal.Decimal
}

// IsOpen checks if the order is still active on the exchange.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusPartiallyFilled
}

// RemainingQty returns the unfilled portion.
func (o Order) RemainingQty() decimal.Decimal {
	return o.OrigQty.Sub(o.ExecutedQty)
}
