package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// Margin modes supported by the facade.
const (
	MarginIsolated = "ISOLATED"
	MarginCrossed  = "CROSSED"
)

// Exchange is the broker facade the engine drives. Implementations wrap a
// REST-style futures API; errors are returned as the domain taxonomy so
// callers can branch with errors.Is instead of parsing broker codes.
type Exchange interface {
	// SymbolRules fetches the trading constraints for one symbol.
	SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error)

	// AccountBalance returns the available quote-currency balance.
	AccountBalance(ctx context.Context) (decimal.Decimal, error)

	// Position returns the open position snapshot. A flat account yields a
	// zero-quantity snapshot, not an error.
	Position(ctx context.Context, symbol string) (domain.PositionSnapshot, error)

	// MarkPrice returns the current mark price.
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error)
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error)
	PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.Side, qty, stopPrice decimal.Decimal) (domain.Order, error)

	OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) error
	CancelAllOpenOrders(ctx context.Context, symbol string) error

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	SetMarginType(ctx context.Context, symbol string, mode string) error

	// Klines returns recent OHLCV candles, oldest first. Consumed by the
	// advisor; the execution engine never calls it.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error)
}
