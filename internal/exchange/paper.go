package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// MarketData is the read-only slice of the exchange the paper engine
// delegates to. Public endpoints, no keys needed.
type MarketData interface {
	SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error)
	MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error)
}

// PaperFutures simulates the account side of the exchange against live
// market data. Orders fill immediately at their limit price (market orders
// at the mark), balances and positions are virtual. Used for dry runs
// before pointing the engine at real keys.
type PaperFutures struct {
	market MarketData

	mu       sync.Mutex
	balance  decimal.Decimal
	position domain.PositionSnapshot
	orders   map[int64]domain.Order
	nextID   int64
	leverage int
}

// NewPaperFutures creates a paper account with the given starting balance.
func NewPaperFutures(market MarketData, symbol string, initialBalance decimal.Decimal) *PaperFutures {
	slog.Warn("PAPER trading mode: orders are simulated")
	return &PaperFutures{
		market:   market,
		balance:  initialBalance,
		position: domain.PositionSnapshot{Symbol: symbol},
		orders:   make(map[int64]domain.Order),
		nextID:   1,
		leverage: 1,
	}
}

func (p *PaperFutures) SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error) {
	return p.market.SymbolRules(ctx, symbol)
}

func (p *PaperFutures) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return p.market.MarkPrice(ctx, symbol)
}

func (p *PaperFutures) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	return p.market.Klines(ctx, symbol, interval, limit)
}

func (p *PaperFutures) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance, nil
}

func (p *PaperFutures) Position(ctx context.Context, symbol string) (domain.PositionSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, nil
}

func (p *PaperFutures) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error) {
	return p.fill(symbol, side, qty, price, "LIMIT")
}

func (p *PaperFutures) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error) {
	mark, err := p.market.MarkPrice(ctx, symbol)
	if err != nil {
		return domain.Order{}, err
	}
	return p.fill(symbol, side, qty, mark, "MARKET")
}

// PlaceStopMarketOrder records the stop but never triggers it; the paper
// engine has no price feed between cycles.
func (p *PaperFutures) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.Side, qty, stopPrice decimal.Decimal) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order := domain.Order{
		ID:      p.nextID,
		Symbol:  symbol,
		Side:    side,
		Type:    "STOP_MARKET",
		Status:  domain.OrderStatusNew,
		Price:   stopPrice,
		OrigQty: qty,
	}
	p.nextID++
	p.orders[order.ID] = order
	return order, nil
}

func (p *PaperFutures) OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order %d not found", domain.ErrExchangeRejected, orderID)
	}
	return order, nil
}

func (p *PaperFutures) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil
	}
	if order.IsOpen() {
		order.Status = domain.OrderStatusCanceled
		p.orders[orderID] = order
	}
	return nil
}

func (p *PaperFutures) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, order := range p.orders {
		if order.IsOpen() {
			order.Status = domain.OrderStatusCanceled
			p.orders[id] = order
		}
	}
	return nil
}

func (p *PaperFutures) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leverage = leverage
	return nil
}

func (p *PaperFutures) SetMarginType(ctx context.Context, symbol string, mode string) error {
	return nil
}

// fill settles an order instantly against the virtual account.
func (p *PaperFutures) fill(symbol string, side domain.Side, qty, price decimal.Decimal, orderType string) (domain.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	signed := qty
	if side == domain.SideSell {
		signed = qty.Neg()
	}

	old := p.position.Quantity
	next := old.Add(signed)

	switch {
	case old.IsZero() || old.Sign() == signed.Sign():
		// Opening or adding: margin check, then weighted entry.
		lev := decimal.NewFromInt(int64(p.leverage))
		required := qty.Mul(price).Div(lev)
		if required.GreaterThan(p.balance) {
			return domain.Order{}, fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientMargin, required, p.balance)
		}
		p.balance = p.balance.Sub(required)

		oldNotional := old.Abs().Mul(p.position.EntryPrice)
		newNotional := qty.Mul(price)
		p.position.EntryPrice = oldNotional.Add(newNotional).Div(old.Abs().Add(qty))

	case next.IsZero() || next.Sign() == old.Sign():
		// Reducing or closing: realize pnl on the closed portion and
		// release its margin.
		closed := qty
		pnl := price.Sub(p.position.EntryPrice).Mul(closed)
		if old.Sign() < 0 {
			pnl = pnl.Neg()
		}
		lev := decimal.NewFromInt(int64(p.leverage))
		released := closed.Mul(p.position.EntryPrice).Div(lev)
		p.balance = p.balance.Add(released).Add(pnl)
		if next.IsZero() {
			p.position.EntryPrice = decimal.Zero
		}

	default:
		// Crossing through flat is never produced by the sizer.
		return domain.Order{}, fmt.Errorf("%w: order would flip position direction", domain.ErrExchangeRejected)
	}

	p.position.Quantity = next

	order := domain.Order{
		ID:          p.nextID,
		Symbol:      symbol,
		Side:        side,
		Type:        orderType,
		Status:      domain.OrderStatusFilled,
		Price:       price,
		OrigQty:     qty,
		ExecutedQty: qty,
		AvgPrice:    price,
	}
	p.nextID++
	p.orders[order.ID] = order

	slog.Info("PAPER fill",
		slog.Int64("order_id", order.ID),
		slog.String("side", string(side)),
		slog.String("qty", qty.String()),
		slog.String("price", price.String()))
	return order, nil
}
