package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
	"github.com/jichang0619/aitrade/internal/exchange"
)

// restDownExchange fails every MarkPrice call; the other methods are never
// reached by these tests.
type restDownExchange struct {
	markErr error
}

func (e *restDownExchange) SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error) {
	return domain.SymbolTradingRules{}, errors.New("not implemented")
}

func (e *restDownExchange) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}

func (e *restDownExchange) Position(ctx context.Context, symbol string) (domain.PositionSnapshot, error) {
	return domain.PositionSnapshot{}, errors.New("not implemented")
}

func (e *restDownExchange) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, e.markErr
}

func (e *restDownExchange) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (e *restDownExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (e *restDownExchange) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.Side, qty, stopPrice decimal.Decimal) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (e *restDownExchange) OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (e *restDownExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	return errors.New("not implemented")
}

func (e *restDownExchange) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	return errors.New("not implemented")
}

func (e *restDownExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return errors.New("not implemented")
}

func (e *restDownExchange) SetMarginType(ctx context.Context, symbol string, mode string) error {
	return errors.New("not implemented")
}

func (e *restDownExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	return nil, errors.New("not implemented")
}

func newTestCycle(ex exchange.Exchange, stream *exchange.MarkPriceStream) *TradingCycle {
	b := &Bootstrap{Exchange: ex, MarkStream: stream}
	return NewTradingCycle(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func primedStream(t *testing.T, price string, at time.Time) *exchange.MarkPriceStream {
	t.Helper()
	s := exchange.NewMarkPriceStream("BTCUSDT", false)
	frame := fmt.Sprintf(`{"e":"markPriceUpdate","s":"BTCUSDT","p":"%s","E":%d}`, price, at.UnixMilli())
	s.OnMessage(context.Background(), []byte(frame))
	return s
}

func TestMarkPrice_StreamFallbackWhenRESTFails(t *testing.T) {
	ex := &restDownExchange{markErr: errors.New("rest unavailable")}
	stream := primedStream(t, "50123.45", time.Now())
	c := newTestCycle(ex, stream)

	price, err := c.markPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("markPrice() error = %v, want streamed fallback", err)
	}
	if price.String() != "50123.45" {
		t.Errorf("price = %s, want 50123.45 from stream", price)
	}
}

func TestMarkPrice_StaleStreamDoesNotMaskFailure(t *testing.T) {
	restErr := errors.New("rest unavailable")
	ex := &restDownExchange{markErr: restErr}
	stream := primedStream(t, "50123.45", time.Now().Add(-5*time.Minute))
	c := newTestCycle(ex, stream)

	_, err := c.markPrice(context.Background(), "BTCUSDT")
	if !errors.Is(err, restErr) {
		t.Errorf("error = %v, want wrapped REST failure for stale stream", err)
	}
}

func TestMarkPrice_NoStreamPropagatesError(t *testing.T) {
	restErr := errors.New("rest unavailable")
	c := newTestCycle(&restDownExchange{markErr: restErr}, nil)

	_, err := c.markPrice(context.Background(), "BTCUSDT")
	if !errors.Is(err, restErr) {
		t.Errorf("error = %v, want REST failure when no stream exists", err)
	}
}
