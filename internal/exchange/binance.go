package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
	"github.com/jichang0619/aitrade/internal/infra"
)

// BinanceFutures implements the Exchange facade against the Binance USDT-M
// futures REST API. Every call waits on a shared rate limiter before going
// out; broker errors come back wrapped into the domain taxonomy.
type BinanceFutures struct {
	client *futures.Client
}

// NewBinanceFutures creates the facade. Testnet switches the underlying
// client to the Binance futures testnet endpoints globally.
func NewBinanceFutures(apiKey, secretKey string, testnet bool) *BinanceFutures {
	if testnet {
		futures.UseTestnet = true
		slog.Warn("Binance futures TESTNET mode enabled")
	}
	return &BinanceFutures{client: binance.NewFuturesClient(apiKey, secretKey)}
}

// SymbolRules reads the exchange info filters plus the leverage bracket for
// one symbol. Called once per symbol via the rules cache.
func (b *BinanceFutures) SymbolRules(ctx context.Context, symbol string) (domain.SymbolTradingRules, error) {
	infra.GetMarketLimiter().Wait()

	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return domain.SymbolTradingRules{}, classify(err)
	}

	var rules domain.SymbolTradingRules
	found := false
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		lot := s.LotSizeFilter()
		price := s.PriceFilter()
		notional := s.MinNotionalFilter()
		if lot == nil || price == nil || notional == nil {
			return domain.SymbolTradingRules{}, fmt.Errorf("symbol %s missing required filters", symbol)
		}
		rules = domain.SymbolTradingRules{
			Symbol:      symbol,
			StepSize:    dec(lot.StepSize),
			MinQty:      dec(lot.MinQuantity),
			TickSize:    dec(price.TickSize),
			MinNotional: dec(notional.Notional),
		}
		found = true
		break
	}
	if !found {
		return domain.SymbolTradingRules{}, fmt.Errorf("symbol %s not listed", symbol)
	}

	infra.GetAccountLimiter().Wait()
	brackets, err := b.client.NewGetLeverageBracketService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.SymbolTradingRules{}, classify(err)
	}
	for _, lb := range brackets {
		if lb.Symbol != symbol || len(lb.Brackets) == 0 {
			continue
		}
		rules.MaxLeverage = lb.Brackets[0].InitialLeverage
		break
	}
	return rules, nil
}

// AccountBalance returns the account-wide available balance in USDT.
func (b *BinanceFutures) AccountBalance(ctx context.Context) (decimal.Decimal, error) {
	infra.GetAccountLimiter().Wait()

	acct, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	return dec(acct.AvailableBalance), nil
}

// Position returns the open position, or a zero snapshot when flat.
func (b *BinanceFutures) Position(ctx context.Context, symbol string) (domain.PositionSnapshot, error) {
	infra.GetAccountLimiter().Wait()

	risks, err := b.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return domain.PositionSnapshot{}, classify(err)
	}
	snap := domain.PositionSnapshot{Symbol: symbol}
	for _, p := range risks {
		amt := dec(p.PositionAmt)
		if amt.IsZero() {
			continue
		}
		snap.Quantity = amt
		snap.EntryPrice = dec(p.EntryPrice)
		snap.UnrealizedPnl = dec(p.UnRealizedProfit)
		break
	}
	return snap, nil
}

// MarkPrice returns the current mark price used for margin calculations.
func (b *BinanceFutures) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	infra.GetMarketLimiter().Wait()

	idx, err := b.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	if len(idx) == 0 {
		return decimal.Zero, fmt.Errorf("no premium index for %s", symbol)
	}
	return dec(idx[0].MarkPrice), nil
}

func (b *BinanceFutures) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error) {
	infra.GetOrderLimiter().Wait()

	res, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeLimit).
		TimeInForce(futures.TimeInForceTypeGTC).
		Quantity(qty.String()).
		Price(price.String()).
		Do(ctx)
	if err != nil {
		return domain.Order{}, classify(err)
	}
	return orderFromCreate(res, side), nil
}

func (b *BinanceFutures) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error) {
	infra.GetOrderLimiter().Wait()

	res, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		Do(ctx)
	if err != nil {
		return domain.Order{}, classify(err)
	}
	return orderFromCreate(res, side), nil
}

// PlaceStopMarketOrder submits a reduce-only stop trigger, evaluated against
// the mark price so a wick in the last-traded price cannot fire it.
func (b *BinanceFutures) PlaceStopMarketOrder(ctx context.Context, symbol string, side domain.Side, qty, stopPrice decimal.Decimal) (domain.Order, error) {
	infra.GetOrderLimiter().Wait()

	res, err := b.client.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeStopMarket).
		StopPrice(stopPrice.String()).
		Quantity(qty.String()).
		ReduceOnly(true).
		WorkingType(futures.WorkingTypeMarkPrice).
		Do(ctx)
	if err != nil {
		return domain.Order{}, classify(err)
	}
	return orderFromCreate(res, side), nil
}

func (b *BinanceFutures) OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error) {
	infra.GetOrderLimiter().Wait()

	o, err := b.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return domain.Order{}, classify(err)
	}
	return domain.Order{
		ID:          o.OrderID,
		Symbol:      o.Symbol,
		Side:        domain.Side(o.Side),
		Type:        string(o.Type),
		Status:      string(o.Status),
		Price:       dec(o.Price),
		OrigQty:     dec(o.OrigQuantity),
		ExecutedQty: dec(o.ExecutedQuantity),
		AvgPrice:    dec(o.AvgPrice),
	}, nil
}

func (b *BinanceFutures) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	infra.GetOrderLimiter().Wait()

	_, err := b.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		// The order may have filled or expired between poll and cancel.
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -2011 {
			slog.Info("Cancel skipped, order already gone", slog.Int64("order_id", orderID))
			return nil
		}
		return classify(err)
	}
	return nil
}

func (b *BinanceFutures) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	infra.GetOrderLimiter().Wait()

	if err := b.client.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (b *BinanceFutures) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	infra.GetAccountLimiter().Wait()

	_, err := b.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (b *BinanceFutures) SetMarginType(ctx context.Context, symbol string, mode string) error {
	infra.GetAccountLimiter().Wait()

	err := b.client.NewChangeMarginTypeService().
		Symbol(symbol).
		MarginType(futures.MarginType(mode)).
		Do(ctx)
	if err != nil {
		// -4046: margin type already set. Not an error.
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == -4046 {
			return nil
		}
		if strings.Contains(err.Error(), "No need to change margin type") {
			return nil
		}
		return classify(err)
	}
	return nil
}

func (b *BinanceFutures) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	infra.GetMarketLimiter().Wait()

	raw, err := b.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	klines := make([]domain.Kline, 0, len(raw))
	for _, k := range raw {
		klines = append(klines, domain.Kline{
			OpenTimeMs: k.OpenTime,
			Open:       dec(k.Open),
			High:       dec(k.High),
			Low:        dec(k.Low),
			Close:      dec(k.Close),
			Volume:     dec(k.Volume),
		})
	}
	return klines, nil
}

func orderFromCreate(res *futures.CreateOrderResponse, side domain.Side) domain.Order {
	return domain.Order{
		ID:          res.OrderID,
		Symbol:      res.Symbol,
		Side:        side,
		Type:        string(res.Type),
		Status:      string(res.Status),
		Price:       dec(res.Price),
		OrigQty:     dec(res.OrigQuantity),
		ExecutedQty: dec(res.ExecutedQuantity),
		AvgPrice:    dec(res.AvgPrice),
	}
}

// classify maps a broker error onto the domain taxonomy. -2019 is the only
// recoverable code; everything else surfaces as a generic rejection with the
// broker message preserved.
func classify(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == -2019 {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientMargin, apiErr.Message)
		}
		return fmt.Errorf("%w: code %d: %s", domain.ErrExchangeRejected, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", domain.ErrExchangeRejected, err)
}

// dec converts a broker numeric string at the boundary. Malformed values
// become zero, matching how absent fields are reported.
func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
