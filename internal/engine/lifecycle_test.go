package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// fakeClock advances instantly on Sleep so lifecycle tests run in real
// microseconds.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// fakePlacer scripts order placement for lifecycle tests. OrderStatus
// returns the scripted states in sequence, repeating the last one.
type fakePlacer struct {
	statuses []domain.Order
	statusAt int

	limitCalls  int
	marketCalls int
	cancelCalls int
	marketQty   decimal.Decimal
	marketPrice decimal.Decimal

	limitErr  error
	marketErr error
}

func (f *fakePlacer) PlaceLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (domain.Order, error) {
	f.limitCalls++
	if f.limitErr != nil {
		return domain.Order{}, f.limitErr
	}
	return domain.Order{ID: 1, Symbol: symbol, Side: side, Status: domain.OrderStatusNew, OrigQty: qty, Price: price}, nil
}

func (f *fakePlacer) PlaceMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.Order, error) {
	f.marketCalls++
	if f.marketErr != nil {
		return domain.Order{}, f.marketErr
	}
	f.marketQty = qty
	price := f.marketPrice
	if price.IsZero() {
		price = decimal.NewFromInt(50000)
	}
	return domain.Order{ID: 2, Symbol: symbol, Side: side, Status: domain.OrderStatusFilled, OrigQty: qty, ExecutedQty: qty, AvgPrice: price}, nil
}

func (f *fakePlacer) OrderStatus(ctx context.Context, symbol string, orderID int64) (domain.Order, error) {
	if len(f.statuses) == 0 {
		return domain.Order{}, errors.New("no scripted status")
	}
	o := f.statuses[f.statusAt]
	if f.statusAt < len(f.statuses)-1 {
		f.statusAt++
	}
	return o, nil
}

func (f *fakePlacer) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	f.cancelCalls++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLifecycle(f *fakePlacer, clock Clock) *Lifecycle {
	return NewLifecycle(f, clock, 300*time.Second, 10*time.Second, testLogger())
}

func TestLifecycle_FilledBeforeDeadline(t *testing.T) {
	qty := decimal.RequireFromString("0.095")
	f := &fakePlacer{
		statuses: []domain.Order{
			{ID: 1, Status: domain.OrderStatusFilled, OrigQty: qty, ExecutedQty: qty, AvgPrice: decimal.NewFromInt(50050)},
		},
	}

	result, err := newTestLifecycle(f, newFakeClock()).Execute(
		context.Background(), "BTCUSDT", domain.SideBuy, qty, decimal.NewFromInt(50050))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != domain.ExecSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}
	if !result.FilledQty.Equal(qty) {
		t.Errorf("filled = %s, want %s", result.FilledQty, qty)
	}
	if f.cancelCalls != 0 || f.marketCalls != 0 {
		t.Errorf("unexpected cancel=%d market=%d after clean fill", f.cancelCalls, f.marketCalls)
	}
}

func TestLifecycle_PartialThenMarket(t *testing.T) {
	qty := decimal.RequireFromString("0.100")
	partial := domain.Order{
		ID: 1, Status: domain.OrderStatusPartiallyFilled,
		OrigQty:     qty,
		ExecutedQty: decimal.RequireFromString("0.040"),
		AvgPrice:    decimal.NewFromInt(50000),
	}
	f := &fakePlacer{
		statuses:    []domain.Order{partial},
		marketPrice: decimal.NewFromInt(50100),
	}

	result, err := newTestLifecycle(f, newFakeClock()).Execute(
		context.Background(), "BTCUSDT", domain.SideBuy, qty, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != domain.ExecPartialThenMarket {
		t.Errorf("status = %s, want partial_limit_full_market", result.Status)
	}
	if f.cancelCalls != 1 {
		t.Errorf("cancel calls = %d, want 1", f.cancelCalls)
	}
	if !f.marketQty.Equal(decimal.RequireFromString("0.060")) {
		t.Errorf("market qty = %s, want 0.060", f.marketQty)
	}
	if !result.FilledQty.Equal(qty) {
		t.Errorf("filled = %s, want %s", result.FilledQty, qty)
	}

	// (0.04*50000 + 0.06*50100) / 0.10 = 50060
	if !result.AvgPrice.Equal(decimal.NewFromInt(50060)) {
		t.Errorf("avg price = %s, want 50060", result.AvgPrice)
	}
}

func TestLifecycle_TimeoutThenMarket(t *testing.T) {
	qty := decimal.RequireFromString("0.100")
	resting := domain.Order{ID: 1, Status: domain.OrderStatusNew, OrigQty: qty}
	f := &fakePlacer{statuses: []domain.Order{resting}}

	result, err := newTestLifecycle(f, newFakeClock()).Execute(
		context.Background(), "BTCUSDT", domain.SideSell, qty, decimal.NewFromInt(49950))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != domain.ExecTimeoutThenMarket {
		t.Errorf("status = %s, want timeout_full_market", result.Status)
	}
	if f.cancelCalls != 1 || f.marketCalls != 1 {
		t.Errorf("cancel=%d market=%d, want 1/1", f.cancelCalls, f.marketCalls)
	}
	if !f.marketQty.Equal(qty) {
		t.Errorf("market qty = %s, want full %s", f.marketQty, qty)
	}
}

func TestLifecycle_PlacementErrorPropagates(t *testing.T) {
	f := &fakePlacer{limitErr: domain.ErrInsufficientMargin}

	_, err := newTestLifecycle(f, newFakeClock()).Execute(
		context.Background(), "BTCUSDT", domain.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(50000))
	if !errors.Is(err, domain.ErrInsufficientMargin) {
		t.Errorf("error = %v, want ErrInsufficientMargin", err)
	}
}

func TestLifecycle_SweepFailureKeepsPartialFill(t *testing.T) {
	// The limit leg filled 0.040 before the market sweep errored out. That
	// exposure is real, so the outcome is a filled result carrying a warning
	// rather than a failure that would skip stop-loss placement.
	qty := decimal.RequireFromString("0.100")
	partial := domain.Order{
		ID: 1, Status: domain.OrderStatusPartiallyFilled,
		OrigQty:     qty,
		ExecutedQty: decimal.RequireFromString("0.040"),
		AvgPrice:    decimal.NewFromInt(50000),
	}
	f := &fakePlacer{
		statuses:  []domain.Order{partial},
		marketErr: errors.New("exchange unavailable"),
	}

	result, err := newTestLifecycle(f, newFakeClock()).Execute(
		context.Background(), "BTCUSDT", domain.SideBuy, qty, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != domain.ExecSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}
	if !result.Filled() {
		t.Error("Filled() = false, want true for standing partial exposure")
	}
	if !result.FilledQty.Equal(decimal.RequireFromString("0.040")) {
		t.Errorf("filled = %s, want 0.040", result.FilledQty)
	}
	if !result.AvgPrice.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("avg price = %s, want 50000", result.AvgPrice)
	}
	if result.Warning == "" {
		t.Error("warning is empty, want sweep failure surfaced")
	}
}

func TestLifecycle_FilledDuringSweep(t *testing.T) {
	// The last poll sees a partial, but the post-cancel check finds the
	// order fully filled. No market order should go out.
	qty := decimal.RequireFromString("0.100")
	f := &fakePlacer{
		statuses: []domain.Order{
			{ID: 1, Status: domain.OrderStatusPartiallyFilled, OrigQty: qty, ExecutedQty: decimal.RequireFromString("0.050"), AvgPrice: decimal.NewFromInt(50000)},
			{ID: 1, Status: domain.OrderStatusFilled, OrigQty: qty, ExecutedQty: qty, AvgPrice: decimal.NewFromInt(50000)},
		},
	}

	clock := newFakeClock()
	lc := newTestLifecycle(f, clock)
	// Exhaust the wait window on the first poll.
	lc.waitTime = 10 * time.Second

	result, err := lc.Execute(context.Background(), "BTCUSDT", domain.SideBuy, qty, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != domain.ExecSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}
	if f.marketCalls != 0 {
		t.Errorf("market calls = %d, want 0", f.marketCalls)
	}
}
