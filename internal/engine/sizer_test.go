package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

func TestSizeOrder_Open(t *testing.T) {
	instr := domain.TradingInstruction{
		Action:     domain.ActionOpenLong,
		Percentage: 50,
		Leverage:   10,
	}
	balance := decimal.NewFromInt(1000)
	mark := decimal.NewFromInt(50000)

	// 1000 * 0.95 * 0.5 * 10 / 50000 = 0.095
	qty, err := SizeOrder(instr, balance, domain.PositionSnapshot{}, mark)
	if err != nil {
		t.Fatalf("SizeOrder() error = %v", err)
	}
	if !qty.Equal(decimal.RequireFromString("0.095")) {
		t.Errorf("qty = %s, want 0.095", qty)
	}
}

func TestSizeOrder_CloseFull(t *testing.T) {
	instr := domain.TradingInstruction{
		Action:     domain.ActionCloseLong,
		Percentage: 100,
	}
	pos := domain.PositionSnapshot{
		Symbol:   "BTCUSDT",
		Quantity: decimal.RequireFromString("0.2"),
	}

	qty, err := SizeOrder(instr, decimal.NewFromInt(1000), pos, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("SizeOrder() error = %v", err)
	}
	if !qty.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("qty = %s, want 0.2", qty)
	}
}

func TestSizeOrder_ClosePartialShort(t *testing.T) {
	instr := domain.TradingInstruction{
		Action:     domain.ActionCloseShort,
		Percentage: 50,
	}
	pos := domain.PositionSnapshot{
		Symbol:   "BTCUSDT",
		Quantity: decimal.RequireFromString("-0.4"),
	}

	qty, err := SizeOrder(instr, decimal.NewFromInt(1000), pos, decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("SizeOrder() error = %v", err)
	}
	if !qty.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("qty = %s, want 0.2", qty)
	}
}

func TestSizeOrder_CloseFlat(t *testing.T) {
	instr := domain.TradingInstruction{
		Action:     domain.ActionCloseLong,
		Percentage: 100,
	}

	_, err := SizeOrder(instr, decimal.NewFromInt(1000), domain.PositionSnapshot{}, decimal.NewFromInt(50000))
	if !errors.Is(err, domain.ErrNoPositionToClose) {
		t.Errorf("error = %v, want ErrNoPositionToClose", err)
	}
}

func TestSizeOrder_OpenZeroBalance(t *testing.T) {
	instr := domain.TradingInstruction{
		Action:     domain.ActionOpenShort,
		Percentage: 100,
		Leverage:   10,
	}

	_, err := SizeOrder(instr, decimal.Zero, domain.PositionSnapshot{}, decimal.NewFromInt(50000))
	if !errors.Is(err, domain.ErrInsufficientMargin) {
		t.Errorf("error = %v, want ErrInsufficientMargin", err)
	}
}
