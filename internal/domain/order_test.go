package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrder_IsOpen(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{"NEW", OrderStatusNew, true},
		{"PARTIALLY_FILLED", OrderStatusPartiallyFilled, true},
		{"FILLED", OrderStatusFilled, false},
		{"CANCELED", OrderStatusCanceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{Status: tt.status}
			if got := o.IsOpen(); got != tt.want {
				t.Errorf("Order.IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_RemainingQty(t *testing.T) {
	o := Order{
		OrigQty:     decimal.RequireFromString("0.095"),
		ExecutedQty: decimal.RequireFromString("0.040"),
	}
	want := decimal.RequireFromString("0.055")
	if got := o.RemainingQty(); !got.Equal(want) {
		t.Errorf("RemainingQty() = %s, want %s", got, want)
	}
}

func TestSide_Opposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell {
		t.Error("BUY opposite should be SELL")
	}
	if SideSell.Opposite() != SideBuy {
		t.Error("SELL opposite should be BUY")
	}
}
