package domain

import "github.com/shopspring/decimal"

// Kline is one OHLCV candle. Consumed by the advisor for indicator
// computation; the execution engine never reads candles.
type Kline struct {
	OpenTimeMs int64
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.Decimal
}
