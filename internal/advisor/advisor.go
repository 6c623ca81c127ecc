package advisor

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/domain"
)

// IndicatorSet holds the latest value of each technical indicator computed
// over the candle history.
type IndicatorSet struct {
	SMA20      float64 `json:"sma_20"`
	EMA12      float64 `json:"ema_12"`
	RSI14      float64 `json:"rsi_14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`
	BBUpper    float64 `json:"bb_upper"`
	BBMiddle   float64 `json:"bb_middle"`
	BBLower    float64 `json:"bb_lower"`
}

// SentimentReading is the crowd fear & greed index.
type SentimentReading struct {
	Value          int
	Classification string
}

// MarketContext is everything the advisor sees before deciding.
type MarketContext struct {
	Symbol     string
	MarkPrice  decimal.Decimal
	Balance    decimal.Decimal
	Position   domain.PositionSnapshot
	Daily      []domain.Kline
	Hourly     []domain.Kline
	DailyInd   IndicatorSet
	HourlyInd  IndicatorSet
	Sentiment  SentimentReading
	Reflection string
}

// Advisor produces trading instructions from market context.
type Advisor interface {
	// Decide returns the next instruction. Leverage is left zero; the
	// caller fills it from configuration.
	Decide(ctx context.Context, mctx MarketContext) (domain.TradingInstruction, error)

	// Reflect reviews recent trade history and returns lessons to feed
	// into the next Decide call.
	Reflect(ctx context.Context, trades []domain.TradeRecord, markPrice decimal.Decimal) (string, error)
}
