package advisor

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/jichang0619/aitrade/internal/domain"
)

// minCandles is the shortest history the indicator set can be computed
// over: MACD needs 26 + 9 warm-up candles.
const minCandles = 35

// ComputeIndicators derives the indicator set from a candle series, oldest
// first. Only the latest value of each indicator is kept.
func ComputeIndicators(klines []domain.Kline) (IndicatorSet, error) {
	if len(klines) < minCandles {
		return IndicatorSet{}, fmt.Errorf("need at least %d candles, got %d", minCandles, len(klines))
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i], _ = k.Close.Float64()
	}

	sma := talib.Sma(closes, 20)
	ema := talib.Ema(closes, 12)
	rsi := talib.Rsi(closes, 14)
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)

	last := len(closes) - 1
	return IndicatorSet{
		SMA20:      sma[last],
		EMA12:      ema[last],
		RSI14:      rsi[last],
		MACD:       macd[last],
		MACDSignal: signal[last],
		MACDHist:   hist[last],
		BBUpper:    upper[last],
		BBMiddle:   middle[last],
		BBLower:    lower[last],
	}, nil
}
