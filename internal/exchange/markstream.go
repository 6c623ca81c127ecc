package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jichang0619/aitrade/internal/infra"
)

const (
	fstreamURL        = "wss://fstream.binance.com/ws"
	fstreamTestnetURL = "wss://stream.binancefuture.com/ws"
)

// markPriceEvent is the payload of the <symbol>@markPrice stream.
type markPriceEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	MarkPrice string `json:"p"`
	EventTime int64  `json:"E"`
}

// MarkPriceStream subscribes to the Binance futures mark price stream for a
// single symbol and keeps the latest value in memory. The trading cycle reads
// the mark price over REST first and falls back to the stream when the REST
// call fails and the streamed value is still fresh.
type MarkPriceStream struct {
	symbol  string
	testnet bool
	worker  *infra.StreamWorker

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time
}

// NewMarkPriceStream creates a stream for one symbol. Call Start to connect.
func NewMarkPriceStream(symbol string, testnet bool) *MarkPriceStream {
	s := &MarkPriceStream{symbol: symbol, testnet: testnet}
	s.worker = infra.NewStreamWorker(s)
	return s
}

// Start connects in the background and reconnects on failure.
func (s *MarkPriceStream) Start(ctx context.Context) {
	s.worker.Start(ctx)
}

// Stop closes the connection and waits for the worker to exit.
func (s *MarkPriceStream) Stop() {
	s.worker.Stop()
}

// Latest returns the most recent mark price and when it arrived. The zero
// decimal means no update has been received yet.
func (s *MarkPriceStream) Latest() (decimal.Decimal, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price, s.updatedAt
}

func (s *MarkPriceStream) URL() string {
	base := fstreamURL
	if s.testnet {
		base = fstreamTestnetURL
	}
	return fmt.Sprintf("%s/%s@markPrice@1s", base, strings.ToLower(s.symbol))
}

func (s *MarkPriceStream) OnMessage(ctx context.Context, msg []byte) {
	var ev markPriceEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		slog.Debug("Mark stream: skipping malformed frame", "err", err)
		return
	}
	if ev.EventType != "markPriceUpdate" {
		return
	}

	p, err := decimal.NewFromString(ev.MarkPrice)
	if err != nil || p.IsZero() {
		return
	}

	s.mu.Lock()
	s.price = p
	s.updatedAt = time.UnixMilli(ev.EventTime)
	s.mu.Unlock()
}

func (s *MarkPriceStream) Name() string {
	return "markprice:" + strings.ToLower(s.symbol)
}
