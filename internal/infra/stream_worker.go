package infra

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StreamHandler supplies the endpoint and message handling for a StreamWorker.
type StreamHandler interface {
	URL() string
	OnMessage(ctx context.Context, msg []byte)
	Name() string
}

// StreamWorker keeps one read-only websocket subscription alive. It dials the
// handler's URL, reads until the connection breaks, then redials with
// exponential backoff. The server initiates pings; gorilla's default ping
// handler answers them during ReadMessage, so the worker never writes frames
// of its own.
type StreamWorker struct {
	handler StreamHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// ReadTimeout bounds each ReadMessage call. Binance pings every three
	// minutes, so a quiet healthy connection still produces traffic well
	// inside the default.
	ReadTimeout time.Duration
}

// NewStreamWorker creates a worker for the given handler. Call Start to
// connect.
func NewStreamWorker(handler StreamHandler) *StreamWorker {
	return &StreamWorker{
		handler:     handler,
		ReadTimeout: 4 * time.Minute,
	}
}

// Start launches the connect/read loop in the background.
func (w *StreamWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop closes the connection and waits for the loop to exit.
func (w *StreamWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConn()
	w.wg.Wait()
}

func (w *StreamWorker) run(ctx context.Context) {
	defer w.wg.Done()

	attempt := 0
	for ctx.Err() == nil {
		conn, err := w.dial(ctx)
		if err != nil {
			delay := CalculateBackoff(attempt)
			attempt++
			slog.Warn("Stream connect failed",
				"stream", w.handler.Name(), "err", err, "retry_in", delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		slog.Info("Stream connected", "stream", w.handler.Name())
		w.read(ctx, conn)
	}
}

func (w *StreamWorker) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	return conn, nil
}

// read pumps messages into the handler until the connection dies.
func (w *StreamWorker) read(ctx context.Context, conn *websocket.Conn) {
	defer w.closeConn()

	for {
		conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("Stream read error", "stream", w.handler.Name(), "err", err)
			}
			return
		}
		w.handler.OnMessage(ctx, msg)
	}
}

func (w *StreamWorker) closeConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
