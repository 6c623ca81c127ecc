package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// collectHandler records every message the worker delivers.
type collectHandler struct {
	url string

	mu   sync.Mutex
	msgs []string
	got  chan struct{}
	once sync.Once
}

func (h *collectHandler) URL() string { return h.url }
func (h *collectHandler) Name() string { return "collect" }

func (h *collectHandler) OnMessage(ctx context.Context, msg []byte) {
	h.mu.Lock()
	h.msgs = append(h.msgs, string(msg))
	h.mu.Unlock()
	h.once.Do(func() { close(h.got) })
}

func (h *collectHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestStreamWorker_DeliversMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"p":"50000"}`))
		// Hold the connection open until the worker hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := &collectHandler{
		url: "ws" + strings.TrimPrefix(srv.URL, "http"),
		got: make(chan struct{}),
	}
	w := NewStreamWorker(h)
	w.Start(context.Background())
	defer w.Stop()

	select {
	case <-h.got:
	case <-time.After(5 * time.Second):
		t.Fatal("no message delivered within 5s")
	}

	msgs := h.messages()
	if len(msgs) == 0 || msgs[0] != `{"p":"50000"}` {
		t.Errorf("messages = %q, want first frame passed through verbatim", msgs)
	}
}

func TestStreamWorker_StopUnblocksRead(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`hello`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	h := &collectHandler{
		url: "ws" + strings.TrimPrefix(srv.URL, "http"),
		got: make(chan struct{}),
	}
	w := NewStreamWorker(h)
	w.Start(context.Background())

	// Wait until the worker is connected and reading before stopping it.
	select {
	case <-h.got:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never connected")
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5s")
	}
}
