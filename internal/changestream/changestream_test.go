package changestream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type recordingSink struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (s *recordingSink) Submit(ids ...int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, ids...)
	return nil
}

func (s *recordingSink) snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.ids...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.ReconnectBaseWait = 10 * time.Millisecond
	cfg.ReconnectMaxWait = 50 * time.Millisecond
	return cfg
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []int64
		wantErr bool
	}{
		{"single", `{"item_id": 7}`, []int64{7}, false},
		{"batch", `{"item_ids": [3, 4, 5]}`, []int64{3, 4, 5}, false},
		{"both", `{"item_id": 1, "item_ids": [2]}`, []int64{1, 2}, false},
		{"ack", `{"type": "subscribed", "id": "abc"}`, nil, false},
		{"zero id", `{"item_id": 0}`, nil, true},
		{"negative in batch", `{"item_ids": [1, -2]}`, nil, true},
		{"not json", `item 5 changed`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEvent([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriber_ForwardsEvents(t *testing.T) {
	subscribed := make(chan SubscribeCommand, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		var cmd SubscribeCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		subscribed <- cmd

		msgs := []string{
			`{"type": "subscribed"}`,
			`{"item_id": 10}`,
			`garbage`,
			`{"item_ids": [11, 12]}`,
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	sink := &recordingSink{}
	sub := NewSubscriber(testConfig(wsURL(server)), sink, nil, nil)
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case cmd := <-subscribed:
		if cmd.Cmd != "subscribe" || cmd.Channel != "catalog_changes" {
			t.Errorf("unexpected subscribe command: %+v", cmd)
		}
		if cmd.ID == "" {
			t.Error("subscription id should be set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscribe")
	}

	waitFor(t, 2*time.Second, func() bool { return len(sink.snapshot()) == 3 })
	if got := sink.snapshot(); !reflect.DeepEqual(got, []int64{10, 11, 12}) {
		t.Errorf("ids = %v, want [10 11 12]", got)
	}
	received, invalid := sub.Stats()
	if received != 4 || invalid != 1 {
		t.Errorf("stats = (%d, %d), want (4, 1)", received, invalid)
	}
	if !sub.Connected() {
		t.Error("expected Connected to be true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sub.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if sub.Connected() {
		t.Error("expected Connected to be false after Stop")
	}
}

func TestSubscriber_Reconnects(t *testing.T) {
	var conns atomic.Int32
	server := mockWSServer(t, func(conn *websocket.Conn) {
		n := conns.Add(1)
		var cmd SubscribeCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		msg, _ := json.Marshal(map[string]int64{"item_id": int64(n)})
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
		if n == 1 {
			// Drop the first connection.
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	sink := &recordingSink{}
	sub := NewSubscriber(testConfig(wsURL(server)), sink, nil, nil)
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = sub.Stop(ctx)
	}()

	waitFor(t, 3*time.Second, func() bool { return len(sink.snapshot()) >= 2 })
	got := sink.snapshot()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("ids = %v, want [1 2 ...]", got)
	}
	if conns.Load() < 2 {
		t.Errorf("connections = %d, want at least 2", conns.Load())
	}
}

func TestSubscriber_ConnectFailureRetries(t *testing.T) {
	sub := NewSubscriber(testConfig("ws://127.0.0.1:1"), &recordingSink{}, nil, nil)
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if sub.Connected() {
		t.Error("expected no connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sub.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestSubscriber_SinkErrorIsNotFatal(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		var cmd SubscribeCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"item_id": 1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"item_id": 2}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	sink := &recordingSink{err: errors.New("closed")}
	sub := NewSubscriber(testConfig(wsURL(server)), sink, nil, nil)
	if err := sub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		received, _ := sub.Stats()
		return received == 2
	})
	if !sub.Connected() {
		t.Error("sink errors should not drop the connection")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sub.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
