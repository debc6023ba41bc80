package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnPair(t *testing.T) (client, server *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-serverConns
	t.Cleanup(func() { server.Close() })

	return client, server
}

// Replies must go through the injected writer so they share the server's
// per-connection lock and never interleave with broadcasts issued from other
// read loops.
func TestServeConnRepliesThroughWriter(t *testing.T) {
	client, server := newConnPair(t)

	var mu sync.Mutex
	var replies atomic.Int32
	write := func(ctx context.Context, conn *websocket.Conn, v any) error {
		mu.Lock()
		defer mu.Unlock()
		replies.Add(1)
		return conn.WriteJSON(v)
	}

	router := New(write)
	router.Handle("failing", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		return errors.New("handler failed")
	})

	served := make(chan error, 1)
	go func() {
		served <- router.ServeConn(context.Background(), server)
	}()

	// concurrent broadcaster sharing the same lock
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			mu.Lock()
			server.WriteJSON(map[string]string{"type": "noise"})
			mu.Unlock()
		}
	}()

	require.NoError(t, client.WriteJSON(map[string]string{"type": "no-such-type"}))
	require.NoError(t, client.WriteJSON(map[string]string{"type": "failing"}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	sawUnknown, sawHandlerErr := false, false
	for !sawUnknown || !sawHandlerErr {
		var msg map[string]string
		require.NoError(t, client.ReadJSON(&msg))
		switch msg["error"] {
		case "unknown message type":
			sawUnknown = true
		case "handler failed":
			sawHandlerErr = true
		}
	}

	close(stop)
	wg.Wait()

	assert.Equal(t, int32(2), replies.Load(), "every reply must go through the injected writer")

	client.Close()
	require.Error(t, <-served, "read error must be surfaced for disconnect cleanup")
}

func TestServeConnDispatchesByType(t *testing.T) {
	client, server := newConnPair(t)

	write := func(ctx context.Context, conn *websocket.Conn, v any) error {
		return conn.WriteJSON(v)
	}

	got := make(chan string, 1)
	router := New(write)
	router.Handle("echo", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var body struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}

		got <- body.Value
		assert.Equal(t, "echo", GetMessageTypeFromCtx(ctx))
		return nil
	})

	served := make(chan error, 1)
	go func() {
		served <- router.ServeConn(context.Background(), server)
	}()

	require.NoError(t, client.WriteJSON(map[string]any{
		"type":    "echo",
		"payload": map[string]string{"value": "hello"},
	}))

	select {
	case value := <-got:
		assert.Equal(t, "hello", value)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}

	client.Close()
	require.Error(t, <-served)
}
