package wsrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	messageType string
	payload     string
	err         error
}

func serveRouter(t *testing.T, router *WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		router.ServeConn(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func receive(t *testing.T, ch chan dispatched) dispatched {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
		return dispatched{}
	}
}

func TestDispatchByType(t *testing.T) {
	calls := make(chan dispatched, 4)

	router := New()
	router.Handle("ping", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		calls <- dispatched{messageType: GetMessageTypeFromCtx(ctx), payload: string(payload)}
		return nil
	})
	router.Handle("echo", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		calls <- dispatched{messageType: GetMessageTypeFromCtx(ctx), payload: string(payload)}
		return nil
	})

	conn := serveRouter(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "echo", "payload": map[string]any{"text": "hi"}}))
	d := receive(t, calls)
	assert.Equal(t, "echo", d.messageType)
	assert.JSONEq(t, `{"text":"hi"}`, d.payload)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	d = receive(t, calls)
	assert.Equal(t, "ping", d.messageType)
}

func TestUnknownTypeIsDropped(t *testing.T) {
	calls := make(chan dispatched, 4)

	router := New()
	router.Handle("known", func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		calls <- dispatched{messageType: "known"}
		return nil
	})

	conn := serveRouter(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "mystery"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "known"}))

	d := receive(t, calls)
	assert.Equal(t, "known", d.messageType, "unknown type must be skipped, not kill the loop")
}

func TestTypedDecodesPayload(t *testing.T) {
	type chatInput struct {
		Content string `json:"content"`
	}

	calls := make(chan dispatched, 4)
	errs := make(chan dispatched, 4)

	router := New()
	router.Handle("chat_message", Typed(func(ctx context.Context, conn *websocket.Conn, input chatInput) error {
		calls <- dispatched{payload: input.Content}
		return nil
	}))
	router.OnError(func(ctx context.Context, conn *websocket.Conn, messageType string, err error) {
		errs <- dispatched{messageType: messageType, err: err}
	})

	conn := serveRouter(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat_message", "payload": map[string]any{"content": "hello"}}))
	d := receive(t, calls)
	assert.Equal(t, "hello", d.payload)

	// payload of the wrong shape surfaces through OnError
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat_message", "payload": map[string]any{"content": 42}}))
	d = receive(t, errs)
	assert.Equal(t, "chat_message", d.messageType)
	assert.ErrorIs(t, d.err, ErrMalformedPayload)

	// the loop survives the error
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chat_message", "payload": map[string]any{"content": "still here"}}))
	d = receive(t, calls)
	assert.Equal(t, "still here", d.payload)
}
