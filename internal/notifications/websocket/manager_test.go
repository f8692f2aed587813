package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agronity/agronity-backend/internal/notifications"
)

func newTestServer(t *testing.T, handler RequestHandler) (*Manager, string) {
	t.Helper()
	m := NewManager(handler, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.HandleConnection(w, r); err != nil {
			t.Logf("handle connection: %v", err)
		}
	}))
	t.Cleanup(func() {
		m.Close()
		srv.Close()
	})
	return m, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaws.Conn) notifications.WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg notifications.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestAnalyzeRequestGetsResult(t *testing.T) {
	_, url := newTestServer(t, func(_ context.Context, msg notifications.WebSocketMessage) (notifications.WebSocketMessage, error) {
		var q map[string]interface{}
		if err := json.Unmarshal(msg.Data, &q); err != nil {
			return notifications.WebSocketMessage{}, err
		}
		data, _ := json.Marshal(map[string]interface{}{"crop": q["crop"], "feasible": true})
		return notifications.WebSocketMessage{Data: data}, nil
	})
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{
		Type:      notifications.WSMessageTypeAnalyze,
		RequestID: "req-1",
		Data:      []byte(`{"crop":"wheat"}`),
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeResult, msg.Type)
	assert.Equal(t, "req-1", msg.RequestID)
	assert.JSONEq(t, `{"crop":"wheat","feasible":true}`, string(msg.Data))
}

func TestHandlerErrorAndUnknownType(t *testing.T) {
	_, url := newTestServer(t, func(context.Context, notifications.WebSocketMessage) (notifications.WebSocketMessage, error) {
		return notifications.WebSocketMessage{}, errors.New("missing field: district")
	})
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{Type: notifications.WSMessageTypeAnalyze, RequestID: "a"}))
	msg := readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "district")

	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{Type: "subscribe", RequestID: "b"}))
	msg = readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeError, msg.Type)
	assert.Equal(t, "b", msg.RequestID)
}

func TestHandlerPanicKeepsConnection(t *testing.T) {
	calls := 0
	_, url := newTestServer(t, func(context.Context, notifications.WebSocketMessage) (notifications.WebSocketMessage, error) {
		calls++
		if calls == 1 {
			panic("index out of range [0] with length 0")
		}
		return notifications.WebSocketMessage{Data: []byte(`{"feasible":false}`)}, nil
	})
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{Type: notifications.WSMessageTypeAnalyze, RequestID: "boom"}))
	msg := readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeError, msg.Type)
	assert.Equal(t, "boom", msg.RequestID)
	assert.Contains(t, string(msg.Data), "internal error")

	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{Type: notifications.WSMessageTypeAnalyze, RequestID: "next"}))
	msg = readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeResult, msg.Type)
	assert.Equal(t, "next", msg.RequestID)
}

func TestPresenceAndBroadcast(t *testing.T) {
	m, url := newTestServer(t, nil)
	conn := dial(t, url)

	// the status reply proves the connection is registered with the hub
	require.NoError(t, conn.WriteJSON(notifications.WebSocketMessage{Type: notifications.WSMessageTypePresence}))
	status := readMessage(t, conn)
	require.Equal(t, notifications.WSMessageTypeStatus, status.Type)
	assert.Equal(t, 1, m.GetConnectionCount())
	require.Len(t, m.GetConnectionInfo(), 1)

	require.NoError(t, m.Broadcast(notifications.WebSocketMessage{
		Type: notifications.WSMessageTypeAlert,
		Data: []byte(`{"crop":"Tomato"}`),
	}))
	alert := readMessage(t, conn)
	assert.Equal(t, notifications.WSMessageTypeAlert, alert.Type)
	assert.JSONEq(t, `{"crop":"Tomato"}`, string(alert.Data))
}

func TestBroadcastAfterClose(t *testing.T) {
	m := NewManager(nil, nil)
	m.Close()

	assert.ErrorIs(t, m.Broadcast(notifications.WebSocketMessage{Type: notifications.WSMessageTypeAlert}), errManagerClosed)
}
