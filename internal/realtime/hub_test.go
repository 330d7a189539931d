package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(r.URL.Query().Get("uid"), 10, 64)
		_ = hub.Accept(w, r, id)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, uid uint64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?uid=" + strconv.FormatUint(uid, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f map[string]any
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHubJoinAndPush(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 7)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": ActionJoin, "userId": 7}))
	f := readFrame(t, conn)
	assert.Equal(t, EventJoined, f["event"])
	assert.Equal(t, float64(7), f["userId"])
	assert.Equal(t, 1, hub.RoomSize(7))

	require.NoError(t, hub.Push(context.Background(), 7, EventNewNotification, map[string]any{"title": "hi"}))
	f = readFrame(t, conn)
	assert.Equal(t, EventNewNotification, f["event"])
	assert.Equal(t, "hi", f["data"].(map[string]any)["title"])
}

func TestHubRefusesForeignRoom(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 7)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": ActionJoin, "userId": 8}))
	f := readFrame(t, conn)
	assert.Equal(t, EventError, f["event"])
	assert.Equal(t, 0, hub.RoomSize(8))
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 3)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": ActionJoin, "userId": 3}))
	readFrame(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]any{"action": ActionLeave, "userId": 3}))
	f := readFrame(t, conn)
	assert.Equal(t, EventLeft, f["event"])
	assert.Equal(t, 0, hub.RoomSize(3))

	// 未加入房间时推送无人接收
	require.NoError(t, hub.Push(context.Background(), 3, EventNewNotification, "x"))
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHubRemovesClosedConnection(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)
	conn := dial(t, srv, 5)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": ActionJoin, "userId": 5}))
	readFrame(t, conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.RoomSize(5) == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "realtime:user:42", Channel(42))
}
