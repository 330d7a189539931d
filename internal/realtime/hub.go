package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"PulseLoop/internal/pkg"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventJoined          = "joined"
	EventLeft            = "left"
	EventNewNotification = "new_notification"
	EventError           = "error"

	ActionJoin  = "join_user_room"
	ActionLeave = "leave_user_room"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
	maxMessage = 4096
)

// Frame 服务端推送给客户端的消息
type Frame struct {
	Event   string `json:"event"`
	UserID  uint64 `json:"userId,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type command struct {
	Action string `json:"action"`
	UserID uint64 `json:"userId"`
}

func EncodeFrame(event string, userID uint64, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, UserID: userID, Data: data})
}

type client struct {
	userID uint64
	conn   *websocket.Conn
	send   chan []byte
}

// Hub 管理本进程内的 websocket 连接，每个用户一个房间
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uint64]map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint64]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Accept 升级连接并阻塞到连接关闭
func (h *Hub) Accept(w http.ResponseWriter, r *http.Request, userID uint64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.Serve(conn, userID)
	return nil
}

func (h *Hub) Serve(conn *websocket.Conn, userID uint64) {
	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	done := make(chan struct{})
	go func() {
		h.writePump(c)
		close(done)
	}()
	h.readPump(c)
	h.remove(c)
	close(c.send)
	<-done
}

// Push 投递到本地房间，缓冲区满的连接直接丢弃该帧
func (h *Hub) Push(_ context.Context, userID uint64, event string, payload any) error {
	frame, err := EncodeFrame(event, userID, payload)
	if err != nil {
		return err
	}
	h.Deliver(userID, frame)
	return nil
}

func (h *Hub) Deliver(userID uint64, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		select {
		case c.send <- frame:
		default:
			pkg.Log.WithField("user_id", userID).Warn("realtime send buffer full, frame dropped")
		}
	}
}

// RoomSize 当前房间内的连接数
func (h *Hub) RoomSize(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) join(c *client, room uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) leave(c *client, room uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, room)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.rooms {
		h.dropLocked(c, room)
	}
}

func (h *Hub) dropLocked(c *client, room uint64) {
	set, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, room)
	}
}

// reply 只在 readPump 中调用，此时 send 尚未关闭
func (h *Hub) reply(c *client, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				pkg.Log.WithError(err).WithField("user_id", c.userID).Debug("websocket closed")
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.reply(c, Frame{Event: EventError, Message: "invalid message"})
			continue
		}
		switch cmd.Action {
		case ActionJoin:
			if cmd.UserID != c.userID {
				h.reply(c, Frame{Event: EventError, Message: "cannot join another user's room"})
				continue
			}
			h.join(c, cmd.UserID)
			h.reply(c, Frame{Event: EventJoined, UserID: cmd.UserID})
		case ActionLeave:
			h.leave(c, cmd.UserID)
			h.reply(c, Frame{Event: EventLeft, UserID: cmd.UserID})
		default:
			h.reply(c, Frame{Event: EventError, Message: "unknown action"})
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				pkg.Log.WithFields(logrus.Fields{"user_id": c.userID, "err": err}).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
