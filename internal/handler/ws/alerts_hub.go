package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Harry166/stro/internal/domain/models"
	xhttp "github.com/Harry166/stro/pkg/http"
	xlogger "github.com/Harry166/stro/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBuffer     = 16
	defaultMaxConn = 500
)

type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub pushes alert events to the websocket connections of their user.
// It satisfies repository.AlertPublisher, so it can sit behind the alert
// pipeline directly or behind the Kafka alerts consumer.
type Hub struct {
	l        *xlogger.Logger
	upgrader websocket.Upgrader
	maxConn  int

	mu    sync.RWMutex
	users map[int64]map[*client]struct{}
	total int
}

func NewHub(l *xlogger.Logger, maxConn int) *Hub {
	if maxConn <= 0 {
		maxConn = defaultMaxConn
	}
	return &Hub{
		l:       xlogger.Or(l),
		maxConn: maxConn,
		users:   make(map[int64]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alerts", h.Serve)
}

// Serve upgrades GET /ws/alerts?user_id=N.
func (h *Hub) Serve(c echo.Context) error {
	userID, err := strconv.ParseInt(c.QueryParam("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		return xhttp.MessageResponse(c, http.StatusBadRequest, "user_id must be a positive integer", nil)
	}
	h.mu.RLock()
	full := h.total >= h.maxConn
	h.mu.RUnlock()
	if full {
		return xhttp.MessageResponse(c, http.StatusServiceUnavailable, "too many connections", nil)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(cl)
	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// PublishAlert delivers ev to every connection of ev.UserID. Clients whose
// buffer is full are disconnected rather than waited on.
func (h *Hub) PublishAlert(_ context.Context, ev *models.AlertEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	var slow []*client
	h.mu.RLock()
	for cl := range h.users[ev.UserID] {
		select {
		case cl.send <- payload:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()
	for _, cl := range slow {
		h.l.Warn("websocket client too slow, disconnecting", xlogger.UserID(cl.userID))
		h.remove(cl)
	}
	return nil
}

// Connections returns the number of open sockets for userID.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for uid, set := range h.users {
		for cl := range set {
			cl.close()
		}
		delete(h.users, uid)
	}
	h.total = 0
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[cl.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.users[cl.userID] = set
	}
	set[cl] = struct{}{}
	h.total++
	h.l.Debug("websocket client connected", xlogger.UserID(cl.userID), xlogger.Int("total", h.total))
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.users[cl.userID]
	if _, ok := set[cl]; !ok {
		return
	}
	delete(set, cl)
	if len(set) == 0 {
		delete(h.users, cl.userID)
	}
	h.total--
	cl.close()
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.l.Debug("websocket read", xlogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
