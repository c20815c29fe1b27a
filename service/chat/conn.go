package chat

import (
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/ids"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPingInterval = 25 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultWriteWait    = 10 * time.Second
)

// Conn is one live connection. It belongs to at most one user, fixed at
// handshake, and is never persisted.
type Conn struct {
	id        string
	userID    string
	ws        *websocket.Conn
	send      chan []byte // drained by the single writer goroutine
	closed    chan struct{}
	closeOnce sync.Once
	createdAt time.Time
}

func newConn(userID string, ws *websocket.Conn, queue int) *Conn {
	if queue <= 0 {
		queue = 256
	}
	return &Conn{
		id:        ids.GenerateString(),
		userID:    userID,
		ws:        ws,
		send:      make(chan []byte, queue),
		closed:    make(chan struct{}),
		createdAt: time.Now(),
	}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// Enqueue hands a frame to the writer without blocking. It reports false when
// the queue is full or the connection is closing; the frame is dropped.
func (c *Conn) Enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		logger.Warn("[WS] send queue full, drop frame", zap.String("conn", c.id), zap.String("user", c.userID))
		return false
	}
}

// Close stops the writer, which then closes the socket.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Conn) Done() <-chan struct{} { return c.closed }

// writePump is the only goroutine that writes to ws.
func (c *Conn) writePump(pingEvery, writeWait time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Info("[WS] write failed", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Info("[WS] ping failed", zap.String("conn", c.id), zap.String("user", c.userID), zap.Error(err))
				c.Close()
				return
			}
		}
	}
}
