package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ChatRelay/logger"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 5 * time.Second

	// pongWait is how long we wait for a pong before declaring the
	// connection dead. pingPeriod must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1 << 20 // 1MB
)

// Client is one authenticated connection on the local gateway.
// All writes to the socket go through the Send queue and a single
// writer goroutine.
type Client struct {
	ConnID string          // unique within the local gateway
	UserID string          // identity, fixed after authentication
	WS     *websocket.Conn
	Send   chan []byte

	mu     sync.Mutex // serializes CloseSend against TrySend
	closed bool
}

func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// TrySend enqueues an outbound frame without blocking. A full queue
// means a slow client; the frame is dropped and false returned. After
// CloseSend every call returns false: senders holding a stale handle,
// such as a fanout worker draining a pre-disconnect snapshot, must
// never hit the closed queue.
func (c *Client) TrySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// CloseSend shuts the outbound queue, stopping the writer. Safe to call
// more than once and safe against concurrent TrySend.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// WritePump drains the send queue onto the socket and keeps the
// connection alive with pings. One writer per connection; it exits when
// the queue closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.WS.Close()
	}()
	for {
		select {
		case data, ok := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.WS.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.WS.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Infof("[WS] write err user=%s conn=%s err=%v", c.UserID, c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
