package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ChatRelay/logger"
	"ChatRelay/tools/errs"
	"ChatRelay/tools/ids"
	"ChatRelay/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client-facing auth failure messages. Auth failures always terminate
// the connection after the error event.
const (
	msgNoToken      = "No token provided. Please log in."
	msgInvalidToken = "Invalid token. Please log in again."
	msgUserNotFound = "User not found."
)

// HandleWS upgrades the request and runs the connection state machine:
// Connecting -> Authenticated -> Closed. The token travels in the
// ?token query parameter or the Authorization header.
func (g *Gateway) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	client, ok := g.authenticate(ws, c.Request)
	if !ok {
		return
	}

	g.registry.Register(client)
	go client.WritePump()
	g.persistHandle(client)
	logger.Infof("[WS] connected user=%s conn=%s online=%d", client.UserID, client.ConnID, g.registry.Len())

	g.readLoop(client)
	g.teardown(client)
}

// authenticate drives Connecting -> Authenticated. Any failure emits an
// error event, force-closes the socket and returns ok=false. The whole
// sequence is bounded by the configured auth timeout; a connection
// never sits half-open waiting on a slow collaborator.
func (g *Gateway) authenticate(ws *websocket.Conn, r *http.Request) (*Client, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.AuthTimeout)
	defer cancel()

	token := security.TokenFromRequest(r)
	if token == "" {
		closeWithError(ws, msgNoToken)
		return nil, false
	}

	uid, err := g.tokens.Verify(token)
	if err != nil {
		logger.Infof("[WS] token rejected: %v", err)
		closeWithError(ws, msgInvalidToken)
		return nil, false
	}

	u, err := g.store.FindByID(ctx, uid)
	if err != nil {
		if !errs.ErrRecordNotFound.Is(err) {
			logger.Errorf("[WS] resolve user=%s err=%v", uid, err)
		}
		closeWithError(ws, msgUserNotFound)
		return nil, false
	}

	return NewClient(ids.GenerateString(), u.UserID, ws, g.cfg.SendQueue), true
}

// readLoop processes the connection's inbound events in arrival order
// until the peer goes away. Routing and parse failures are reported to
// the sender and never close the connection.
func (g *Gateway) readLoop(client *Client) {
	ws := client.WS
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			logger.Infof("[WS] bad frame conn=%s err=%v", client.ConnID, err)
			g.sendError(client, msgDirectParseError)
			continue
		}

		switch frame.Event {
		case EventDirect:
			g.handleDirect(client, frame.Data)
		case EventGroup:
			g.handleBroadcast(client, frame.Data)
		}
	}
}

func closeWithError(ws *websocket.Conn, message string) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.TextMessage, EncodeError(message))
	_ = ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""))
	_ = ws.Close()
}
