package hub

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

type connState int

const (
	stateAnonymous connState = iota
	stateIdentified
	stateClosed
)

// Client is one live connection. state, userID, and rooms belong to the
// protocol state machine: state and userID are touched only from the
// connection's own read loop, rooms and closed are guarded by the hub lock
// because broadcasts read them.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	addr string

	state  connState
	userID string
	rooms  map[string]struct{}
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(h.maxMessageSize)
	}
	return &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		addr:  addr,
		state: stateAnonymous,
		rooms: make(map[string]struct{}),
	}
}

// readPump consumes inbound frames and dispatches them one at a time, so a
// connection's own events are never reordered. It drives the disconnect
// transition on exit.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "addr", c.addr, "err", err)
			}
			return
		}
		c.hub.dispatch(c, raw)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
