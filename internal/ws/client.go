package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ordersync/go-order-backend/internal/services"
)

// Tunables for the connection pumps. Overridable per-hub via config in
// handler.go; these are the defaults.
const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultReadLimit  = 16 << 10 // 16 KiB per inbound frame
	defaultSendBuffer = 64
)

// Client is one live, authenticated websocket connection. The bound
// identity is immutable for the connection's life; room holds the single
// joined room id ("" while unjoined) and is owned by the hub loop.
type Client struct {
	hub      *Hub
	session  *Session
	conn     *websocket.Conn
	identity services.Identity

	// send carries pre-encoded frames to the write pump. It is never
	// closed; done signals shutdown instead so concurrent enqueues can
	// never hit a closed channel.
	send chan []byte
	done chan struct{}

	// room is written only by the hub run loop.
	room string

	closeOnce sync.Once

	writeWait time.Duration
	pongWait  time.Duration
	readLimit int64
}

// newClient wraps an upgraded connection with its resolved identity.
func newClient(hub *Hub, session *Session, conn *websocket.Conn, id services.Identity, opts Options) *Client {
	sendBuffer := opts.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	writeWait := opts.WriteTimeout
	if writeWait <= 0 {
		writeWait = defaultWriteWait
	}
	pongWait := opts.PongTimeout
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	readLimit := opts.ReadLimit
	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}
	return &Client{
		hub:       hub,
		session:   session,
		conn:      conn,
		identity:  id,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		writeWait: writeWait,
		pongWait:  pongWait,
		readLimit: readLimit,
	}
}

// enqueue hands a frame to the write pump without blocking. It reports
// false when the queue is full, which the hub treats as a dead connection.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendEvent delivers a scoped event to this connection only.
func (c *Client) sendEvent(event string, data any) {
	if frame := marshalEvent(event, data); frame != nil {
		c.enqueue(frame)
	}
}

// sendError delivers a scoped error event; never broadcast.
func (c *Client) sendError(msg string) {
	c.sendEvent(EventError, ErrorPayload{Message: msg})
}

// close shuts the underlying socket down once. The read pump unblocks and
// unregisters the client from the hub.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump consumes inbound frames and dispatches them to the session until
// the connection dies, then unregisters. Runs on its own goroutine; the
// base context outlives individual reads so in-flight store work is not
// cancelled by a disconnect.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_email", c.identity.Email).Msg("ws read failed")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("Malformed event")
			continue
		}
		c.session.Handle(ctx, c, env)
	}
}

// writePump drains the send queue to the socket and keeps the connection
// alive with pings. Exits when the queue closes or a write fails.
func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
