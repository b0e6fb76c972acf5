package ws

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	// wsConnections gauges the number of live websocket connections.
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_active",
		Help: "Current number of live websocket connections.",
	})

	// wsBroadcasts counts room broadcasts by event kind.
	wsBroadcasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_broadcasts_total",
			Help: "Total number of room broadcasts.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsBroadcasts)
}

// joinRequest asks the hub loop to move a client into a room. The done
// channel is closed once membership is installed so the requester can push
// history knowing the client will see every later broadcast.
type joinRequest struct {
	client *Client
	room   string
	done   chan struct{}
}

// broadcastRequest carries one pre-encoded frame to every member of a room.
type broadcastRequest struct {
	room  string
	event string
	frame []byte
}

// Hub owns the membership table: which live connections are currently in
// which order room. All structural mutation is funneled through the run
// loop's channels, giving the table a single writer; the durable store
// remains the only source of truth for message content, so the table is
// rebuildable; losing it on restart loses no chat data.
//
// Broadcast order follows enqueue order: frames for the same room are fanned
// out in the sequence they entered the broadcast channel. The Session layer
// serializes sends per room before enqueueing, so broadcast order always
// matches persistence order.
type Hub struct {
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	broadcast  chan broadcastRequest
	done       chan struct{}

	// guards lifecycle state for Notify callers racing shutdown
	mu      sync.Mutex
	stopped bool
}

// NewHub constructs a Hub; call Run on a dedicated goroutine before use.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		broadcast:  make(chan broadcastRequest, 256),
		done:       make(chan struct{}),
	}
}

// Run processes registration, membership, and broadcast events until ctx is
// cancelled, then closes every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			wsConnections.Inc()
			log.Info().Str("user_email", c.identity.Email).Msg("ws connection registered")
		case c := <-h.unregister:
			h.evict(c)
		case req := <-h.join:
			h.installMembership(req.client, req.room)
			close(req.done)
		case req := <-h.broadcast:
			h.fanOut(req)
		}
	}
}

// Register announces a new authenticated connection to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a connection from any room it joined. Idempotent; no
// event is broadcast to remaining members.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join installs c as a member of room and returns once the membership is
// visible to subsequent broadcasts. A connection is in at most one room;
// joining again moves it.
func (h *Hub) Join(c *Client, room string) {
	req := joinRequest{client: c, room: room, done: make(chan struct{})}
	select {
	case h.join <- req:
		<-req.done
	case <-h.done:
	}
}

// Broadcast fans out an event to every current member of room, including
// the connection that triggered it. Frames enqueued for the same room are
// delivered to each member in enqueue order.
func (h *Hub) Broadcast(room, event string, data any) {
	frame := marshalEvent(event, data)
	if frame == nil {
		return
	}
	select {
	case h.broadcast <- broadcastRequest{room: room, event: event, frame: frame}:
	case <-h.done:
	}
}

// installMembership moves c into room, leaving any previous room first.
func (h *Hub) installMembership(c *Client, room string) {
	if c.room != "" && c.room != room {
		h.removeFromRoom(c, c.room)
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.room = room
}

// evict removes c from its room and accounts for the closed connection.
func (h *Hub) evict(c *Client) {
	if c.room != "" {
		h.removeFromRoom(c, c.room)
		c.room = ""
	}
	wsConnections.Dec()
	log.Info().Str("user_email", c.identity.Email).Msg("ws connection closed")
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// fanOut pushes a frame to every member's send queue. A member whose queue
// is full is dropped rather than allowed to stall the room; its pumps will
// unregister it.
func (h *Hub) fanOut(req broadcastRequest) {
	members := h.rooms[req.room]
	if len(members) == 0 {
		return
	}
	wsBroadcasts.WithLabelValues(req.event).Inc()
	for c := range members {
		if !c.enqueue(req.frame) {
			log.Warn().Str("user_email", c.identity.Email).Msg("ws send queue full, dropping connection")
			h.removeFromRoom(c, req.room)
			c.close()
		}
	}
}

// shutdown closes all live connections and marks the hub stopped.
func (h *Hub) shutdown() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	for room, members := range h.rooms {
		for c := range members {
			c.close()
		}
		delete(h.rooms, room)
	}
	close(h.done)
	log.Info().Msg("ws hub stopped")
}
