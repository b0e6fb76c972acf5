package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/services"
)

// ChatBackend is the slice of ChatService the realtime layer needs: access
// decisions, history replay, and validated appends. Implementations must be
// safe for concurrent use and honor context cancellation.
type ChatBackend interface {
	// Authorize decides whether an identity may enter an order's room.
	Authorize(ctx context.Context, id services.Identity, orderID string) (*domain.Order, error)
	// History returns the room's messages in commit order.
	History(ctx context.Context, orderID string) ([]services.ChatMessage, error)
	// Append validates and durably persists one message.
	Append(ctx context.Context, id services.Identity, orderID, content string) (*services.ChatMessage, error)
}

// Session routes decoded events from live connections into the chat backend
// and back out through the hub. One Session serves every connection.
//
// Ordering: sends to the same room are serialized by a per-room mutex held
// across the append and the broadcast enqueue, so the hub's FIFO broadcast
// channel always carries frames in persistence order. Sends to different
// rooms proceed in parallel.
type Session struct {
	Hub  *Hub
	Chat ChatBackend

	// StoreTimeout bounds each store call so a wedged database fails the
	// caller instead of hanging the connection. Zero means 5s.
	StoreTimeout time.Duration

	roomMu sync.Map // room id -> *sync.Mutex
}

// NewSession wires a Session to the hub and chat backend.
func NewSession(hub *Hub, chat ChatBackend, storeTimeout time.Duration) *Session {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Session{Hub: hub, Chat: chat, StoreTimeout: storeTimeout}
}

// Handle dispatches one inbound envelope from c. Unknown events get a
// scoped error; they never kill the connection.
func (s *Session) Handle(ctx context.Context, c *Client, env Envelope) {
	switch env.Event {
	case EventJoinOrderRoom:
		var p JoinPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.OrderID == "" {
			c.sendError("Malformed event")
			return
		}
		s.handleJoin(ctx, c, p.OrderID)
	case EventSendMessage:
		var p SendPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.OrderID == "" {
			c.sendError("Malformed event")
			return
		}
		s.handleSend(ctx, c, p.OrderID, p.Content)
	default:
		c.sendError("Unknown event: " + env.Event)
	}
}

// handleJoin authorizes, installs room membership, and replays history to
// the joining connection alone. On denial the connection stays open and
// unjoined; the denial is never broadcast.
//
// Membership is installed before the history read, so a message committed
// in that window can arrive twice: once as a live newMessage and again
// inside chatHistory. The join never misses a message; clients that care
// can dedupe on message id.
func (s *Session) handleJoin(ctx context.Context, c *Client, orderID string) {
	sctx, cancel := context.WithTimeout(ctx, s.StoreTimeout)
	defer cancel()

	if _, err := s.Chat.Authorize(sctx, c.identity, orderID); err != nil {
		c.sendError(s.clientMessage(err))
		return
	}

	s.Hub.Join(c, orderID)
	log.Info().
		Str("user_email", c.identity.Email).
		Str("order_id", orderID).
		Msg("ws joined order room")

	history, err := s.Chat.History(sctx, orderID)
	if err != nil {
		c.sendError(s.clientMessage(err))
		return
	}
	c.sendEvent(EventChatHistory, history)
}

// handleSend persists the message and broadcasts it to the whole room in
// commit order. Every failure is reported to the sender only. The append
// runs on a store-scoped context detached from the connection: a sender
// that disconnects mid-flight does not cancel persistence, and remaining
// members still receive the broadcast.
func (s *Session) handleSend(ctx context.Context, c *Client, orderID, content string) {
	if c.room != orderID {
		c.sendError("Join the order room first")
		return
	}

	mu := s.roomLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.StoreTimeout)
	defer cancel()

	msg, err := s.Chat.Append(sctx, c.identity, orderID, content)
	if err != nil {
		c.sendError(s.clientMessage(err))
		return
	}

	// Enqueued under the room lock: broadcast order == persistence order.
	s.Hub.Broadcast(orderID, EventNewMessage, msg)
}

// roomLock returns the mutex serializing sends for a room id.
func (s *Session) roomLock(orderID string) *sync.Mutex {
	mu, _ := s.roomMu.LoadOrStore(orderID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// clientMessage maps a backend error to the string shown to the client.
// Sentinel errors carry their own safe wording; anything else (including a
// store timeout) collapses to a generic notice and is logged server-side.
func (s *Session) clientMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrRoomClosed),
		errors.Is(err, services.ErrEmptyContent):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Msg("ws store call timed out")
		return "Service temporarily unavailable"
	default:
		log.Error().Err(err).Msg("ws backend error")
		return "Something went wrong"
	}
}
