package ws

import "time"

// Notifier is the bridge that lets non-realtime collaborators (HTTP
// handlers) push lifecycle events into a live room without knowing anything
// about connections. It is used exclusively for lifecycle events such as
// chatClosed; chat messages always flow through the Session send path.
type Notifier struct {
	hub *Hub
}

// NewNotifier wraps the hub's broadcast primitive.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// Notify broadcasts an event to every connection currently in orderID's
// room. A room with no live members is a no-op.
func (n *Notifier) Notify(orderID, event string, payload any) {
	n.hub.Broadcast(orderID, event, payload)
}

// ChatClosedPayload is the data broadcast when an admin closes a room.
type ChatClosedPayload struct {
	OrderID   string    `json:"order_id"`
	Summary   string    `json:"summary"`
	ClosedBy  string    `json:"closed_by"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyChatClosed emits the chatClosed lifecycle event for orderID.
func (n *Notifier) NotifyChatClosed(orderID, summary, closedBy string) {
	n.Notify(orderID, EventChatClosed, ChatClosedPayload{
		OrderID:   orderID,
		Summary:   summary,
		ClosedBy:  closedBy,
		Timestamp: time.Now().UTC(),
	})
}
