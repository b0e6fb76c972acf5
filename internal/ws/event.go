// Package ws implements the realtime chat layer: authenticated websocket
// connections, per-order room membership, ordered message broadcast, and the
// bridge that lets the HTTP layer push lifecycle events into live rooms.
//
// Wire protocol: every frame is a JSON envelope {"event": ..., "data": ...}.
// Clients send joinOrderRoom and sendMessage; the server emits chatHistory,
// newMessage, chatClosed, and connection-scoped error events.
package ws

import "encoding/json"

// Client → server events.
const (
	EventJoinOrderRoom = "joinOrderRoom"
	EventSendMessage   = "sendMessage"
)

// Server → client events.
const (
	// EventChatHistory delivers the room's full message log to the joining
	// connection only, immediately after a successful join.
	EventChatHistory = "chatHistory"
	// EventNewMessage is broadcast to every member of a room, including the
	// sender, in persistence order.
	EventNewMessage = "newMessage"
	// EventChatClosed is the lifecycle broadcast emitted when an admin closes
	// a room via the HTTP layer.
	EventChatClosed = "chatClosed"
	// EventError is always scoped to a single connection, never broadcast.
	EventError = "error"
)

// Envelope is the frame wrapper for both directions. Data is kept raw on
// input so each handler decodes its own payload shape.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the client payload for joinOrderRoom.
type JoinPayload struct {
	OrderID string `json:"order_id"`
}

// SendPayload is the client payload for sendMessage.
type SendPayload struct {
	OrderID string `json:"order_id"`
	Content string `json:"content"`
}

// ErrorPayload is the data carried by a scoped error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalEvent encodes an outbound envelope. Encoding failures are
// programming errors (all payloads are plain structs); they surface as a
// nil frame that the caller drops.
func marshalEvent(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	b, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil
	}
	return b
}
