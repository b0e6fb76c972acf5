// Package services – ChatService
//
// This file implements ChatService, the application-level component behind
// the real-time chat subsystem: room access control, message append/history,
// and the open → closed lifecycle transition. The realtime layer and the
// HTTP handlers both call into it; neither touches the repo package for chat
// data directly.
//
// Error semantics deliberately collapse "order missing" and "not yours" into
// a single ErrAccessDenied so an unauthorized caller cannot probe which
// orders exist. All other predictable cases return sentinel errors from
// errors.go so transports can map them consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// order and user identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChatMessage is a persisted message with its author expanded for display.
// The author view carries id, email, and role only, never credentials.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      Identity  `json:"user"`
}

// RoomView is the HTTP read model for a room: full history plus lifecycle
// state and the close summary (empty while open).
type RoomView struct {
	Messages []ChatMessage `json:"messages"`
	IsClosed bool          `json:"is_closed"`
	Summary  string        `json:"summary"`
}

// ClosedRoom pairs a closed room with the order details the admin table shows.
type ClosedRoom struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Summary      string    `json:"summary"`
	Description  string    `json:"order_description"`
	Status       string    `json:"order_status"`
	MessageCount int64     `json:"message_count"`
	ClosedAt     time.Time `json:"closed_at"`
}

// ChatService coordinates room access, the message log, and the room
// lifecycle. Safe for concurrent use; per-room ordering of sends is the
// realtime layer's responsibility.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxContentRunes caps message length by rune count. Zero disables the cap.
	MaxContentRunes int
}

// NewChatService constructs a ChatService with a sane message length cap.
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db, MaxContentRunes: 4000}
}

// Authorize decides whether identity may enter the chat room for orderID:
// the order's owner and admins may, nobody else. It returns the order on
// success so callers avoid a second lookup. Re-evaluated on every join
// attempt; results are never cached across connections.
func (s *ChatService) Authorize(ctx context.Context, id Identity, orderID string) (*domain.Order, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Authorize",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", id.ID),
		),
	)
	defer span.End()

	order, err := repo.GetOrderForUser(ctx, s.DB, orderID, id.ID, id.IsAdmin())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	return order, nil
}

// History returns the full message log for orderID's room in commit order.
// Calling it twice with no intervening append yields identical sequences.
func (s *ChatService) History(ctx context.Context, orderID string) ([]ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer span.End()

	room, err := repo.GetRoomByOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	msgs, err := repo.ListMessages(ctx, s.DB, room.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ChatMessage, 0, len(msgs))
	for i := range msgs {
		out = append(out, expand(&msgs[i]))
	}
	return out, nil
}

// View returns the room read model for an authorized HTTP caller: history
// plus lifecycle state. Authorization uses the same rule as Authorize.
func (s *ChatService) View(ctx context.Context, id Identity, orderID string) (*RoomView, error) {
	if _, err := s.Authorize(ctx, id, orderID); err != nil {
		return nil, err
	}
	room, err := repo.GetRoomByOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	msgs, err := s.History(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &RoomView{Messages: msgs, IsClosed: room.IsClosed, Summary: room.Summary}, nil
}

// Append validates and persists a message from id to orderID's room and
// returns it with the author expanded. It fails with ErrEmptyContent when
// the content trims to nothing, ErrRoomNotFound when the room is missing,
// and ErrRoomClosed when the lifecycle state is Closed. The message is
// durably committed before Append returns; broadcast is the caller's move.
func (s *ChatService) Append(ctx context.Context, id Identity, orderID, content string) (*ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", id.ID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && len([]rune(content)) > s.MaxContentRunes {
		content = string([]rune(content)[:s.MaxContentRunes])
	}

	room, err := repo.GetRoomByOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.IsClosed {
		return nil, ErrRoomClosed
	}

	m, err := repo.CreateMessage(ctx, s.DB, room.ID, id.ID, content)
	if err != nil {
		return nil, err
	}
	return &ChatMessage{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		User:      id,
	}, nil
}

// CloseRoom performs the Open → Closed lifecycle transition for orderID's
// room. Only admins may close; the order must still be in review; a summary
// is mandatory; a second close fails with ErrInvalidState. Broadcast of the
// resulting lifecycle event is the caller's responsibility (via ws.Notifier)
// so this method stays transport-free.
func (s *ChatService) CloseRoom(ctx context.Context, id Identity, orderID, summary string) (*domain.ChatRoom, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "CloseRoom",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("user.id", id.ID),
		),
	)
	defer span.End()

	if !id.IsAdmin() {
		return nil, ErrForbidden
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, ErrSummaryRequired
	}

	order, err := repo.GetOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != domain.StatusReview {
		return nil, ErrInvalidState
	}

	room, err := repo.CloseRoom(ctx, s.DB, orderID, summary)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Either no room exists or it is already closed; both are a
			// transition from the wrong state.
			return nil, ErrInvalidState
		}
		return nil, err
	}
	return room, nil
}

// IsRoomClosed reports the lifecycle flag for orderID's room. The order
// status machine consults it before allowing review → processing.
func (s *ChatService) IsRoomClosed(ctx context.Context, orderID string) (bool, error) {
	room, err := repo.GetRoomByOrder(ctx, s.DB, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrRoomNotFound
		}
		return false, err
	}
	return room.IsClosed, nil
}

// ListClosed returns every closed room with its order context (admin view).
func (s *ChatService) ListClosed(ctx context.Context) ([]ClosedRoom, error) {
	rooms, err := repo.ListClosedRooms(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	out := make([]ClosedRoom, 0, len(rooms))
	for i := range rooms {
		r := &rooms[i]
		count, err := repo.CountMessages(ctx, s.DB, r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ClosedRoom{
			ID:           r.ID,
			OrderID:      r.OrderID,
			Summary:      r.Summary,
			Description:  r.Order.Description,
			Status:       r.Order.Status,
			MessageCount: count,
			ClosedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}

// expand builds the display view of a stored message. The author association
// is preloaded by repo.ListMessages; a missing row (user deleted after
// writing) degrades to an identity with only the id set.
func expand(m *domain.Message) ChatMessage {
	author := Identity{ID: m.UserID}
	if m.User.ID != "" {
		author = IdentityOf(&m.User)
	}
	return ChatMessage{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		User:      author,
	}
}
