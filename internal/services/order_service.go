// Package services – OrderService
//
// This file implements OrderService, which manages the order CRUD surface
// and the coupling between orders and their chat rooms: an order and its
// room are created in one transaction (both commit or neither does), and
// the review → processing status transition is gated on the room having
// been closed by an admin.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RoomStateQuery answers whether an order's chat room is closed. Implemented
// by ChatService; declared here so OrderService stays decoupled from it.
type RoomStateQuery interface {
	IsRoomClosed(ctx context.Context, orderID string) (bool, error)
}

// OrderView is an order together with its room's lifecycle flag, the shape
// the order tables render.
type OrderView struct {
	domain.Order
	OwnerEmail string `json:"owner_email,omitempty"`
	ChatClosed bool   `json:"chat_closed"`
}

// OrderService provides order CRUD plus the chat-gated status machine.
type OrderService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Rooms is consulted before allowing review → processing.
	Rooms RoomStateQuery
}

// NewOrderService constructs an OrderService bound to db and rooms.
func NewOrderService(db *gorm.DB, rooms RoomStateQuery) *OrderService {
	return &OrderService{DB: db, Rooms: rooms}
}

// Create validates the fields and inserts the order together with its chat
// room in a single transaction. If room creation fails the order insert is
// rolled back, preserving the one-room-per-order invariant.
func (s *OrderService) Create(ctx context.Context, userID, description string, quantity int) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	description = strings.TrimSpace(description)
	if description == "" || quantity <= 0 {
		return nil, ErrInvalidOrder
	}

	var order *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := repo.CreateOrder(ctx, tx, userID, description, quantity)
		if err != nil {
			return err
		}
		if _, err := repo.CreateRoom(ctx, tx, o.ID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Get fetches one order, or ErrOrderNotFound.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := repo.GetOrder(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListMine returns a page of the caller's orders, newest first, each with
// its room-closed flag, plus the total count for pagination.
func (s *OrderService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]OrderView, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountOrdersForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []OrderView{}, 0, nil
	}
	orders, err := repo.ListOrdersForUser(ctx, s.DB, userID, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return s.withRoomFlags(ctx, orders, false), total, nil
}

// ListAll returns every order with owner email and room flag (admin view).
func (s *OrderService) ListAll(ctx context.Context) ([]OrderView, error) {
	orders, err := repo.ListOrders(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return s.withRoomFlags(ctx, orders, true), nil
}

// Update changes description/quantity/status. Status must be a known value,
// and moving a review order to processing requires its chat room to be
// closed first (ErrChatStillOpen otherwise).
func (s *OrderService) Update(ctx context.Context, id, description string, quantity int, status string) (*domain.Order, error) {
	tr := otel.Tracer("services/OrderService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer span.End()

	description = strings.TrimSpace(description)
	if description == "" || quantity <= 0 || !domain.ValidStatus(status) {
		return nil, ErrInvalidOrder
	}

	current, err := repo.GetOrder(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if current.Status == domain.StatusReview && status == domain.StatusProcessing {
		closed, err := s.Rooms.IsRoomClosed(ctx, id)
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, ErrChatStillOpen
		}
	}

	if err := repo.UpdateOrder(ctx, s.DB, id, description, quantity, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return repo.GetOrder(ctx, s.DB, id)
}

// Delete removes the order; the room and messages cascade with it.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := repo.DeleteOrder(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	return nil
}

// withRoomFlags decorates orders with their chat-closed flag (and owner
// email when withOwner is set). A missing room reads as not closed.
func (s *OrderService) withRoomFlags(ctx context.Context, orders []domain.Order, withOwner bool) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		o := orders[i]
		closed, err := s.Rooms.IsRoomClosed(ctx, o.ID)
		if err != nil {
			closed = false
		}
		v := OrderView{Order: o, ChatClosed: closed}
		if withOwner {
			v.OwnerEmail = o.User.Email
		}
		v.User = domain.User{}
		out = append(out, v)
	}
	return out
}
