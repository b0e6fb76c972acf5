// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatRoom
// model, which is 1:1 with an order and guards the chat lifecycle flag.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
)

// CreateRoom inserts the chat room for orderID. The unique index on order_id
// makes a second room for the same order a constraint violation; callers run
// this inside the order-creation transaction so both rows commit together.
func CreateRoom(ctx context.Context, db *gorm.DB, orderID string) (*domain.ChatRoom, error) {
	r := &domain.ChatRoom{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		IsClosed:  false,
		Summary:   "",
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRoomByOrder fetches the room for orderID, or ErrNotFound if missing.
func GetRoomByOrder(ctx context.Context, db *gorm.DB, orderID string) (*domain.ChatRoom, error) {
	var r domain.ChatRoom
	if err := db.WithContext(ctx).Where("order_id = ?", orderID).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CloseRoom marks the room for orderID closed and stores the summary.
// The is_closed = false predicate makes the close a compare-and-set: a room
// that is already closed (or missing) yields ErrNotFound, never a double
// transition.
func CloseRoom(ctx context.Context, db *gorm.DB, orderID, summary string) (*domain.ChatRoom, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatRoom{}).
		Where("order_id = ? AND is_closed = ?", orderID, false).
		Updates(map[string]any{
			"is_closed": true,
			"summary":   summary,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetRoomByOrder(ctx, db, orderID)
}

// ListClosedRooms returns every closed room with its order preloaded,
// most recently updated first (admin "closed chats" view).
func ListClosedRooms(ctx context.Context, db *gorm.DB) ([]domain.ChatRoom, error) {
	var out []domain.ChatRoom
	err := db.WithContext(ctx).
		Preload("Order").
		Where("is_closed = ?", true).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}
