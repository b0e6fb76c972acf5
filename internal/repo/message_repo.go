// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
)

// CreateMessage inserts a new message row. CreatedAt is the server clock in
// UTC; callers never supply a timestamp.
func CreateMessage(ctx context.Context, db *gorm.DB, roomID, userID, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns a room's messages with authors preloaded, ordered
// deterministically (CreatedAt ASC, ID ASC). The order is the room's commit
// order and must match broadcast order.
func ListMessages(ctx context.Context, db *gorm.DB, roomID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE room_id = ?", roomID).
		Scan(&total).Error
	return total, err
}
