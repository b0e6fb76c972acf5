// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Order model.
//
// Functions:
//
//   - CreateOrder(ctx, db, userID, description, quantity) -> *domain.Order, error
//     Inserts a new Order row with UUID primary key, status "review", and a
//     UTC timestamp. Intended to run inside the same transaction that creates
//     the order's chat room.
//
//   - GetOrder(ctx, db, id) -> *domain.Order, error
//     Fetches a single order by ID, or ErrNotFound if missing.
//
//   - GetOrderForUser(ctx, db, id, userID, admin) -> *domain.Order, error
//     Fetches an order enforcing ownership unless admin is true. Missing and
//     not-owned both surface as ErrNotFound so callers cannot distinguish
//     them.
//
//   - ListOrdersForUser / CountOrdersForUser: per-user listings, newest first,
//     with pagination support.
//
//   - ListOrders(ctx, db) -> []domain.Order, error
//     All orders with owner preloaded (admin view), newest first.
//
//   - UpdateOrder(ctx, db, id, description, quantity, status) -> error
//     Updates mutable fields; returns ErrNotFound if the row does not exist.
//
//   - DeleteOrder(ctx, db, id) -> error
//     Hard-deletes the order; the room and its messages go with it via
//     FK cascade.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.OrderService) which enforces business rules such as the
// chat-closed gate on status transitions.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
)

// CreateOrder inserts a new Order row owned by userID. Status always starts
// at "review"; the caller cannot choose an initial status.
func CreateOrder(ctx context.Context, db *gorm.DB, userID, description string, quantity int) (*domain.Order, error) {
	o := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Description: description,
		Quantity:    quantity,
		Status:      domain.StatusReview,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(o).Error; err != nil {
		return nil, err
	}
	return o, nil
}

// GetOrder fetches a single order by ID, or ErrNotFound if missing.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	if err := db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrderForUser fetches an order enforcing ownership. When admin is true
// the ownership filter is skipped. A missing row and a row owned by someone
// else both return ErrNotFound.
func GetOrderForUser(ctx context.Context, db *gorm.DB, id, userID string, admin bool) (*domain.Order, error) {
	q := db.WithContext(ctx).Where("id = ?", id)
	if !admin {
		q = q.Where("user_id = ?", userID)
	}
	var o domain.Order
	if err := q.First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOrdersForUser returns a page of orders belonging to userID, ordered by
// creation time descending. Use CountOrdersForUser for pagination metadata.
func ListOrdersForUser(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Order, error) {
	var out []domain.Order
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountOrdersForUser returns the total number of orders owned by userID.
func CountOrdersForUser(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListOrders returns every order with its owner preloaded, newest first.
// Admin-only listing; the service layer enforces the role check.
func ListOrders(ctx context.Context, db *gorm.DB) ([]domain.Order, error) {
	var out []domain.Order
	err := db.WithContext(ctx).
		Preload("User").
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateOrder updates the mutable fields of an order. Returns ErrNotFound
// when the row does not exist.
func UpdateOrder(ctx context.Context, db *gorm.DB, id, description string, quantity int, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"description": description,
			"quantity":    quantity,
			"status":      status,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder hard-deletes an order by ID. The chat room and its messages
// are removed by FK cascade. Returns ErrNotFound when nothing was deleted.
func DeleteOrder(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
