package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/repo"
)

// IdempotencyService records and replays order-creation results so clients
// can retry POST /orders with an Idempotency-Key without creating duplicates.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
}

// NewIdempotencyService wires an IdempotencyService with the given record TTL.
func NewIdempotencyService(db *gorm.DB, ttl time.Duration) *IdempotencyService {
	return &IdempotencyService{DB: db, TTL: ttl}
}

// Find returns the order id recorded under (userID, key), or "" when no
// live record exists.
func (s *IdempotencyService) Find(ctx context.Context, userID, key string, now time.Time) (string, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, key, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return rec.OrderID, nil
}

// Record stores the created order id under (userID, key). A concurrent
// duplicate insert is not an error: the first writer wins.
func (s *IdempotencyService) Record(ctx context.Context, userID, key, orderID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, key, orderID, status, s.TTL)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
