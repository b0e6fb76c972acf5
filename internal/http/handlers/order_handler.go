// Order HTTP handlers.
//
// This file exposes the order endpoints:
//   - POST   /orders        (create, idempotent via Idempotency-Key)
//   - GET    /orders        (caller's orders, paginated)
//   - GET    /orders/all    (admin: every order)
//   - PUT    /orders/:id    (admin: update fields/status)
//   - DELETE /orders/:id    (admin: delete, cascades room + messages)
//
// Order creation is atomic with chat-room creation: the service runs both
// inserts in one transaction, and a stored Idempotency-Key lets clients
// retry the POST without creating duplicates.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/http/middleware"
	"github.com/ordersync/go-order-backend/internal/services"
	"github.com/ordersync/go-order-backend/internal/utils"
)

// OrderService defines the order operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OrderService interface {
	// Create inserts an order and its chat room atomically.
	Create(ctx context.Context, userID, description string, quantity int) (*domain.Order, error)
	// Get fetches one order by id.
	Get(ctx context.Context, id string) (*domain.Order, error)
	// ListMine returns a page of the caller's orders plus the total count.
	ListMine(ctx context.Context, userID string, page, pageSize int) ([]services.OrderView, int64, error)
	// ListAll returns every order (admin view).
	ListAll(ctx context.Context) ([]services.OrderView, error)
	// Update changes description/quantity/status with the chat-closed gate.
	Update(ctx context.Context, id, description string, quantity int, status string) (*domain.Order, error)
	// Delete removes an order and, by cascade, its room and messages.
	Delete(ctx context.Context, id string) error
}

// IdempotencyStore records and replays order-creation results, keyed by
// (userID, Idempotency-Key). Implemented against the repo package.
type IdempotencyStore interface {
	// Find returns the order id recorded for the key, or "" when absent.
	Find(ctx context.Context, userID, key string, now time.Time) (orderID string, err error)
	// Record stores the created order id under the key.
	Record(ctx context.Context, userID, key, orderID string, status int) error
}

// CreateOrderRequest is the JSON payload for creating an order.
type CreateOrderRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

// UpdateOrderRequest is the JSON payload for updating an order.
type UpdateOrderRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Status      string `json:"status" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// OrderListResponse is the paginated order listing envelope.
type OrderListResponse struct {
	Items      []services.OrderView `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

// WithIdempotency attaches the replay store used by CreateOrder.
func (h *Handlers) WithIdempotency(store IdempotencyStore) *Handlers {
	h.idemStore = store
	return h
}

// CreateOrder handles POST /orders. When the request carries a previously
// seen Idempotency-Key, the originally created order is returned instead of
// creating a duplicate.
func (h *Handlers) CreateOrder(c *gin.Context) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid order payload")
		return
	}

	key, hasKey := middleware.GetIdempotencyKey(c)
	if hasKey && h.idemStore != nil {
		if orderID, err := h.idemStore.Find(c.Request.Context(), id.ID, key, time.Now().UTC()); err == nil && orderID != "" {
			if prev, err := h.orderSvc.Get(c.Request.Context(), orderID); err == nil {
				ok(c, prev)
				return
			}
		}
	}

	order, err := h.orderSvc.Create(c.Request.Context(), id.ID, req.Description, req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrInvalidOrder) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create order")
		return
	}

	if hasKey && h.idemStore != nil {
		// Best effort: a failed record only costs replay protection.
		_ = h.idemStore.Record(c.Request.Context(), id.ID, key, order.ID, http.StatusCreated)
	}
	created(c, order)
}

// ListMyOrders handles GET /orders.
func (h *Handlers) ListMyOrders(c *gin.Context) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	page, pageSize := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	items, total, err := h.orderSvc.ListMine(c.Request.Context(), id.ID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list orders")
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, OrderListResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// ListAllOrders handles GET /orders/all (admin only, enforced by router).
func (h *Handlers) ListAllOrders(c *gin.Context) {
	items, err := h.orderSvc.ListAll(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list orders")
		return
	}
	ok(c, items)
}

// UpdateOrder handles PUT /orders/:id (admin only, enforced by router).
func (h *Handlers) UpdateOrder(c *gin.Context) {
	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid order payload")
		return
	}

	order, err := h.orderSvc.Update(c.Request.Context(), c.Param("id"), req.Description, req.Quantity, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, services.ErrInvalidOrder):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrChatStillOpen):
			fail(c, http.StatusBadRequest, ErrCodeChatStillOpen, err.Error())
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update order")
		}
		return
	}
	ok(c, order)
}

// DeleteOrder handles DELETE /orders/:id (admin only, enforced by router).
func (h *Handlers) DeleteOrder(c *gin.Context) {
	if err := h.orderSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete order")
		return
	}
	noContent(c)
}
