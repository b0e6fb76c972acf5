// Chat room HTTP handlers.
//
// Real-time traffic flows over the websocket endpoint; these handlers cover
// the REST side of the chat subsystem:
//   - GET  /chats/:orderId/messages  (room view: history + closed flag)
//   - POST /chats/:orderId/close     (admin: close with summary)
//   - GET  /chats/closed             (admin: closed-room digest)
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/http/middleware"
	"github.com/ordersync/go-order-backend/internal/services"
)

// ChatService defines the chat operations consumed by HTTP handlers.
type ChatService interface {
	// View authorizes the caller for the order and returns its room state.
	View(ctx context.Context, id services.Identity, orderID string) (*services.RoomView, error)
	// CloseRoom closes the order's room with an admin summary.
	CloseRoom(ctx context.Context, id services.Identity, orderID, summary string) (*domain.ChatRoom, error)
	// ListClosed returns every closed room, most recently closed first.
	ListClosed(ctx context.Context) ([]services.ClosedRoom, error)
}

// LifecycleNotifier pushes room lifecycle events to connected clients.
// Implemented by ws.Notifier.
type LifecycleNotifier interface {
	NotifyChatClosed(orderID, summary, closedBy string)
}

// CloseChatRequest is the JSON payload for closing a chat room.
type CloseChatRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// GetChatMessages handles GET /chats/:orderId/messages. Customers can only
// read rooms belonging to their own orders; admins can read any room.
func (h *Handlers) GetChatMessages(c *gin.Context) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	view, err := h.chatSvc.View(c.Request.Context(), id, c.Param("orderId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccessDenied):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load chat room")
		}
		return
	}
	ok(c, view)
}

// CloseChat handles POST /chats/:orderId/close (admin only, enforced by
// router, re-checked by the service). On success the closure is broadcast
// to every client still joined to the room.
func (h *Handlers) CloseChat(c *gin.Context) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}

	var req CloseChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "summary is required")
		return
	}

	orderID := c.Param("orderId")
	room, err := h.chatSvc.CloseRoom(c.Request.Context(), id, orderID, req.Summary)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case errors.Is(err, services.ErrSummaryRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrRoomNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, services.ErrInvalidState):
			fail(c, http.StatusConflict, ErrCodeInvalidState, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not close chat room")
		}
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyChatClosed(orderID, room.Summary, id.Email)
	}
	ok(c, room)
}

// ListClosedChats handles GET /chats/closed (admin only, enforced by router).
func (h *Handlers) ListClosedChats(c *gin.Context) {
	rooms, err := h.chatSvc.ListClosed(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list closed chats")
		return
	}
	ok(c, rooms)
}
