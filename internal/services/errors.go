// Package services defines the business logic for accounts, orders, and the
// per-order chat subsystem. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages, HTTP status codes, or websocket error events
// should be performed at the handler layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrInvalidCredentials is returned on login when the email or password is
	// wrong. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned on signup when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrAuthenticationFailed covers every token verification failure: missing,
	// malformed, expired, bad signature, or a subject that no longer exists.
	// The distinction is logged server-side, never disclosed to the caller.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUserNotFound indicates that the requested account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Order-related errors.
var (
	// ErrOrderNotFound indicates that the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidOrder is returned when order fields fail validation
	// (blank description, non-positive quantity, unknown status).
	ErrInvalidOrder = errors.New("invalid order fields")

	// ErrChatStillOpen is returned when a review → processing transition is
	// attempted while the order's chat room has not been closed yet.
	ErrChatStillOpen = errors.New("chat room must be closed first")
)

// Chat-related errors.
var (
	// ErrAccessDenied is returned when an identity may not enter an order's
	// chat room. A missing order and a room owned by someone else produce the
	// same error so callers cannot probe for order existence.
	ErrAccessDenied = errors.New("Order not found or access denied")

	// ErrRoomNotFound indicates that no chat room exists for the order.
	ErrRoomNotFound = errors.New("Chat room not found")

	// ErrRoomClosed is returned when sending to a room whose lifecycle state
	// is Closed.
	ErrRoomClosed = errors.New("Chat room is closed")

	// ErrEmptyContent is returned when a message trims to the empty string.
	ErrEmptyContent = errors.New("Message cannot be empty")

	// ErrForbidden is returned when a non-admin identity attempts an
	// admin-only lifecycle transition.
	ErrForbidden = errors.New("forbidden")

	// ErrSummaryRequired is returned when closing a room without a summary.
	ErrSummaryRequired = errors.New("summary is required")

	// ErrInvalidState is returned when a lifecycle transition is attempted
	// from the wrong state (room already closed, order no longer in review).
	ErrInvalidState = errors.New("invalid lifecycle state")
)
