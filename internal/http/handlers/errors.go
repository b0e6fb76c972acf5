// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants give clients a stable, machine-readable taxonomy
// that supplements the human-readable message in every error body. Generic
// codes mirror common HTTP status semantics; domain-specific codes cover
// business failures a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeChatClosed       = "chat_closed"
	ErrCodeChatStillOpen    = "chat_still_open"
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
