// Auth HTTP handlers.
//
// This file exposes the account endpoints:
//   - POST /auth/signup   (register)
//   - POST /auth/login    (authenticate, returns bearer token)
//   - POST /auth/logout   (stateless acknowledgment)
//   - GET  /auth/me       (current account)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
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

// AuthService defines the account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Signup registers an account and returns it with a fresh token.
	Signup(ctx context.Context, email, password, role string) (*domain.User, string, error)
	// Login verifies credentials and returns the account with a fresh token.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// Me returns the account for userID.
	Me(ctx context.Context, userID string) (*domain.User, error)
}

// SignupRequest is the JSON payload for registering an account.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	// Role optionally selects "user" or "admin"; defaults to "user".
	Role string `json:"role" binding:"omitempty,oneof=user admin"`
}

// LoginRequest is the JSON payload for authenticating.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse pairs a sanitized account with its bearer token.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// Signup handles POST /auth/signup.
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid signup payload")
		return
	}
	u, token, err := h.authSvc.Signup(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, services.ErrInvalidCredentials):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid signup payload")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create account")
		}
		return
	}
	created(c, AuthResponse{User: u, Token: token})
}

// Login handles POST /auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid login payload")
		return
	}
	u, token, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not log in")
		return
	}
	ok(c, AuthResponse{User: u, Token: token})
}

// Logout handles POST /auth/logout. Tokens are client-held, so this is a
// stateless acknowledgment; clients discard the token.
func (h *Handlers) Logout(c *gin.Context) {
	ok(c, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me.
func (h *Handlers) Me(c *gin.Context) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication failed")
		return
	}
	u, err := h.authSvc.Me(c.Request.Context(), id.ID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load account")
		return
	}
	ok(c, u)
}
