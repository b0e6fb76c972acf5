// Package services – AuthService
//
// This file implements AuthService, which owns account signup/login and the
// verification of bearer credentials presented by HTTP requests and websocket
// handshakes. Verification is two-step: the token signature and expiry are
// checked first, then the subject is resolved against the users table so a
// deleted account invalidates all of its outstanding tokens.
//
// Every verification failure collapses to ErrAuthenticationFailed. The
// internal reason (missing, malformed, expired, unknown subject) is logged at
// debug level only, so an adversary probing the endpoint learns nothing about
// why a credential was rejected.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/auth"
	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/repo"
)

// AuthService provides account registration, login, and credential
// verification.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Tokens signs and verifies bearer tokens.
	Tokens *auth.TokenManager

	// AllowPlainIDs accepts a bare user id in place of a signed token.
	// Development-only escape hatch; must stay false in release builds.
	AllowPlainIDs bool
}

// NewAuthService constructs an AuthService bound to db and tokens.
func NewAuthService(db *gorm.DB, tokens *auth.TokenManager) *AuthService {
	return &AuthService{DB: db, Tokens: tokens}
}

// Signup registers a new account and returns the user plus a freshly issued
// token. Role defaults to "user"; only "user" and "admin" are accepted.
func (s *AuthService) Signup(ctx context.Context, email, password, role string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, "", ErrInvalidCredentials
	}

	if _, err := repo.GetUserByEmail(ctx, s.DB, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, hash, role)
	if err != nil {
		return nil, "", err
	}
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies the email/password pair and returns the user plus a token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Me returns the account for userID, or ErrUserNotFound.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// VerifyToken resolves a bearer credential to an Identity. It is the single
// entry point for both the HTTP auth middleware and the websocket handshake.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		log.Debug().Msg("auth: empty credential")
		return Identity{}, ErrAuthenticationFailed
	}

	userID := ""
	claims, err := s.Tokens.Verify(token)
	switch {
	case err == nil:
		userID = claims.UserID
	case s.AllowPlainIDs && !strings.Contains(token, "."):
		// Dev-only downgrade: a bare user id stands in for a signed token.
		log.Warn().Msg("auth: accepting plain user id credential (dev mode)")
		userID = token
	default:
		log.Debug().Err(err).Msg("auth: token verification failed")
		return Identity{}, ErrAuthenticationFailed
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		log.Debug().Err(err).Msg("auth: token subject not found")
		return Identity{}, ErrAuthenticationFailed
	}
	return IdentityOf(u), nil
}
