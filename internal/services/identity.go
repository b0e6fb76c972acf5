package services

import "github.com/ordersync/go-order-backend/internal/domain"

// Identity is a resolved, authenticated principal: the subset of the user
// row that the chat and order layers are allowed to see. It never carries
// credentials and is immutable once bound to a connection or request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// IdentityOf builds an Identity from a user row.
func IdentityOf(u *domain.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}
