// Package domain defines the persistence models for users, orders, chat
// rooms, and messages. These types are mapped with GORM and form the core
// data layer of the order-management application.
package domain

import (
	"time"
)

// Roles a user account can hold. Role checks are performed by the service
// layer; the database only enforces membership in the set.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Order statuses. An order starts in StatusReview; the review → processing
// transition is gated on the order's chat room being closed.
const (
	StatusReview     = "review"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// ValidStatus reports whether s is a recognized order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusReview, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// User represents an account that can authenticate and place orders.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: login identifier, unique.
//   - Password: bcrypt hash; never serialized to JSON.
//   - Role: "user" or "admin" (enforced by DB constraint).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Password  string    `json:"-"          gorm:"type:varchar(255);not null"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;default:'user';check:role IN ('user','admin')"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Order represents a customer order under review or fulfilment.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the owner; indexed for per-user listings.
//   - Description: what the order is for (required).
//   - Quantity: ordered amount (> 0, validated in the service layer).
//   - Status: one of the Status* constants; starts at "review".
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - User: FK association to the owning account.
type Order struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"     gorm:"type:char(36);not null;index:idx_user_orders"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Quantity    int       `json:"quantity"    gorm:"not null"`
	Status      string    `json:"status"      gorm:"type:varchar(16);not null;default:'review';check:status IN ('review','processing','completed','cancelled')"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// User is the owning account. Orders are cascade-deleted with the user.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// ChatRoom is the per-order discussion channel. Exactly one room exists per
// order (unique constraint on OrderID); it is created in the same transaction
// as the order and deleted with it.
//
// IsClosed is monotonic: a room goes Open → Closed once, by an admin, and
// never reopens. Summary is required at close time and empty before it.
type ChatRoom struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	OrderID   string    `json:"order_id"  gorm:"type:char(36);not null;uniqueIndex:ux_room_order"`
	IsClosed  bool      `json:"is_closed" gorm:"not null;default:false"`
	Summary   string    `json:"summary"   gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Order is the parent order. Rooms are cascade-deleted with their order.
	Order Order `json:"-" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatRoom.
func (ChatRoom) TableName() string { return "chat_rooms" }

// Message is a single chat utterance within a room. Messages are immutable
// once persisted; CreatedAt is always the server clock (client timestamps
// are never trusted) and, together with ID, defines the room's total order.
type Message struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	RoomID    string    `json:"room_id"    gorm:"type:char(36);not null;index:idx_room_msgs,priority:1"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_room_msgs,priority:2"`

	// Room is the parent chat room. Messages are cascade-deleted with it.
	Room ChatRoom `json:"-" gorm:"foreignKey:RoomID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	// User is the author. Kept for eager loading of author details.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
