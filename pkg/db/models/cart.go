package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
)

// Cart is the durable record of a shopping cart. Exactly one of UserID and
// GuestToken is set; the DB carries a CHECK constraint for it and the service
// layer only ever builds carts through types.CartOwner. ExpiresAt is set only
// for guest-owned carts.
type Cart struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID       `gorm:"column:user_id;type:uuid"`
	GuestToken *string          `gorm:"column:guest_token"`
	Status     enums.CartStatus `gorm:"column:status;not null;default:'active'"`
	ExpiresAt  *time.Time       `gorm:"column:expires_at"`
	Items      []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the cart is guest-owned.
func (c *Cart) IsGuest() bool {
	return c.GuestToken != nil && *c.GuestToken != ""
}
