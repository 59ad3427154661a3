package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductImage stores ordered display images for a product.
type ProductImage struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	URL          string    `gorm:"column:url;not null"`
	ThumbnailURL *string   `gorm:"column:thumbnail_url"`
	IsPrimary    bool      `gorm:"column:is_primary;not null;default:false"`
	Position     int       `gorm:"column:position;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
