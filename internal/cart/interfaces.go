package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopkit-labs/shopkit-backend/pkg/db/models"
	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

// Store is the persistence surface the cart engine depends on.
type Store interface {
	WithTx(tx *gorm.DB) Store
	FindActiveByOwner(ctx context.Context, owner types.CartOwner, now time.Time) (*models.Cart, error)
	Create(ctx context.Context, owner types.CartOwner, expiresAt *time.Time) (*models.Cart, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error)
	FindItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	IncrementItemQuantity(ctx context.Context, itemID uuid.UUID, delta, maxTotal int, price decimal.Decimal) (bool, error)
	AddItemQuantity(ctx context.Context, itemID uuid.UUID, delta int) error
	SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error)
	ReassignItem(ctx context.Context, itemID, newCartID uuid.UUID) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID, now time.Time) error
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) (bool, error)
	SumQuantities(ctx context.Context, cartID uuid.UUID) (int, error)
	AbandonExpired(ctx context.Context, owner types.CartOwner, now time.Time) (bool, error)
	MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error)
}

// CatalogReader is the read-only catalog contract consumed by the engine.
type CatalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	GetPrimaryImage(ctx context.Context, productID uuid.UUID) (*models.ProductImage, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EventDispatcher receives cart lifecycle events. Implementations must not
// block the calling operation; delivery failures are logged, never returned.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event Event)
}
