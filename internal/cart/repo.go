package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgdb "github.com/shopkit-labs/shopkit-backend/pkg/db"
	"github.com/shopkit-labs/shopkit-backend/pkg/db/models"
	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

// Repository exposes persistence operations for carts and their line items.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func ownerScope(q *gorm.DB, owner types.CartOwner, now time.Time) *gorm.DB {
	if accountID, ok := owner.AccountID(); ok {
		return q.Where("user_id = ?", accountID)
	}
	token, _ := owner.GuestToken()
	return q.Where("guest_token = ? AND expires_at > ?", token, now)
}

// FindActiveByOwner loads the unique active cart for the owner, with items.
// Guest lookups exclude expired carts even before the sweep marks them.
func (r *Repository) FindActiveByOwner(ctx context.Context, owner types.CartOwner, now time.Time) (*models.Cart, error) {
	var cart models.Cart
	q := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("status = ?", enums.CartStatusActive)
	err := ownerScope(q, owner, now).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts a new active cart for the owner. Guest carts get an expiry.
func (r *Repository) Create(ctx context.Context, owner types.CartOwner, expiresAt *time.Time) (*models.Cart, error) {
	cart := models.Cart{ID: uuid.New(), Status: enums.CartStatusActive}
	if accountID, ok := owner.AccountID(); ok {
		id := accountID
		cart.UserID = &id
	} else if token, ok := owner.GuestToken(); ok {
		t := token
		cart.GuestToken = &t
		cart.ExpiresAt = expiresAt
	}
	if err := r.db.WithContext(ctx).Create(&cart).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			// Concurrent request already created the owner's active cart.
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "active cart already exists")
		}
		return nil, err
	}
	return &cart, nil
}

// FindActiveByID loads an active cart by id, with items.
func (r *Repository) FindActiveByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND status = ?", id, enums.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindItemByProduct returns the cart's line for (productID, variantID), where
// a nil variantID matches only variant-less lines.
func (r *Repository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	q := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID)
	if variantID != nil {
		q = q.Where("variant_id = ?", *variantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}
	if err := q.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByID returns the item scoped to the owning cart.
func (r *Repository) FindItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem inserts a new cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line already exists")
		}
		return nil, err
	}
	return item, nil
}

// IncrementItemQuantity adds delta to the line's quantity only while the
// resulting total stays within maxTotal, as a single conditional UPDATE so
// concurrent adds cannot over-commit stock. The price snapshot is refreshed on
// the same write. Returns false when the row is gone or the cap would be
// exceeded.
func (r *Repository) IncrementItemQuantity(ctx context.Context, itemID uuid.UUID, delta, maxTotal int, price decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND quantity + ? <= ?", itemID, delta, maxTotal).
		Updates(map[string]any{
			"quantity":     gorm.Expr("quantity + ?", delta),
			"price_at_add": price,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AddItemQuantity adds delta to the line's quantity unconditionally. Used by
// merge, which is append-only and deliberately skips stock checks.
func (r *Repository) AddItemQuantity(ctx context.Context, itemID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

// SetItemQuantity replaces the line's quantity. The price snapshot is left
// untouched; only add-merges refresh it.
func (r *Repository) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Update("quantity", quantity)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReassignItem moves a line onto another cart, keeping its id.
func (r *Repository) ReassignItem(ctx context.Context, itemID, newCartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("cart_id", newCartID).Error
}

// DeleteItem removes the line scoped to the owning cart; reports whether a
// row was actually deleted.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteItems removes every line belonging to the cart.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// Touch bumps the cart's updated timestamp.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", now.UTC()).Error
}

// UpdateStatus transitions an active cart to the given status; reports whether
// the transition took effect. Terminal carts are never rewritten.
func (r *Repository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SumQuantities totals the quantities across the cart's lines.
func (r *Repository) SumQuantities(ctx context.Context, cartID uuid.UUID) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Select("SUM(quantity)").
		Where("cart_id = ?", cartID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// AbandonExpired retires the owner's expired-but-still-active cart so the
// one-active-cart slot frees up without waiting for the sweep. Account carts
// never expire, so only guest owners can match.
func (r *Repository) AbandonExpired(ctx context.Context, owner types.CartOwner, now time.Time) (bool, error) {
	token, ok := owner.GuestToken()
	if !ok {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("guest_token = ? AND status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			token, enums.CartStatusActive, now).
		Update("status", enums.CartStatusAbandoned)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkExpiredAbandoned flips every active cart whose expiry has passed to
// abandoned and returns the number of rows swept. Safe to run repeatedly.
func (r *Repository) MarkExpiredAbandoned(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", enums.CartStatusActive, now).
		Update("status", enums.CartStatusAbandoned)
	return res.RowsAffected, res.Error
}
