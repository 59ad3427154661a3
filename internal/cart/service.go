package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopkit-labs/shopkit-backend/pkg/db/models"
	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
	"github.com/shopkit-labs/shopkit-backend/pkg/types"
)

// Service exposes the cart operations engine. Every item mutation runs inside
// a transaction; reads return reconciled views, never raw rows.
type Service interface {
	GetOrCreate(ctx context.Context, owner types.CartOwner) (*View, error)
	GetCartCount(ctx context.Context, owner types.CartOwner) (int, error)
	AddItem(ctx context.Context, owner types.CartOwner, input AddItemInput) (*ItemView, error)
	UpdateItemQuantity(ctx context.Context, owner types.CartOwner, itemID uuid.UUID, quantity int) (*ItemView, error)
	RemoveItem(ctx context.Context, owner types.CartOwner, itemID uuid.UUID) error
	ClearCart(ctx context.Context, owner types.CartOwner) error
	MergeCarts(ctx context.Context, guestToken string, accountID uuid.UUID) (*View, error)
	ValidateStock(ctx context.Context, owner types.CartOwner) (*StockValidation, error)
	MarkCartConverted(ctx context.Context, cartID uuid.UUID) error
	CleanupExpiredCarts(ctx context.Context) (int64, error)
}

// AddItemInput is the payload for adding a product line to a cart.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

type service struct {
	repo       Store
	tx         txRunner
	catalog    CatalogReader
	reconciler *Reconciler
	events     EventDispatcher
	guestTTL   time.Duration
	now        func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Store, tx txRunner, catalog CatalogReader, reconciler *Reconciler, events EventDispatcher, guestTTL time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("reconciler required")
	}
	if events == nil {
		return nil, fmt.Errorf("event dispatcher required")
	}
	if guestTTL <= 0 {
		return nil, fmt.Errorf("guest TTL must be positive")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		catalog:    catalog,
		reconciler: reconciler,
		events:     events,
		guestTTL:   guestTTL,
		now:        time.Now,
	}, nil
}

// resolveOrCreate returns the owner's active cart, creating one when absent.
// Guest carts are created with an expiry of now + TTL.
func (s *service) resolveOrCreate(ctx context.Context, repo Store, owner types.CartOwner) (*models.Cart, error) {
	cart, err := repo.FindActiveByOwner(ctx, owner, s.now())
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var expiresAt *time.Time
	if owner.Kind() == types.OwnerKindGuest {
		exp := s.now().Add(s.guestTTL)
		expiresAt = &exp
	}
	cart, err = repo.Create(ctx, owner, expiresAt)
	if err == nil {
		return cart, nil
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}

	// The unique slot is held by a cart the lookup could not see: either a
	// guest cart past its expiry that the sweep has not reached yet, or a
	// concurrent request that won the create race. Retire the expired cart
	// and resolve again before retrying the insert once.
	if _, aerr := repo.AbandonExpired(ctx, owner, s.now()); aerr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, aerr, "retire expired cart")
	}
	cart, err = repo.FindActiveByOwner(ctx, owner, s.now())
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	cart, err = repo.Create(ctx, owner, expiresAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

// lineAvailability holds the live price and stock used to validate an add or
// quantity update.
type lineAvailability struct {
	price     decimal.Decimal
	available int
}

// checkReference validates the product (and optional variant) reference and
// returns its live price and stock. Missing, inactive, soft-deleted or
// mismatched references fail as InvalidReference.
func (s *service) checkReference(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*lineAvailability, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Sellable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "product is not available")
	}

	if variantID == nil {
		return &lineAvailability{price: product.Price, available: product.StockQuantity}, nil
	}

	variant, err := s.catalog.GetVariant(ctx, *variantID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "variant not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if variant.ProductID != productID {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "variant does not belong to product")
	}
	if !variant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "variant is not available")
	}
	return &lineAvailability{price: variant.Price, available: variant.StockQuantity}, nil
}

func insufficientStock(available int) error {
	return pkgerrors.New(
		pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock: %d available", available),
	).WithDetails(map[string]int{"available": available})
}

// GetOrCreate resolves or creates the owner's active cart and returns its
// reconciled view.
func (s *service) GetOrCreate(ctx context.Context, owner types.CartOwner) (*View, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	var cart *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		cart, txErr = s.resolveOrCreate(ctx, s.repo.WithTx(tx), owner)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return s.reconciler.BuildView(ctx, cart)
}

// GetCartCount returns the total quantity across the owner's active cart, or
// zero when no cart exists. The cart is not created as a side effect.
func (s *service) GetCartCount(ctx context.Context, owner types.CartOwner) (int, error) {
	if owner.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	cart, err := s.repo.FindActiveByOwner(ctx, owner, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	count, err := s.repo.SumQuantities(ctx, cart.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cart quantities")
	}
	return count, nil
}

// AddItem adds a product line to the owner's cart, creating the cart when
// needed. Re-adding an existing (product, variant) pair increments the line
// through a capacity-checked conditional update and refreshes the price
// snapshot; a brand-new line stores the current price as its snapshot.
func (s *service) AddItem(ctx context.Context, owner types.CartOwner, input AddItemInput) (*ItemView, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.VariantID != nil && *input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id must not be empty")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	availability, err := s.checkReference(ctx, input.ProductID, input.VariantID)
	if err != nil {
		return nil, err
	}

	var item *models.CartItem
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := s.resolveOrCreate(ctx, repo, owner)
		if err != nil {
			return err
		}

		existing, err := repo.FindItemByProduct(ctx, cart.ID, input.ProductID, input.VariantID)
		switch {
		case err == nil:
			ok, err := repo.IncrementItemQuantity(ctx, existing.ID, input.Quantity, availability.available, availability.price)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment cart item")
			}
			if !ok {
				remaining := availability.available - existing.Quantity
				if remaining < 0 {
					remaining = 0
				}
				return insufficientStock(remaining)
			}
			item, err = repo.FindItemByID(ctx, cart.ID, existing.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart item")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if input.Quantity > availability.available {
				return insufficientStock(availability.available)
			}
			created := models.CartItem{
				CartID:     cart.ID,
				ProductID:  input.ProductID,
				VariantID:  input.VariantID,
				Quantity:   input.Quantity,
				PriceAtAdd: availability.price,
			}
			if _, err := repo.CreateItem(ctx, &created); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
			}
			item = &created
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if err := repo.Touch(ctx, cart.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reconciler.BuildItemView(ctx, item)
}

// UpdateItemQuantity replaces a line's quantity after re-validating it against
// live stock. The price snapshot is deliberately not refreshed here.
func (s *service) UpdateItemQuantity(ctx context.Context, owner types.CartOwner, itemID uuid.UUID, quantity int) (*ItemView, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var item *models.CartItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByOwner(ctx, owner, s.now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		item, err = repo.FindItemByID(ctx, cart.ID, itemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		availability, err := s.checkReference(ctx, item.ProductID, item.VariantID)
		if err != nil {
			return err
		}
		if quantity > availability.available {
			return insufficientStock(availability.available)
		}

		ok, err := repo.SetItemQuantity(ctx, cart.ID, item.ID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		item.Quantity = quantity

		if err := repo.Touch(ctx, cart.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reconciler.BuildItemView(ctx, item)
}

// RemoveItem deletes a line from the owner's cart.
func (s *service) RemoveItem(ctx context.Context, owner types.CartOwner, itemID uuid.UUID) error {
	if owner.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByOwner(ctx, owner, s.now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		deleted, err := repo.DeleteItem(ctx, cart.ID, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		if err := repo.Touch(ctx, cart.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		return nil
	})
}

// ClearCart deletes every line in the owner's cart. Clearing a missing or
// already-empty cart succeeds.
func (s *service) ClearCart(ctx context.Context, owner types.CartOwner) error {
	if owner.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByOwner(ctx, owner, s.now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
		}
		if err := repo.Touch(ctx, cart.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}
		return nil
	})
}

// MergeCarts folds the guest's active cart into the account's cart after
// login. Quantities are additive and no stock re-validation happens here:
// merge must never fail a login, over-capacity lines are reported later by
// ValidateStock. Re-running a partially applied merge is safe because moved
// items are no longer found under the guest cart and the guest cart is only
// abandoned by the final write.
func (s *service) MergeCarts(ctx context.Context, guestToken string, accountID uuid.UUID) (*View, error) {
	accountOwner, err := types.AccountOwner(accountID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var (
		accountCart *models.Cart
		merged      bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		accountCart, err = s.resolveOrCreate(ctx, repo, accountOwner)
		if err != nil {
			return err
		}

		if strings.TrimSpace(guestToken) == "" {
			return nil
		}
		guestOwner, err := types.GuestOwner(guestToken)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "guest token is required")
		}

		guestCart, err := repo.FindActiveByOwner(ctx, guestOwner, s.now())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}

		for i := range guestCart.Items {
			guestItem := &guestCart.Items[i]

			existing, err := repo.FindItemByProduct(ctx, accountCart.ID, guestItem.ProductID, guestItem.VariantID)
			switch {
			case err == nil:
				// Account line keeps its position and snapshot; the guest
				// quantity is added on top.
				if err := repo.AddItemQuantity(ctx, existing.ID, guestItem.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge cart item quantity")
				}
				if _, err := repo.DeleteItem(ctx, guestCart.ID, guestItem.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop merged guest item")
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := repo.ReassignItem(ctx, guestItem.ID, accountCart.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reassign guest item")
				}
			default:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account cart item")
			}
		}

		if err := repo.Touch(ctx, accountCart.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch cart")
		}

		// Abandoning the guest cart must be the final write of the merge.
		if _, err := repo.UpdateStatus(ctx, guestCart.ID, enums.CartStatusAbandoned); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandon guest cart")
		}
		merged = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if merged {
		s.events.Dispatch(ctx, Event{
			Type:       EventCartMerged,
			CartID:     accountCart.ID,
			Owner:      accountOwner.String(),
			OccurredAt: s.now().UTC(),
		})
	}

	fresh, err := s.repo.FindActiveByID(ctx, accountCart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return s.reconciler.BuildView(ctx, fresh)
}

// ValidateStock reports, without gating anything, every line of the owner's
// cart that cannot be fulfilled at current availability.
func (s *service) ValidateStock(ctx context.Context, owner types.CartOwner) (*StockValidation, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	cart, err := s.repo.FindActiveByOwner(ctx, owner, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	return s.reconciler.ValidateStock(ctx, cart)
}

// MarkCartConverted transitions an active cart to converted after the order
// collaborator has durably created an order from it. Converted carts are
// invisible to every other operation.
func (s *service) MarkCartConverted(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}

	ok, err := s.repo.UpdateStatus(ctx, cartID, enums.CartStatusConverted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}

	s.events.Dispatch(ctx, Event{
		Type:       EventCartConverted,
		CartID:     cartID,
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// CleanupExpiredCarts abandons every active cart whose expiry has passed and
// returns the number of carts swept.
func (s *service) CleanupExpiredCarts(ctx context.Context) (int64, error) {
	swept, err := s.repo.MarkExpiredAbandoned(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep expired carts")
	}
	return swept, nil
}
