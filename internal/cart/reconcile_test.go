package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopkit-labs/shopkit-backend/pkg/db/models"
	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
)

func newTestReconciler(t *testing.T, cat CatalogReader) *Reconciler {
	t.Helper()
	reconciler, err := NewReconciler(cat, 5)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	return reconciler
}

func TestNewReconcilerValidatesArguments(t *testing.T) {
	t.Parallel()

	if _, err := NewReconciler(nil, 5); err == nil {
		t.Fatal("expected error for nil catalog")
	}
	if _, err := NewReconciler(newMemCatalog(), -1); err == nil {
		t.Fatal("expected error for negative threshold")
	}
}

func TestStockStatusMatrix(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)

	tests := []struct {
		name      string
		stock     int
		active    bool
		requested int
		want      enums.StockStatus
	}{
		{name: "plenty", stock: 50, active: true, requested: 2, want: enums.StockStatusInStock},
		{name: "inactive product", stock: 50, active: false, requested: 2, want: enums.StockStatusOutOfStock},
		{name: "zero stock", stock: 0, active: true, requested: 2, want: enums.StockStatusOutOfStock},
		{name: "below requested", stock: 6, active: true, requested: 8, want: enums.StockStatusLowStock},
		{name: "at threshold", stock: 5, active: true, requested: 1, want: enums.StockStatusLowStock},
		{name: "just above threshold", stock: 6, active: true, requested: 1, want: enums.StockStatusInStock},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			productID := cat.addProduct("matrix-"+tc.name, "10.00", tc.stock)
			cat.products[productID].IsActive = tc.active

			view, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
				ID:         uuid.New(),
				CartID:     uuid.New(),
				ProductID:  productID,
				Quantity:   tc.requested,
				PriceAtAdd: decimal.RequireFromString("10.00"),
			})
			if err != nil {
				t.Fatalf("build item view: %v", err)
			}
			if view.StockStatus != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, view.StockStatus)
			}
		})
	}
}

func TestBuildItemViewUsesLivePriceForTotals(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)
	productID := cat.addProduct("Widget", "120.00", 10)

	view, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:         uuid.New(),
		ProductID:  productID,
		Quantity:   3,
		PriceAtAdd: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("build item view: %v", err)
	}
	if view.PriceAtAdd != "100.00" || view.CurrentPrice != "120.00" {
		t.Fatalf("unexpected prices: %+v", view)
	}
	if !view.PriceChanged {
		t.Fatal("expected price change flag")
	}
	if view.LineTotal != "360.00" {
		t.Fatalf("line total must use the live price, got %s", view.LineTotal)
	}
}

func TestBuildItemViewEqualPricesAreNotDrift(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)
	productID := cat.addProduct("Widget", "100.00", 10)

	// Same numeric value, different decimal representation.
	view, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:         uuid.New(),
		ProductID:  productID,
		Quantity:   1,
		PriceAtAdd: decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("build item view: %v", err)
	}
	if view.PriceChanged {
		t.Fatal("100 and 100.00 are the same price")
	}
}

func TestBuildItemViewRendersHardDeletedProductFromSnapshot(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)

	view, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:         uuid.New(),
		ProductID:  uuid.New(),
		Quantity:   2,
		PriceAtAdd: decimal.RequireFromString("45.50"),
	})
	if err != nil {
		t.Fatalf("a vanished product must not fail the read: %v", err)
	}
	if view.StockStatus != enums.StockStatusOutOfStock {
		t.Fatalf("expected out_of_stock, got %s", view.StockStatus)
	}
	if view.CurrentPrice != "45.50" || view.LineTotal != "91.00" {
		t.Fatalf("expected snapshot pricing, got %+v", view)
	}
	if view.AvailableQuantity != 0 {
		t.Fatalf("expected zero availability, got %d", view.AvailableQuantity)
	}
}

func TestBuildItemViewVariantOverridesProduct(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)
	productID := cat.addProduct("Widget", "100.00", 50)

	variantID := uuid.New()
	cat.variants[variantID] = &models.ProductVariant{
		ID:            variantID,
		ProductID:     productID,
		Name:          "Large",
		Price:         decimal.RequireFromString("110.00"),
		StockQuantity: 4,
		IsActive:      true,
	}

	view, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:         uuid.New(),
		ProductID:  productID,
		VariantID:  &variantID,
		Quantity:   2,
		PriceAtAdd: decimal.RequireFromString("110.00"),
	})
	if err != nil {
		t.Fatalf("build item view: %v", err)
	}
	if view.CurrentPrice != "110.00" || view.AvailableQuantity != 4 {
		t.Fatalf("variant must override product price and stock: %+v", view)
	}
	if view.VariantName == nil || *view.VariantName != "Large" {
		t.Fatalf("expected variant name, got %+v", view.VariantName)
	}
	if view.StockStatus != enums.StockStatusLowStock {
		t.Fatalf("variant stock 4 is under the threshold, got %s", view.StockStatus)
	}

	// A vanished variant makes the line unsellable even when the product is fine.
	delete(cat.variants, variantID)
	view, err = reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:         uuid.New(),
		ProductID:  productID,
		VariantID:  &variantID,
		Quantity:   2,
		PriceAtAdd: decimal.RequireFromString("110.00"),
	})
	if err != nil {
		t.Fatalf("build item view: %v", err)
	}
	if view.StockStatus != enums.StockStatusOutOfStock {
		t.Fatalf("expected out_of_stock for missing variant, got %s", view.StockStatus)
	}
}

func TestBuildViewAggregates(t *testing.T) {
	t.Parallel()
	cat := newMemCatalog()
	reconciler := newTestReconciler(t, cat)

	drifted := cat.addProduct("Drifted", "120.00", 50)
	steady := cat.addProduct("Steady", "10.00", 50)

	cart := &models.Cart{
		ID:     uuid.New(),
		Status: enums.CartStatusActive,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: drifted, Quantity: 2, PriceAtAdd: decimal.RequireFromString("100.00")},
			{ID: uuid.New(), ProductID: steady, Quantity: 3, PriceAtAdd: decimal.RequireFromString("10.00")},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	view, err := reconciler.BuildView(context.Background(), cart)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.ItemCount != 5 || view.UniqueItemCount != 2 {
		t.Fatalf("unexpected counts: %+v", view)
	}
	// 2 * 120.00 + 3 * 10.00, always at the live price.
	if view.Subtotal != "270.00" {
		t.Fatalf("expected subtotal 270.00, got %s", view.Subtotal)
	}
	if !view.HasPriceChanges {
		t.Fatal("expected the drifted line to set has_price_changes")
	}
	if view.HasStockIssues {
		t.Fatal("no stock issues expected")
	}
}

func TestBuildViewEmptyCart(t *testing.T) {
	t.Parallel()
	reconciler := newTestReconciler(t, newMemCatalog())

	view, err := reconciler.BuildView(context.Background(), &models.Cart{
		ID:     uuid.New(),
		Status: enums.CartStatusActive,
	})
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.Subtotal != "0.00" || view.ItemCount != 0 || len(view.Items) != 0 {
		t.Fatalf("unexpected empty view: %+v", view)
	}
	if view.Items == nil {
		t.Fatal("items must serialize as [], not null")
	}
}

func TestValidateStockMissingProductIsUnavailable(t *testing.T) {
	t.Parallel()
	reconciler := newTestReconciler(t, newMemCatalog())

	cart := &models.Cart{
		ID:     uuid.New(),
		Status: enums.CartStatusActive,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: uuid.New(), Quantity: 1, PriceAtAdd: decimal.RequireFromString("10.00")},
		},
	}

	validation, err := reconciler.ValidateStock(context.Background(), cart)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validation.Valid || len(validation.Issues) != 1 {
		t.Fatalf("expected one issue, got %+v", validation)
	}
	if validation.Issues[0].Reason != enums.StockIssueProductUnavailable {
		t.Fatalf("expected product_unavailable, got %s", validation.Issues[0].Reason)
	}
}

func TestValidateStockEmptyCartIsValid(t *testing.T) {
	t.Parallel()
	reconciler := newTestReconciler(t, newMemCatalog())

	validation, err := reconciler.ValidateStock(context.Background(), &models.Cart{ID: uuid.New()})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !validation.Valid || validation.Issues == nil || len(validation.Issues) != 0 {
		t.Fatalf("expected valid empty report, got %+v", validation)
	}
}

// A lookup failure that is not a missing row must surface, not be masked as
// an unavailable product.
type failingCatalog struct{}

func (failingCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrInvalidDB
}

func (failingCatalog) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	return nil, gorm.ErrInvalidDB
}

func (failingCatalog) GetPrimaryImage(ctx context.Context, productID uuid.UUID) (*models.ProductImage, error) {
	return nil, gorm.ErrInvalidDB
}

func TestResolveLineSurfacesInfraErrors(t *testing.T) {
	t.Parallel()
	reconciler := newTestReconciler(t, failingCatalog{})

	_, err := reconciler.BuildItemView(context.Background(), &models.CartItem{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Quantity:  1,
	})
	if err == nil {
		t.Fatal("expected dependency error")
	}
}
