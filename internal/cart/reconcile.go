package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopkit-labs/shopkit-backend/pkg/db/models"
	"github.com/shopkit-labs/shopkit-backend/pkg/enums"
	pkgerrors "github.com/shopkit-labs/shopkit-backend/pkg/errors"
)

// ItemView is a cart line joined with live catalog data. Money fields are
// fixed to two decimal places; LineTotal always uses the live price, never
// the stored snapshot.
type ItemView struct {
	ID                uuid.UUID         `json:"id"`
	ProductID         uuid.UUID         `json:"product_id"`
	VariantID         *uuid.UUID        `json:"variant_id,omitempty"`
	ProductName       string            `json:"product_name"`
	VariantName       *string           `json:"variant_name,omitempty"`
	ImageURL          *string           `json:"image_url,omitempty"`
	ThumbnailURL      *string           `json:"thumbnail_url,omitempty"`
	Quantity          int               `json:"quantity"`
	PriceAtAdd        string            `json:"price_at_add"`
	CurrentPrice      string            `json:"current_price"`
	PriceChanged      bool              `json:"price_changed"`
	LineTotal         string            `json:"line_total"`
	AvailableQuantity int               `json:"available_quantity"`
	StockStatus       enums.StockStatus `json:"stock_status"`
}

// View is the reconciled per-request cart representation. It is never
// persisted; every read recomputes it against the live catalog.
type View struct {
	ID              uuid.UUID        `json:"id"`
	Status          enums.CartStatus `json:"status"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	Items           []ItemView       `json:"items"`
	Subtotal        string           `json:"subtotal"`
	ItemCount       int              `json:"item_count"`
	UniqueItemCount int              `json:"unique_item_count"`
	HasPriceChanges bool             `json:"has_price_changes"`
	HasStockIssues  bool             `json:"has_stock_issues"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// StockIssue names one line that cannot be fulfilled as requested.
type StockIssue struct {
	ItemID      uuid.UUID              `json:"item_id"`
	ProductID   uuid.UUID              `json:"product_id"`
	VariantID   *uuid.UUID             `json:"variant_id,omitempty"`
	ProductName string                 `json:"product_name"`
	Reason      enums.StockIssueReason `json:"reason"`
	Requested   int                    `json:"requested"`
	Available   int                    `json:"available"`
}

// StockValidation is the checkout-facing report. It never gates anything
// itself; the order collaborator decides what to do with it.
type StockValidation struct {
	Valid  bool         `json:"valid"`
	Issues []StockIssue `json:"issues"`
}

// lineFacts is the live catalog data resolved for one cart line.
type lineFacts struct {
	productName  string
	variantName  *string
	price        decimal.Decimal
	available    int
	sellable     bool
	productFound bool
}

// Reconciler computes read-time views by joining stored cart lines against
// live catalog price and stock. All methods are read-only and idempotent.
type Reconciler struct {
	catalog           CatalogReader
	lowStockThreshold int
}

// NewReconciler builds a reconciler over the provided catalog.
func NewReconciler(catalog CatalogReader, lowStockThreshold int) (*Reconciler, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if lowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	return &Reconciler{catalog: catalog, lowStockThreshold: lowStockThreshold}, nil
}

func (r *Reconciler) resolveLine(ctx context.Context, item *models.CartItem) (*lineFacts, error) {
	product, err := r.catalog.GetProduct(ctx, item.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Hard-deleted after the item was added. Render the line as
		// unavailable on the stored snapshot instead of failing the read.
		return &lineFacts{price: item.PriceAtAdd}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	facts := &lineFacts{
		productName:  product.Name,
		price:        product.Price,
		available:    product.StockQuantity,
		sellable:     product.Sellable(),
		productFound: true,
	}

	if item.VariantID != nil {
		variant, err := r.catalog.GetVariant(ctx, *item.VariantID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			facts.sellable = false
			facts.available = 0
			return facts, nil
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
		}
		name := variant.Name
		facts.variantName = &name
		facts.price = variant.Price
		facts.available = variant.StockQuantity
		facts.sellable = facts.sellable && variant.IsActive
	}

	return facts, nil
}

func (r *Reconciler) stockStatus(facts *lineFacts, requested int) enums.StockStatus {
	switch {
	case !facts.sellable || facts.available == 0:
		return enums.StockStatusOutOfStock
	case facts.available < requested || facts.available <= r.lowStockThreshold:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}

// BuildItemView reconciles a single cart line.
func (r *Reconciler) BuildItemView(ctx context.Context, item *models.CartItem) (*ItemView, error) {
	view, _, err := r.buildItemView(ctx, item)
	return view, err
}

// buildItemView also returns the line total as a decimal so BuildView can
// aggregate the subtotal without reparsing the formatted string.
func (r *Reconciler) buildItemView(ctx context.Context, item *models.CartItem) (*ItemView, decimal.Decimal, error) {
	facts, err := r.resolveLine(ctx, item)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lineTotal := facts.price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
	view := ItemView{
		ID:                item.ID,
		ProductID:         item.ProductID,
		VariantID:         item.VariantID,
		ProductName:       facts.productName,
		VariantName:       facts.variantName,
		Quantity:          item.Quantity,
		PriceAtAdd:        item.PriceAtAdd.StringFixed(2),
		CurrentPrice:      facts.price.StringFixed(2),
		PriceChanged:      !item.PriceAtAdd.Equal(facts.price),
		LineTotal:         lineTotal.StringFixed(2),
		AvailableQuantity: facts.available,
		StockStatus:       r.stockStatus(facts, item.Quantity),
	}

	if facts.productFound {
		image, err := r.catalog.GetPrimaryImage(ctx, item.ProductID)
		if err != nil {
			return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product image")
		}
		if image != nil {
			url := image.URL
			view.ImageURL = &url
			view.ThumbnailURL = image.ThumbnailURL
		}
	}

	return &view, lineTotal, nil
}

// BuildView reconciles a whole cart.
func (r *Reconciler) BuildView(ctx context.Context, cart *models.Cart) (*View, error) {
	view := View{
		ID:        cart.ID,
		Status:    cart.Status,
		ExpiresAt: cart.ExpiresAt,
		Items:     make([]ItemView, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}

	subtotal := decimal.Zero
	for i := range cart.Items {
		lineView, lineTotal, err := r.buildItemView(ctx, &cart.Items[i])
		if err != nil {
			return nil, err
		}
		view.Items = append(view.Items, *lineView)
		view.ItemCount += lineView.Quantity
		if lineView.PriceChanged {
			view.HasPriceChanges = true
		}
		if lineView.StockStatus != enums.StockStatusInStock {
			view.HasStockIssues = true
		}
		subtotal = subtotal.Add(lineTotal)
	}

	view.UniqueItemCount = len(cart.Items)
	view.Subtotal = subtotal.StringFixed(2)
	return &view, nil
}

// ValidateStock classifies every line that cannot be fulfilled as requested.
func (r *Reconciler) ValidateStock(ctx context.Context, cart *models.Cart) (*StockValidation, error) {
	result := StockValidation{Valid: true, Issues: []StockIssue{}}

	for i := range cart.Items {
		item := &cart.Items[i]
		facts, err := r.resolveLine(ctx, item)
		if err != nil {
			return nil, err
		}

		issue := StockIssue{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: facts.productName,
			Requested:   item.Quantity,
			Available:   facts.available,
		}

		switch {
		case !facts.sellable:
			issue.Reason = enums.StockIssueProductUnavailable
		case facts.available == 0:
			issue.Reason = enums.StockIssueOutOfStock
		case facts.available < item.Quantity:
			issue.Reason = enums.StockIssueInsufficientStock
		default:
			continue
		}

		result.Issues = append(result.Issues, issue)
	}

	result.Valid = len(result.Issues) == 0
	return &result, nil
}
