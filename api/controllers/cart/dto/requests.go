package cartdto

// AddItemRequest is the payload for POST /api/v1/cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id,omitempty" validate:"omitempty,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// UpdateItemRequest is the payload for PATCH /api/v1/cart/items/{itemID}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}
