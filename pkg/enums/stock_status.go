package enums

// StockStatus classifies a cart line against live availability at read time.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// StockIssueReason names why a line fails checkout-time stock validation.
type StockIssueReason string

const (
	StockIssueProductUnavailable StockIssueReason = "product_unavailable"
	StockIssueOutOfStock         StockIssueReason = "out_of_stock"
	StockIssueInsufficientStock  StockIssueReason = "insufficient_stock"
)

// String implements fmt.Stringer.
func (r StockIssueReason) String() string {
	return string(r)
}
