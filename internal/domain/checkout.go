package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutLine is one line of a checkout snapshot.
type CheckoutLine struct {
	ProductID string          `json:"product_id"`
	Variant   PriceVariant    `json:"variant"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CheckoutRequest is an immutable snapshot of a cart taken at dispatch time.
// The payment payload is built from this snapshot, so later cart mutations
// cannot change what was submitted. It is transient and never persisted.
type CheckoutRequest struct {
	Lines     []CheckoutLine  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// Snapshot captures the cart's current lines and total into a CheckoutRequest.
func (c *Cart) Snapshot() *CheckoutRequest {
	lines := make([]CheckoutLine, 0, len(c.order))
	for _, key := range c.order {
		e := c.entries[key]
		lines = append(lines, CheckoutLine{
			ProductID: e.item.ProductID,
			Variant:   e.item.Variant,
			Title:     e.item.Title,
			UnitPrice: e.item.UnitPrice,
			Quantity:  e.quantity,
			LineTotal: e.item.Total(e.quantity),
		})
	}
	return &CheckoutRequest{
		Lines:     lines,
		Total:     c.TotalValue(),
		CreatedAt: time.Now().UTC(),
	}
}
