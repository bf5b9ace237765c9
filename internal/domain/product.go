package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceVariant is the kind of pricing a product offers (printed vs. e-book
// edition, or both bundled).
type PriceVariant string

// Known price variants.
const (
	VariantEbook   PriceVariant = "ebook"
	VariantPrinted PriceVariant = "printed"
	VariantCombo   PriceVariant = "combo"
)

// ParsePriceVariant converts a string into a PriceVariant.
func ParsePriceVariant(s string) (PriceVariant, error) {
	switch PriceVariant(s) {
	case VariantEbook, VariantPrinted, VariantCombo:
		return PriceVariant(s), nil
	default:
		return "", fmt.Errorf("unknown price variant %q", s)
	}
}

// Price is one priced edition of a product.
type Price struct {
	Variant PriceVariant    `json:"variant"`
	Amount  decimal.Decimal `json:"amount"`
}

// Product represents a catalog product (a book).
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Pages       int       `json:"pages"`
	ReleaseDate time.Time `json:"release_date"`
	Prices      []Price   `json:"prices"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceFor returns the amount for the given variant.
// The second return value is false when the product has no such edition.
func (p *Product) PriceFor(variant PriceVariant) (decimal.Decimal, bool) {
	for _, price := range p.Prices {
		if price.Variant == variant {
			return price.Amount, true
		}
	}
	return decimal.Decimal{}, false
}
