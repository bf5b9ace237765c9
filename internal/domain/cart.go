package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemKey identifies a cart line: product plus price variant. The unit price
// is deliberately NOT part of the identity — it is resolved from the catalog
// when the item is added and never compared afterwards.
type ItemKey struct {
	ProductID string       `json:"product_id"`
	Variant   PriceVariant `json:"variant"`
}

// LineItem is an immutable cart line value. Two line items are the same line
// iff their keys match; UnitPrice is baked in at construction time.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Variant   PriceVariant    `json:"variant"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewLineItem builds a line item for the given product edition, resolving the
// unit price once. It fails when the product has no price for the variant so
// a zero-value item can never enter a cart.
func NewLineItem(p *Product, variant PriceVariant) (LineItem, error) {
	amount, ok := p.PriceFor(variant)
	if !ok {
		return LineItem{}, fmt.Errorf("product %s has no %s price", p.ID, variant)
	}
	return LineItem{
		ProductID: p.ID,
		Variant:   variant,
		Title:     p.Title,
		UnitPrice: amount,
	}, nil
}

// Key returns the identity of this line.
func (li LineItem) Key() ItemKey {
	return ItemKey{ProductID: li.ProductID, Variant: li.Variant}
}

// Total returns UnitPrice multiplied by the given quantity.
func (li LineItem) Total(quantity int) decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

type cartEntry struct {
	item     LineItem
	quantity int
}

// Cart aggregates line items for one session, keyed by ItemKey and listed in
// first-add order. Quantities are strictly positive; an absent key simply
// reads as quantity zero.
//
// Cart is not safe for concurrent use on its own — the session store
// serializes access per session.
type Cart struct {
	entries map[ItemKey]*cartEntry
	order   []ItemKey
}

// NewCart creates an empty cart.
func NewCart() *Cart {
	return &Cart{entries: make(map[ItemKey]*cartEntry)}
}

// Add increments the quantity for the item by one, creating the entry at
// quantity one if absent. When the key already exists, the stored item (and
// its originally resolved price) is kept.
func (c *Cart) Add(item LineItem) {
	key := item.Key()
	if e, ok := c.entries[key]; ok {
		e.quantity++
		return
	}
	c.entries[key] = &cartEntry{item: item, quantity: 1}
	c.order = append(c.order, key)
}

// Quantity returns the current quantity for the key, or zero when absent.
// Querying an absent key never inserts an entry.
func (c *Cart) Quantity(key ItemKey) int {
	if e, ok := c.entries[key]; ok {
		return e.quantity
	}
	return 0
}

// Remove deletes the matching entry entirely, regardless of quantity.
// Removal means "take it out of the cart", not "reduce by one".
// Removing an absent key is a no-op.
func (c *Cart) Remove(productID string, variant PriceVariant) {
	key := ItemKey{ProductID: productID, Variant: variant}
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// TotalQuantity returns the sum of all quantities.
func (c *Cart) TotalQuantity() int {
	var total int
	for _, e := range c.entries {
		total += e.quantity
	}
	return total
}

// TotalValue returns the exact decimal sum of unit price times quantity over
// all entries. Zero for an empty cart.
func (c *Cart) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.item.Total(e.quantity))
	}
	return total
}

// ItemTotal returns the line total for the key, or zero when absent.
func (c *Cart) ItemTotal(key ItemKey) decimal.Decimal {
	if e, ok := c.entries[key]; ok {
		return e.item.Total(e.quantity)
	}
	return decimal.Zero
}

// Items returns the line items in first-add order.
func (c *Cart) Items() []LineItem {
	items := make([]LineItem, 0, len(c.order))
	for _, key := range c.order {
		items = append(items, c.entries[key].item)
	}
	return items
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.entries)
}

// Clear removes all entries.
func (c *Cart) Clear() {
	c.entries = make(map[ItemKey]*cartEntry)
	c.order = nil
}
