// Package cart holds the active sale's line items for a single terminal.
package cart

import (
	"slices"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/pricing"
)

// DefaultTaxRate is the flat display rate shown beside the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// LookupFunc returns the live catalog record for a product id.
type LookupFunc func(productID string) (domain.Product, bool)

// Cart keeps one line per product in insertion order. It never touches
// catalog stock; stock is only consulted to reject over-selling. A Cart is not
// safe for concurrent use.
type Cart struct {
	items   []domain.CartItem
	taxRate decimal.Decimal
	lookup  LookupFunc
}

func New(taxRate decimal.Decimal, lookup LookupFunc) *Cart {
	if taxRate.IsNegative() {
		taxRate = DefaultTaxRate
	}
	return &Cart{taxRate: taxRate, lookup: lookup}
}

// AddItem adds one unit of product, inserting a new line if needed.
func (c *Cart) AddItem(product domain.Product) (domain.CartItem, error) {
	idx := c.indexOf(product.ID)
	qty := decimal.NewFromInt(1)
	if idx >= 0 {
		qty = c.items[idx].Quantity.Add(qty)
	}
	if !product.Stock.IsPositive() || qty.GreaterThan(product.Stock) {
		return domain.CartItem{}, shortage(product, qty)
	}

	line := pricing.Line(product, qty)
	if idx >= 0 {
		c.items[idx] = line
	} else {
		c.items = append(c.items, line)
	}
	return line, nil
}

// ChangeQuantity moves a line's quantity by delta, floored at zero. A line
// that reaches zero is removed. Increases are checked against live stock.
func (c *Cart) ChangeQuantity(productID string, delta decimal.Decimal) (domain.CartItem, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return domain.CartItem{}, domain.ErrNotInCart
	}

	current := c.items[idx]
	qty := decimal.Max(decimal.Zero, current.Quantity.Add(delta))
	if qty.IsZero() {
		c.items = slices.Delete(c.items, idx, idx+1)
		return domain.CartItem{Product: current.Product, Quantity: qty}, nil
	}

	product := current.Product
	live, found := c.live(productID)
	if found {
		product = live
	}
	if delta.IsPositive() {
		if !found {
			product.Stock = decimal.Zero
		}
		if qty.GreaterThan(product.Stock) {
			return domain.CartItem{}, shortage(product, qty)
		}
	}

	line := pricing.Line(product, qty)
	c.items[idx] = line
	return line, nil
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the lines.
func (c *Cart) Items() []domain.CartItem {
	return slices.Clone(c.items)
}

func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.items {
		subtotal = subtotal.Add(item.Total)
	}
	return subtotal
}

// Tax is informational only and is not part of Total.
func (c *Cart) Tax() decimal.Decimal {
	return c.Subtotal().Mul(c.taxRate)
}

func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal()
}

func (c *Cart) View() domain.CartView {
	items := c.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return domain.CartView{
		Items:    items,
		Subtotal: c.Subtotal(),
		Tax:      c.Tax(),
		Total:    c.Total(),
	}
}

func (c *Cart) indexOf(productID string) int {
	return slices.IndexFunc(c.items, func(item domain.CartItem) bool {
		return item.Product.ID == productID
	})
}

func (c *Cart) live(productID string) (domain.Product, bool) {
	if c.lookup == nil {
		return domain.Product{}, false
	}
	return c.lookup(productID)
}

func shortage(product domain.Product, requested decimal.Decimal) error {
	return &domain.StockShortage{
		Err:       domain.ErrInsufficientStock,
		ProductID: product.ID,
		Name:      product.Name,
		Requested: requested.String(),
		Available: product.Stock.String(),
	}
}
