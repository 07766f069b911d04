// Package pricing decides which price list applies to a cart line.
package pricing

import (
	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
)

type Quote struct {
	UnitPrice   decimal.Decimal
	IsWholesale bool
}

// Resolve returns the unit price for qty units of product. Wholesale pricing
// applies once qty reaches the product's wholesale threshold. A negative qty
// is treated as zero.
func Resolve(product domain.Product, qty decimal.Decimal) Quote {
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	if qty.GreaterThanOrEqual(product.WholesaleThreshold) {
		return Quote{UnitPrice: product.WholesalePrice, IsWholesale: true}
	}
	return Quote{UnitPrice: product.NormalPrice}
}

// Line prices a full cart line for qty units of product.
func Line(product domain.Product, qty decimal.Decimal) domain.CartItem {
	quote := Resolve(product, qty)
	return domain.CartItem{
		Product:     product,
		Quantity:    qty,
		UnitPrice:   quote.UnitPrice,
		IsWholesale: quote.IsWholesale,
		Total:       quote.UnitPrice.Mul(qty),
	}
}
