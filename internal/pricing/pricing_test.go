package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"godwillpos/backend/internal/domain"
)

func flour() domain.Product {
	return domain.Product{
		ID:                 "p1",
		Name:               "Afa Maize Flour 2kg",
		NormalPrice:        decimal.NewFromInt(210),
		WholesalePrice:     decimal.NewFromInt(195),
		WholesaleThreshold: decimal.NewFromInt(12),
	}
}

func TestResolveBelowThresholdUsesNormalPrice(t *testing.T) {
	for _, qty := range []int64{0, 1, 11} {
		quote := Resolve(flour(), decimal.NewFromInt(qty))
		assert.False(t, quote.IsWholesale, "qty %d", qty)
		assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(210)), "qty %d got %s", qty, quote.UnitPrice)
	}
}

func TestResolveAtOrAboveThresholdUsesWholesalePrice(t *testing.T) {
	for _, qty := range []int64{12, 13, 500} {
		quote := Resolve(flour(), decimal.NewFromInt(qty))
		assert.True(t, quote.IsWholesale, "qty %d", qty)
		assert.True(t, quote.UnitPrice.Equal(decimal.NewFromInt(195)), "qty %d got %s", qty, quote.UnitPrice)
	}
}

func TestResolveFractionalQuantity(t *testing.T) {
	product := flour()
	product.WholesaleThreshold = decimal.RequireFromString("2.5")

	assert.False(t, Resolve(product, decimal.RequireFromString("2.49")).IsWholesale)
	assert.True(t, Resolve(product, decimal.RequireFromString("2.5")).IsWholesale)
}

func TestResolveNegativeQuantityTreatedAsZero(t *testing.T) {
	product := flour()
	product.WholesaleThreshold = decimal.Zero

	quote := Resolve(product, decimal.NewFromInt(-3))
	assert.True(t, quote.IsWholesale)
}

func TestLineTotalIsUnitPriceTimesQuantity(t *testing.T) {
	item := Line(flour(), decimal.RequireFromString("1.5"))
	assert.True(t, item.Total.Equal(decimal.NewFromInt(315)), "got %s", item.Total)
	assert.Equal(t, "p1", item.Product.ID)
}
