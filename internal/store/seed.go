package store

import (
	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
)

const (
	DefaultFooter              = "Thank you for shopping at Godwill Shop! Quality is our promise."
	DefaultAutoBackupThreshold = 50
)

// SeedProducts is the starter catalog loaded on first run and on reset.
func SeedProducts() []domain.Product {
	rows := []struct {
		id, name, sku, category string
		unit                    domain.UnitType
		stock, cost, normal     int64
		threshold, wholesale    int64
		reorder                 int64
	}{
		{"p1", "Afa Maize Flour 2kg", "FLR-001", "Cereals", domain.UnitPiece, 45, 180, 210, 12, 195, 10},
		{"p2", "Sugar (Loose)", "SGR-002", "Groceries", domain.UnitKg, 120, 110, 150, 10, 135, 20},
		{"p3", "Fresh Milk 1L", "MLK-003", "Dairy", domain.UnitLitre, 24, 65, 85, 6, 75, 5},
		{"p4", "Cooking Oil 3L", "OIL-004", "Groceries", domain.UnitLitre, 15, 480, 580, 4, 520, 3},
		{"p5", "Bar Soap 800g", "DET-005", "Homecare", domain.UnitPiece, 60, 140, 190, 10, 165, 15},
		{"p6", "Tea Leaves 50g", "TEA-006", "Beverages", domain.UnitPiece, 8, 25, 45, 20, 35, 10},
		{"p7", "Table Salt 1kg", "SLT-007", "Groceries", domain.UnitPiece, 100, 25, 40, 10, 32, 25},
		{"p8", "Matchbox (Pack of 10)", "MCH-008", "General", domain.UnitPiece, 2, 35, 60, 5, 50, 5},
		{"p9", "Rice (Biryani) 5kg", "RIC-009", "Cereals", domain.UnitPiece, 30, 750, 950, 5, 850, 5},
		{"p10", "Wheat Flour 2kg", "FLR-010", "Cereals", domain.UnitPiece, 40, 175, 205, 12, 185, 8},
	}
	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, domain.Product{
			ID:                 r.id,
			Name:               r.name,
			SKU:                r.sku,
			Category:           r.category,
			Unit:               r.unit,
			Stock:              decimal.NewFromInt(r.stock),
			CostPrice:          decimal.NewFromInt(r.cost),
			NormalPrice:        decimal.NewFromInt(r.normal),
			WholesaleThreshold: decimal.NewFromInt(r.threshold),
			WholesalePrice:     decimal.NewFromInt(r.wholesale),
			ReorderLevel:       decimal.NewFromInt(r.reorder),
		})
	}
	return products
}

// DefaultSettings carries no passwords; those come from configuration.
func DefaultSettings(shopName string) domain.ShopSettings {
	return domain.ShopSettings{
		Name:                shopName,
		Footer:              DefaultFooter,
		AutoBackupThreshold: DefaultAutoBackupThreshold,
		AutoPrintReceipts:   true,
	}
}
