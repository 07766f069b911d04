// Package report derives read-only analytics from the sales and catalog
// collections. None of these functions fail; empty input yields zero values.
package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// UnknownCashier labels sales recorded without a cashier.
const UnknownCashier = "Unknown"

// Range is an inclusive span of local calendar days.
type Range struct {
	Start string
	End   string
	loc   *time.Location
}

// NewRange parses YYYY-MM-DD bounds in loc. An empty bound defaults to the
// calendar day of now.
func NewRange(start, end string, now time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.Local
	}
	today := domain.CalendarDate(now, loc)
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" {
		start = today
	}
	if end == "" {
		end = today
	}
	from, err := domain.ParseCalendarDate(start, loc)
	if err != nil {
		return Range{}, domain.ErrInvalidRange
	}
	to, err := domain.ParseCalendarDate(end, loc)
	if err != nil {
		return Range{}, domain.ErrInvalidRange
	}
	if to.Before(from) {
		return Range{}, domain.ErrInvalidRange
	}
	return Range{Start: start, End: end, loc: loc}, nil
}

// Day is the single-day range containing t.
func Day(t time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	day := domain.CalendarDate(t, loc)
	return Range{Start: day, End: day, loc: loc}
}

func (r Range) Contains(t time.Time) bool {
	day := domain.CalendarDate(t, r.loc)
	return day >= r.Start && day <= r.End
}

// Filter keeps the sales inside r, preserving order.
func Filter(sales []domain.Sale, r Range) []domain.Sale {
	out := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if r.Contains(sale.Timestamp) {
			out = append(out, sale)
		}
	}
	return out
}

func Summary(sales []domain.Sale, r Range) domain.SalesSummary {
	summary := domain.SalesSummary{
		Revenue:          decimal.Zero,
		ItemsSold:        decimal.Zero,
		RetailRevenue:    decimal.Zero,
		WholesaleRevenue: decimal.Zero,
	}
	for _, sale := range Filter(sales, r) {
		summary.Transactions++
		summary.Revenue = summary.Revenue.Add(sale.Total)
		for _, item := range sale.Items {
			summary.ItemsSold = summary.ItemsSold.Add(item.Quantity)
		}
		if sale.IsRetail {
			summary.RetailCount++
			summary.RetailRevenue = summary.RetailRevenue.Add(sale.Total)
		} else {
			summary.WholesaleCount++
			summary.WholesaleRevenue = summary.WholesaleRevenue.Add(sale.Total)
		}
	}
	return summary
}

func Profit(sales []domain.Sale, r Range) domain.ProfitReport {
	out := domain.ProfitReport{
		Revenue:       decimal.Zero,
		CostOfGoods:   decimal.Zero,
		MarginPercent: decimal.Zero,
	}
	for _, sale := range Filter(sales, r) {
		out.Revenue = out.Revenue.Add(sale.Total)
		out.CostOfGoods = out.CostOfGoods.Add(sale.CostOfGoodsSold)
	}
	out.Profit = out.Revenue.Sub(out.CostOfGoods)
	if !out.Revenue.IsZero() {
		out.MarginPercent = out.Profit.Div(out.Revenue).Mul(hundred).Round(2)
	}
	return out
}

// CashierPerformance is ordered by revenue, highest first; ties keep the
// order in which cashiers first appear.
func CashierPerformance(sales []domain.Sale, r Range) []domain.CashierStat {
	stats := make([]domain.CashierStat, 0, 4)
	index := map[string]int{}
	for _, sale := range Filter(sales, r) {
		name := strings.TrimSpace(sale.Cashier)
		if name == "" {
			name = UnknownCashier
		}
		i, ok := index[name]
		if !ok {
			i = len(stats)
			index[name] = i
			stats = append(stats, domain.CashierStat{Cashier: name, Revenue: decimal.Zero})
		}
		stats[i].Transactions++
		stats[i].Revenue = stats[i].Revenue.Add(sale.Total)
	}
	for i := range stats {
		stats[i].AverageTicket = stats[i].Revenue.Div(decimal.NewFromInt(int64(stats[i].Transactions))).Round(2)
	}
	slices.SortStableFunc(stats, func(a, b domain.CashierStat) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	return stats
}

// StockValuation values the whole catalog at cost and at retail price.
func StockValuation(products []domain.Product) domain.StockValuation {
	out := domain.StockValuation{CostValue: decimal.Zero, RetailValue: decimal.Zero}
	for _, p := range products {
		out.Products++
		out.CostValue = out.CostValue.Add(p.Stock.Mul(p.CostPrice))
		out.RetailValue = out.RetailValue.Add(p.Stock.Mul(p.NormalPrice))
	}
	return out
}

func LowStock(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range products {
		if p.Stock.LessThanOrEqual(p.ReorderLevel) {
			out = append(out, p)
		}
	}
	return out
}

// PaymentBreakdown lists the tracked methods first, then any other method in
// the order it was seen.
func PaymentBreakdown(sales []domain.Sale, r Range) []domain.PaymentTotal {
	totals := []domain.PaymentTotal{
		{PaymentMethod: domain.PaymentCash, Revenue: decimal.Zero},
		{PaymentMethod: domain.PaymentMpesa, Revenue: decimal.Zero},
		{PaymentMethod: domain.PaymentSplit, Revenue: decimal.Zero},
	}
	for _, sale := range Filter(sales, r) {
		i := slices.IndexFunc(totals, func(t domain.PaymentTotal) bool {
			return t.PaymentMethod == sale.PaymentMethod
		})
		if i < 0 {
			i = len(totals)
			totals = append(totals, domain.PaymentTotal{PaymentMethod: sale.PaymentMethod, Revenue: decimal.Zero})
		}
		totals[i].Transactions++
		totals[i].Revenue = totals[i].Revenue.Add(sale.Total)
	}
	return totals
}

func Discounts(sales []domain.Sale, r Range) domain.DiscountReport {
	out := domain.DiscountReport{TotalDiscount: decimal.Zero, Sales: []domain.Sale{}}
	for _, sale := range Filter(sales, r) {
		if !sale.Discount.IsPositive() {
			continue
		}
		out.TotalDiscount = out.TotalDiscount.Add(sale.Discount)
		out.Sales = append(out.Sales, sale)
	}
	return out
}

// StockMovement emits one row per sold line, newest sale first.
func StockMovement(sales []domain.Sale, r Range) []domain.StockMovement {
	filtered := Filter(sales, r)
	slices.SortStableFunc(filtered, func(a, b domain.Sale) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	rows := make([]domain.StockMovement, 0, len(filtered))
	for _, sale := range filtered {
		for _, item := range sale.Items {
			rows = append(rows, domain.StockMovement{
				SaleID:      sale.ID,
				Timestamp:   sale.Timestamp,
				ProductID:   item.Product.ID,
				ProductName: item.Product.Name,
				Quantity:    item.Quantity,
				Unit:        item.Product.Unit,
				UnitPrice:   item.UnitPrice,
				IsWholesale: item.IsWholesale,
				Total:       item.Total,
			})
		}
	}
	return rows
}

// Dashboard summarises today and the trailing seven days of revenue.
func Dashboard(sales []domain.Sale, products []domain.Product, now time.Time, loc *time.Location, dayClosed bool) domain.DashboardStats {
	if loc == nil {
		loc = time.Local
	}
	today := Day(now, loc)
	profit := Profit(sales, today)
	stats := domain.DashboardStats{
		Date:          today.Start,
		Revenue:       profit.Revenue,
		Profit:        profit.Profit,
		Transactions:  len(Filter(sales, today)),
		LowStockCount: len(LowStock(products)),
		IsDayClosed:   dayClosed,
		Trend:         make([]domain.TrendPoint, 0, 7),
	}

	local := now.In(loc)
	for offset := 6; offset >= 0; offset-- {
		day := Day(local.AddDate(0, 0, -offset), loc)
		stats.Trend = append(stats.Trend, domain.TrendPoint{
			Date:    day.Start,
			Revenue: Summary(sales, day).Revenue,
		})
	}
	return stats
}

// Search matches a receipt id or any item name, case-insensitively. Results
// are newest first.
func Search(sales []domain.Sale, query string) []domain.Sale {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if query == "" || matches(sale, query) {
			out = append(out, sale)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Sale) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	return out
}

func matches(sale domain.Sale, query string) bool {
	if strings.Contains(strings.ToLower(sale.ID), query) {
		return true
	}
	for _, item := range sale.Items {
		if strings.Contains(strings.ToLower(item.Product.Name), query) {
			return true
		}
	}
	return false
}
