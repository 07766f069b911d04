// Package zreport builds the end-of-day reconciliation report.
package zreport

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
)

const topItemLimit = 5

// Build aggregates the sales that fall on now's local calendar day. It does
// not touch any state; archiving the result is the caller's job.
func Build(sales []domain.Sale, now time.Time, loc *time.Location) domain.ZReport {
	if loc == nil {
		loc = time.Local
	}
	today := domain.CalendarDate(now, loc)

	report := domain.ZReport{
		Date:       today,
		CloseTime:  now.In(loc).Format(domain.TimeLayout),
		GrossSales: decimal.Zero,
		Discounts:  decimal.Zero,
		NetSales:   decimal.Zero,
		CashTotal:  decimal.Zero,
		MpesaTotal: decimal.Zero,
		SplitTotal: decimal.Zero,
		TopItems:   []domain.TopItem{},
	}

	var opened time.Time
	var tally itemTally
	for _, sale := range sales {
		if domain.CalendarDate(sale.Timestamp, loc) != today {
			continue
		}
		report.TotalSales++
		report.GrossSales = report.GrossSales.Add(sale.Subtotal)
		report.Discounts = report.Discounts.Add(sale.Discount)
		report.NetSales = report.NetSales.Add(sale.Total)

		switch sale.PaymentMethod {
		case domain.PaymentCash:
			report.CashTotal = report.CashTotal.Add(sale.Total)
		case domain.PaymentMpesa:
			report.MpesaTotal = report.MpesaTotal.Add(sale.Total)
		case domain.PaymentSplit:
			report.SplitTotal = report.SplitTotal.Add(sale.Total)
		}

		if opened.IsZero() || sale.Timestamp.Before(opened) {
			opened = sale.Timestamp
		}
		for _, item := range sale.Items {
			tally.add(item.Product.Name, item.Quantity)
		}
	}

	if opened.IsZero() {
		opened = now
	}
	report.OpenTime = opened.In(loc).Format(domain.TimeLayout)
	report.TopItems = tally.top(topItemLimit)
	return report
}

// itemTally sums quantities per product name and remembers first-seen order.
type itemTally struct {
	order []domain.TopItem
	index map[string]int
}

func (t *itemTally) add(name string, qty decimal.Decimal) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[name]; ok {
		t.order[i].Qty = t.order[i].Qty.Add(qty)
		return
	}
	t.index[name] = len(t.order)
	t.order = append(t.order, domain.TopItem{Name: name, Qty: qty})
}

func (t *itemTally) top(n int) []domain.TopItem {
	items := slices.Clone(t.order)
	slices.SortStableFunc(items, func(a, b domain.TopItem) int {
		return b.Qty.Cmp(a.Qty)
	})
	if len(items) > n {
		items = items[:n]
	}
	if items == nil {
		items = []domain.TopItem{}
	}
	return items
}
