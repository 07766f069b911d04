// Package receipt renders sales and Z-reports as fixed-width text for the
// counter printer and for download.
package receipt

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
)

const (
	width        = 40
	nameColumn   = 25
	terminalName = "POS-01 (MAIN)"
)

var (
	heavyRule = strings.Repeat("=", width)
	lightRule = strings.Repeat("-", width)
)

// Layout carries the shop-level values printed on every document.
type Layout struct {
	ShopName string
	Footer   string
	Currency string
	TaxRate  decimal.Decimal
	Location *time.Location
}

func (l Layout) loc() *time.Location {
	if l.Location == nil {
		return time.Local
	}
	return l.Location
}

// Receipt renders a customer receipt. The output depends only on the sale
// and the layout.
func (l Layout) Receipt(sale domain.Sale) string {
	stamp := sale.Timestamp.In(l.loc())
	lines := []string{
		heavyRule,
		strings.ToUpper(l.ShopName) + " - RECEIPT",
		heavyRule,
		field("RECEIPT #:", sale.ID),
		field("DATE:", stamp.Format(domain.DateLayout)),
		field("TIME:", stamp.Format(domain.TimeLayout)),
		field("CASHIER:", sale.Cashier),
		field("PAYMENT:", string(sale.PaymentMethod)),
		heavyRule,
		"",
		"ITEMS:",
		lightRule,
	}
	for _, item := range sale.Items {
		lines = append(lines, itemLine(item))
	}
	lines = append(lines,
		lightRule,
		field("SUBTOTAL:", Money(sale.Subtotal)),
		field(fmt.Sprintf("VAT (%s%%):", l.TaxRate.Mul(decimal.NewFromInt(100)).String()), Money(sale.Tax)),
		field(fmt.Sprintf("TOTAL (%s):", l.Currency), Money(sale.Total)),
	)
	if sale.PaymentMethod == domain.PaymentCash {
		lines = append(lines,
			field("PAID (CASH):", Money(sale.AmountReceived)),
			field("CHANGE:", Money(sale.Change)),
		)
	}
	lines = append(lines, heavyRule)
	if footer := strings.TrimSpace(l.Footer); footer != "" {
		lines = append(lines, footer)
	}
	return strings.Join(lines, "\n")
}

// ZReport renders the end-of-day report.
func (l Layout) ZReport(report domain.ZReport) string {
	lines := []string{
		heavyRule,
		"Z-REPORT: " + strings.ToUpper(l.ShopName),
		heavyRule,
		field("DATE:", report.Date),
		field("TERMINAL:", terminalName),
		field("OPENED:", report.OpenTime),
		field("CLOSED:", report.CloseTime),
		heavyRule,
		"",
		"SALES METRICS:",
		lightRule,
		wideField("TX COUNT:", fmt.Sprintf("%d", report.TotalSales)),
		wideField("GROSS SALES:", l.amount(report.GrossSales)),
		wideField("DISCOUNTS:", Money(report.Discounts)),
		wideField("NET REVENUE:", l.amount(report.NetSales)),
		"",
		"PAYMENT CHANNELS:",
		lightRule,
		wideField("CASH TOTAL:", l.amount(report.CashTotal)),
		wideField("M-PESA TOTAL:", l.amount(report.MpesaTotal)),
		wideField("SPLIT TOTAL:", l.amount(report.SplitTotal)),
		"",
		"TOP PERFORMING ITEMS:",
		lightRule,
	}
	for _, item := range report.TopItems {
		lines = append(lines, fmt.Sprintf("%-*s %s units", nameColumn, item.Name, item.Qty.StringFixed(0)))
	}
	lines = append(lines,
		"",
		heavyRule,
		"        SHIFT OFFICIALLY ARCHIVED",
		heavyRule,
	)
	return strings.Join(lines, "\n")
}

// Hardware wraps the receipt text in ESC/POS init and cut commands.
func (l Layout) Hardware(sale domain.Sale) domain.HardwareReceiptResponse {
	text := l.Receipt(sale)
	return domain.HardwareReceiptResponse{
		SaleID:       sale.ID,
		EscposBase64: base64.StdEncoding.EncodeToString(ESCPOS(text)),
		PreviewText:  text,
		FileName:     fmt.Sprintf("receipt-%s.bin", sale.ID),
	}
}

func ESCPOS(text string) []byte {
	out := []byte{0x1b, 0x40}
	for _, line := range strings.Split(text, "\n") {
		out = append(out, line...)
		out = append(out, '\n')
	}
	out = append(out, '\n', '\n')
	return append(out, 0x1d, 0x56, 0x41, 0x10)
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (l Layout) amount(d decimal.Decimal) string {
	if l.Currency == "" {
		return Money(d)
	}
	return l.Currency + " " + Money(d)
}

func itemLine(item domain.CartItem) string {
	name := item.Product.Name
	if item.IsWholesale {
		name += " [WHOLESALE]"
	}
	return fmt.Sprintf("%-*s %s %s x %s = %s",
		nameColumn, name, item.Quantity.StringFixed(2), item.Product.Unit, Money(item.UnitPrice), Money(item.Total))
}

func field(label, value string) string {
	return fmt.Sprintf("%-14s%s", label, value)
}

func wideField(label, value string) string {
	return fmt.Sprintf("%-16s%s", label, value)
}
