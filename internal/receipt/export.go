package receipt

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"godwillpos/backend/internal/domain"
)

// SalesCSV exports the sales history one row per sale.
func SalesCSV(sales []domain.Sale, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Receipt No", "Date", "Total", "Payment", "Items"}); err != nil {
		return "", err
	}
	for _, sale := range sales {
		names := make([]string, 0, len(sale.Items))
		for _, item := range sale.Items {
			names = append(names, item.Product.Name)
		}
		row := []string{
			sale.ID,
			sale.Timestamp.In(loc).Format(domain.DateLayout + " " + domain.TimeLayout),
			Money(sale.Total),
			string(sale.PaymentMethod),
			strings.Join(names, "; "),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
