// Package snapshot encodes shop state as JSON documents and decodes them back
// with partial-restore semantics: a missing or unreadable field leaves the
// current value in place.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"godwillpos/backend/internal/domain"
)

// ErrMalformed marks persisted data that could not be read at all.
var ErrMalformed = errors.New("malformed snapshot")

// Document keys shared by the persistence backends.
const (
	KeyProducts       = "godwill_products"
	KeySales          = "godwill_sales"
	KeySettings       = "godwill_settings"
	KeyDayClosed      = "godwill_day_closed"
	KeyCurrentZReport = "godwill_last_zreport"
	KeyZReportHistory = "godwill_zreport_history"
	KeyBackupLatest   = "godwill_backup_latest"
)

// StateKeys lists the documents that together hold the shop state.
var StateKeys = []string{KeyProducts, KeySales, KeySettings, KeyDayClosed, KeyCurrentZReport, KeyZReportHistory}

// Partial is a decoded bundle. Nil fields were absent, null or unreadable.
type Partial struct {
	Products       *[]domain.Product
	Sales          *[]domain.Sale
	CurrentZReport *domain.ZReport
	IsDayClosed    *bool
	ZReportHistory *[]domain.ZReport
	settings       json.RawMessage
	Warnings       []string
}

func Encode(b domain.Backup) ([]byte, error) {
	if b.Products == nil {
		b.Products = []domain.Product{}
	}
	if b.Sales == nil {
		b.Sales = []domain.Sale{}
	}
	if b.ZReportHistory == nil {
		b.ZReportHistory = []domain.ZReport{}
	}
	return json.Marshal(b)
}

// Decode reads a backup bundle. Only a body that is not a JSON object fails;
// individual bad fields become warnings.
func Decode(body []byte) (Partial, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Partial{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var p Partial
	p.Products = field[[]domain.Product](raw["products"], "products", &p.Warnings)
	p.Sales = field[[]domain.Sale](raw["sales"], "sales", &p.Warnings)
	p.CurrentZReport = field[domain.ZReport](raw["currentZReport"], "currentZReport", &p.Warnings)
	p.IsDayClosed = field[bool](raw["isDayClosed"], "isDayClosed", &p.Warnings)
	p.ZReportHistory = field[[]domain.ZReport](raw["zReportHistory"], "zReportHistory", &p.Warnings)
	if settings := raw["shopSettings"]; present(settings) {
		p.settings = settings
	}
	return p, nil
}

// Documents splits state into the per-key documents written by the
// persistence layer. Every key in StateKeys is present.
func Documents(b domain.Backup) (map[string][]byte, error) {
	docs := make(map[string][]byte, len(StateKeys))
	values := map[string]any{
		KeyProducts:       nonNil(b.Products),
		KeySales:          nonNil(b.Sales),
		KeySettings:       b.ShopSettings,
		KeyDayClosed:      b.IsDayClosed,
		KeyZReportHistory: nonNil(b.ZReportHistory),
		// A nil report is written as null so a stale one is overwritten.
		KeyCurrentZReport: b.CurrentZReport,
	}
	for key, value := range values {
		body, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		docs[key] = body
	}
	return docs, nil
}

// FromDocuments is the inverse of Documents. Missing keys are skipped and
// unreadable ones are reported in Warnings.
func FromDocuments(docs map[string][]byte) Partial {
	var p Partial
	p.Products = field[[]domain.Product](docs[KeyProducts], KeyProducts, &p.Warnings)
	p.Sales = field[[]domain.Sale](docs[KeySales], KeySales, &p.Warnings)
	p.CurrentZReport = field[domain.ZReport](docs[KeyCurrentZReport], KeyCurrentZReport, &p.Warnings)
	p.IsDayClosed = field[bool](docs[KeyDayClosed], KeyDayClosed, &p.Warnings)
	p.ZReportHistory = field[[]domain.ZReport](docs[KeyZReportHistory], KeyZReportHistory, &p.Warnings)
	if settings := docs[KeySettings]; present(settings) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(settings, &fields); err != nil {
			p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %v", KeySettings, err))
		} else {
			p.settings = settings
		}
	}
	return p
}

// Empty reports whether nothing in the bundle can be applied.
func (p Partial) Empty() bool {
	return p.Products == nil && p.Sales == nil && p.CurrentZReport == nil &&
		p.IsDayClosed == nil && p.ZReportHistory == nil && p.settings == nil
}

// Fields names the parts of the bundle that will be applied.
func (p Partial) Fields() []string {
	out := make([]string, 0, 6)
	if p.Products != nil {
		out = append(out, "products")
	}
	if p.Sales != nil {
		out = append(out, "sales")
	}
	if p.settings != nil {
		out = append(out, "shopSettings")
	}
	if p.CurrentZReport != nil {
		out = append(out, "currentZReport")
	}
	if p.IsDayClosed != nil {
		out = append(out, "isDayClosed")
	}
	if p.ZReportHistory != nil {
		out = append(out, "zReportHistory")
	}
	return out
}

// Apply overlays the bundle on current. Settings merge field by field and a
// blank password keeps the current one.
func (p Partial) Apply(current domain.Backup) domain.Backup {
	next := current
	if p.Products != nil {
		products := make([]domain.Product, 0, len(*p.Products))
		for _, product := range *p.Products {
			products = append(products, product.Normalize())
		}
		next.Products = products
	}
	if p.Sales != nil {
		next.Sales = *p.Sales
	}
	if p.CurrentZReport != nil {
		report := *p.CurrentZReport
		next.CurrentZReport = &report
	}
	if p.IsDayClosed != nil {
		next.IsDayClosed = *p.IsDayClosed
	}
	if p.ZReportHistory != nil {
		next.ZReportHistory = *p.ZReportHistory
	}
	if p.settings != nil {
		merged := current.ShopSettings
		if err := json.Unmarshal(p.settings, &merged); err == nil {
			if merged.SystemPassword == "" {
				merged.SystemPassword = current.ShopSettings.SystemPassword
			}
			if merged.InventoryPassword == "" {
				merged.InventoryPassword = current.ShopSettings.InventoryPassword
			}
			next.ShopSettings = merged
		}
	}
	return next
}

func field[T any](raw json.RawMessage, name string, warnings *[]string) *T {
	if !present(raw) {
		return nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", name, err))
		return nil
	}
	return &value
}

func present(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
