package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/store"
	"godwillpos/backend/internal/xid"
)

type Store struct {
	mu             sync.RWMutex
	products       []domain.Product
	sales          []domain.Sale
	settings       domain.ShopSettings
	dayClosed      bool
	currentZReport *domain.ZReport
	zReportHistory []domain.ZReport
	auditLogs      []domain.AuditLog
}

func New(settings domain.ShopSettings) *Store {
	return &Store{settings: settings, auditLogs: make([]domain.AuditLog, 0, 128)}
}

// NewSeeded starts with the seed catalog and the given settings.
func NewSeeded(settings domain.ShopSettings) *Store {
	s := New(settings)
	s.products = store.SeedProducts()
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	product := s.products[idx]
	return &product, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product = product.Normalize()
	if product.ID == "" || product.Name == "" {
		return nil, domain.ErrInvalidRecord
	}
	if s.productIndex(product.ID) >= 0 {
		return nil, domain.ErrDuplicateProduct
	}
	s.products = append(s.products, product)
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product = product.Normalize()
	if product.ID == "" || product.Name == "" {
		return nil, domain.ErrInvalidRecord
	}
	idx := s.productIndex(product.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	s.products[idx] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.productIndex(id)
	if idx < 0 {
		return store.ErrNotFound
	}
	s.products = slices.Delete(s.products, idx, idx+1)
	return nil
}

// ImportProducts upserts by id, keeping the position of existing records.
func (s *Store) ImportProducts(_ context.Context, products []domain.Product) (domain.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		if p = p.Normalize(); p.ID == "" || p.Name == "" {
			return domain.ImportResult{}, fmt.Errorf("%w: product %q", domain.ErrInvalidRecord, p.ID)
		}
	}

	var result domain.ImportResult
	for _, p := range products {
		p = p.Normalize()
		if idx := s.productIndex(p.ID); idx >= 0 {
			s.products[idx] = p
			result.Updated++
			continue
		}
		s.products = append(s.products, p)
		result.Inserted++
	}
	return result, nil
}

func (s *Store) CommitSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if s.dayClosed {
		return nil, domain.ErrDayClosed
	}

	indexes := make([]int, len(sale.Items))
	for i, item := range sale.Items {
		idx := s.productIndex(item.Product.ID)
		available := decimal.Zero
		if idx >= 0 {
			available = s.products[idx].Stock
		}
		if idx < 0 || item.Quantity.GreaterThan(available) {
			return nil, &domain.StockShortage{
				Err:       domain.ErrInventoryConflict,
				ProductID: item.Product.ID,
				Name:      item.Product.Name,
				Requested: item.Quantity.String(),
				Available: available.String(),
			}
		}
		indexes[i] = idx
	}

	if sale.ID == "" {
		sale.ID = xid.Receipt(s.saleExists)
	} else if s.saleExists(sale.ID) {
		return nil, fmt.Errorf("%w: sale %s already recorded", domain.ErrConflict, sale.ID)
	}
	sale.Items = slices.Clone(sale.Items)

	for i, item := range sale.Items {
		product := &s.products[indexes[i]]
		product.Stock = decimal.Max(decimal.Zero, product.Stock.Sub(item.Quantity))
	}
	s.sales = append(s.sales, sale)

	committed := cloneSale(sale)
	return &committed, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSales(s.sales), nil
}

func (s *Store) FindSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id = strings.TrimSpace(id)
	for _, sale := range s.sales {
		if strings.EqualFold(sale.ID, id) {
			found := cloneSale(sale)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) PurgeSales(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := len(s.sales)
	s.sales = nil
	return purged, nil
}

func (s *Store) IsDayClosed(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dayClosed, nil
}

func (s *Store) CloseDay(_ context.Context, build func([]domain.Sale) domain.ZReport) (*domain.ZReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dayClosed {
		return nil, domain.ErrDayAlreadyClosed
	}
	report := build(cloneSales(s.sales))
	s.zReportHistory = append(s.zReportHistory, report)
	current := report
	s.currentZReport = &current
	s.dayClosed = true

	archived := report
	return &archived, nil
}

func (s *Store) ReopenDay(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dayClosed {
		return domain.ErrDayNotClosed
	}
	s.dayClosed = false
	return nil
}

func (s *Store) CurrentZReport(_ context.Context) (*domain.ZReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentZReport == nil {
		return nil, store.ErrNotFound
	}
	report := *s.currentZReport
	return &report, nil
}

func (s *Store) ListZReports(_ context.Context) ([]domain.ZReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.zReportHistory), nil
}

func (s *Store) GetSettings(_ context.Context) (domain.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.ShopSettings) (domain.ShopSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.AutoBackupThreshold < 0 {
		return domain.ShopSettings{}, fmt.Errorf("%w: autoBackupThreshold must not be negative", domain.ErrValidation)
	}
	s.settings = settings
	return settings, nil
}

func (s *Store) Snapshot(_ context.Context) (domain.Backup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Replace swaps the whole state at once. Audit logs are kept.
func (s *Store) Replace(_ context.Context, state domain.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(state)
	return nil
}

// Update reads the state and writes fn's result under one write lock, so no
// sale or day change can land in between. An error from fn changes nothing.
func (s *Store) Update(_ context.Context, fn func(current domain.Backup) (domain.Backup, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.snapshotLocked())
	if err != nil {
		return err
	}
	s.replaceLocked(next)
	return nil
}

func (s *Store) snapshotLocked() domain.Backup {
	backup := domain.Backup{
		Products:       slices.Clone(s.products),
		Sales:          cloneSales(s.sales),
		ShopSettings:   s.settings,
		IsDayClosed:    s.dayClosed,
		ZReportHistory: slices.Clone(s.zReportHistory),
	}
	if s.currentZReport != nil {
		report := *s.currentZReport
		backup.CurrentZReport = &report
	}
	return backup
}

func (s *Store) replaceLocked(state domain.Backup) {
	products := make([]domain.Product, 0, len(state.Products))
	for _, p := range state.Products {
		products = append(products, p.Normalize())
	}
	s.products = products
	s.sales = cloneSales(state.Sales)
	s.settings = state.ShopSettings
	s.dayClosed = state.IsDayClosed
	s.zReportHistory = slices.Clone(state.ZReportHistory)
	s.currentZReport = nil
	if state.CurrentZReport != nil {
		report := *state.CurrentZReport
		s.currentZReport = &report
	}
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

// ListAuditLogs returns entries in [from, to), newest first.
func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortStableFunc(result, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) productIndex(id string) int {
	id = strings.TrimSpace(id)
	return slices.IndexFunc(s.products, func(p domain.Product) bool { return p.ID == id })
}

func (s *Store) saleExists(id string) bool {
	return slices.ContainsFunc(s.sales, func(sale domain.Sale) bool { return sale.ID == id })
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}

func cloneSales(src []domain.Sale) []domain.Sale {
	if src == nil {
		return nil
	}
	out := make([]domain.Sale, len(src))
	for i, sale := range src {
		out[i] = cloneSale(sale)
	}
	return out
}
