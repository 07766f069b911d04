package service

import (
	"context"
	"fmt"
	"strings"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/receipt"
	"godwillpos/backend/internal/report"
	"godwillpos/backend/internal/snapshot"
)

// ReportKinds lists the names accepted by Report.
var ReportKinds = []string{
	"summary", "profit", "cashiers", "stock-valuation", "low-stock",
	"payments", "discounts", "stock-movement",
}

// Report runs one aggregator over the inclusive [from, to] calendar range.
func (s *Service) Report(ctx context.Context, kind string, from string, to string) (any, error) {
	r, err := report.NewRange(from, to, s.now(), s.loc)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "summary":
		return report.Summary(sales, r), nil
	case "profit":
		return report.Profit(sales, r), nil
	case "cashiers":
		return report.CashierPerformance(sales, r), nil
	case "payments":
		return report.PaymentBreakdown(sales, r), nil
	case "discounts":
		return report.Discounts(sales, r), nil
	case "stock-movement":
		return report.StockMovement(sales, r), nil
	case "stock-valuation", "low-stock":
		products, err := s.repo.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		if kind == "low-stock" {
			return report.LowStock(products), nil
		}
		return report.StockValuation(products), nil
	}
	return nil, fmt.Errorf("%w: report %q", domain.ErrNotFound, kind)
}

func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	closed, err := s.repo.IsDayClosed(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return report.Dashboard(sales, products, s.now(), s.loc, closed), nil
}

// ListSales returns matching sales newest first. A limit below one means no
// limit.
func (s *Service) ListSales(ctx context.Context, query string, limit int) ([]domain.Sale, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	out := report.Search(sales, query)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.Sale, error) {
	sale, err := s.repo.FindSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

func (s *Service) ReceiptText(ctx context.Context, id string) (string, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return "", err
	}
	return s.layout(ctx).Receipt(sale), nil
}

func (s *Service) HardwareReceipt(ctx context.Context, id string) (domain.HardwareReceiptResponse, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return domain.HardwareReceiptResponse{}, err
	}
	s.logAudit(ctx, "receipt_print", "sale", sale.ID, "escpos")
	return s.layout(ctx).Hardware(sale), nil
}

func (s *Service) ExportSalesCSV(ctx context.Context) (string, error) {
	sales, err := s.ListSales(ctx, "", 0)
	if err != nil {
		return "", err
	}
	return receipt.SalesCSV(sales, s.loc)
}

// PurgeSales drops the whole sales archive. Z-reports are kept.
func (s *Service) PurgeSales(ctx context.Context) (int, error) {
	purged, err := s.repo.PurgeSales(ctx)
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, "sales_purge", "sale", "*", fmt.Sprintf("purged=%d", purged))
	s.persist(ctx, snapshot.KeySales)
	return purged, nil
}
