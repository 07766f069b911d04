package service

import (
	"context"
	"fmt"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/snapshot"
	"godwillpos/backend/internal/zreport"
)

// CloseDay archives today's Z-report and blocks checkout until ReopenDay.
func (s *Service) CloseDay(ctx context.Context) (domain.ZReport, error) {
	now := s.now()
	report, err := s.repo.CloseDay(ctx, func(sales []domain.Sale) domain.ZReport {
		return zreport.Build(sales, now, s.loc)
	})
	if err != nil {
		return domain.ZReport{}, err
	}

	s.metrics.DayCloses.Inc()
	s.log.Info().Str("date", report.Date).Int("total_sales", report.TotalSales).Str("net_sales", report.NetSales.String()).Msg("day closed")
	s.logAudit(ctx, "day_close", "zreport", report.Date, fmt.Sprintf("sales=%d,net=%s", report.TotalSales, report.NetSales))
	s.persist(ctx, snapshot.KeyDayClosed, snapshot.KeyCurrentZReport, snapshot.KeyZReportHistory)
	return *report, nil
}

func (s *Service) ReopenDay(ctx context.Context) error {
	if err := s.repo.ReopenDay(ctx); err != nil {
		return err
	}
	s.logAudit(ctx, "day_reopen", "day", domain.CalendarDate(s.now(), s.loc), "")
	s.persist(ctx, snapshot.KeyDayClosed)
	return nil
}

func (s *Service) IsDayClosed(ctx context.Context) (bool, error) {
	return s.repo.IsDayClosed(ctx)
}

func (s *Service) CurrentZReport(ctx context.Context) (domain.ZReport, error) {
	report, err := s.repo.CurrentZReport(ctx)
	if err != nil {
		return domain.ZReport{}, err
	}
	return *report, nil
}

// ListZReports returns the archive oldest first.
func (s *Service) ListZReports(ctx context.Context) ([]domain.ZReport, error) {
	reports, err := s.repo.ListZReports(ctx)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []domain.ZReport{}
	}
	return reports, nil
}

// ZReportText renders the archived report at index, or the current one when
// index is negative.
func (s *Service) ZReportText(ctx context.Context, index int) (string, error) {
	var report domain.ZReport
	if index < 0 {
		current, err := s.CurrentZReport(ctx)
		if err != nil {
			return "", err
		}
		report = current
	} else {
		reports, err := s.repo.ListZReports(ctx)
		if err != nil {
			return "", err
		}
		if index >= len(reports) {
			return "", domain.ErrNotFound
		}
		report = reports[index]
	}
	return s.layout(ctx).ZReport(report), nil
}
