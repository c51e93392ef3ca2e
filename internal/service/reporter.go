package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/orcamento/internal/database/repository"
)

// ReporterService is the read-only query surface consumed by dashboards. Pure
// aggregation over the expense/transaction join; no invariants of its own.
type ReporterService struct {
	Expenses *repository.ExpenseRepo
}

// List returns expenses with joined names, narrowed by the filters.
func (s *ReporterService) List(ctx context.Context, f repository.ExpenseFilters) ([]repository.ExpenseRow, error) {
	return s.Expenses.ListRows(ctx, f)
}

// Summary returns signed sums grouped by the requested axis. Presentation
// layers display absolute values.
func (s *ReporterService) Summary(ctx context.Context, f repository.ExpenseFilters, by repository.GroupBy) ([]repository.Total, error) {
	return s.Expenses.SumGrouped(ctx, f, by)
}

// MonthTotal sums non-ignored expenses attributed to the given reference month.
func (s *ReporterService) MonthTotal(ctx context.Context, month time.Time) (decimal.Decimal, error) {
	start := repository.MonthStart(month)
	totals, err := s.Expenses.SumGrouped(ctx, repository.ExpenseFilters{
		From: start,
		To:   start.AddDate(0, 1, 0),
	}, repository.GroupByMonth)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.Sum)
	}
	return sum, nil
}
