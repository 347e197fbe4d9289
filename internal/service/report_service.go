package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pos-backoffice/internal/config"
	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MonthlyProfitLimit caps how many of the month's transactions feed the
// profit chart.
const MonthlyProfitLimit = 10

// ReportService aggregates recorded sales. It never writes.
type ReportService interface {
	Report(ctx context.Context, period domain.Period) (*domain.SalesReport, error)
	MonthlyProfit(ctx context.Context) (*domain.ProfitSeries, error)
	MostProfitable(ctx context.Context) ([]domain.TransactionProfit, error)
	SalesTotal(ctx context.Context, period domain.Period) (*domain.SalesTotal, error)
}

type reportService struct {
	transactionRepo repository.TransactionRepository
	location        *time.Location
	logger          *zap.Logger
	now             func() time.Time
}

// NewReportService creates a new instance of ReportService. Windows are
// computed in cfg.Location, UTC when unset.
func NewReportService(transactionRepo repository.TransactionRepository, cfg config.ReportConfig, logger *zap.Logger) ReportService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{
		transactionRepo: transactionRepo,
		location:        loc,
		logger:          logger,
		now:             time.Now,
	}
}

// Window returns the inclusive bounds of period around now, evaluated in loc.
// Both bounds are nil for PeriodAll.
func Window(period domain.Period, now time.Time, loc *time.Location) (from, to *time.Time, err error) {
	local := now.In(loc)
	y, m, d := local.Date()

	var start, next time.Time
	switch period {
	case domain.PeriodWeek:
		// Sunday starts the week.
		first := d - int(local.Weekday())
		start = time.Date(y, m, first, 0, 0, 0, 0, loc)
		next = time.Date(y, m, first+7, 0, 0, 0, 0, loc)
	case domain.PeriodMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		next = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	case domain.PeriodYear:
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		next = time.Date(y+1, time.January, 1, 0, 0, 0, 0, loc)
	case domain.PeriodAll:
		return nil, nil, nil
	default:
		return nil, nil, &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown report period %q, expected week, month, year or all", period),
		}
	}

	end := next.Add(-time.Nanosecond)
	return &start, &end, nil
}

func (s *reportService) list(ctx context.Context, period domain.Period, limit int) ([]*domain.Transaction, error) {
	from, to, err := Window(period, s.now(), s.location)
	if err != nil {
		return nil, err
	}
	sales, err := s.transactionRepo.List(ctx, domain.TransactionFilter{From: from, To: to, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return sales, nil
}

// profitOf sums the margin of the resolved line items of sale.
func (s *reportService) profitOf(sale *domain.Transaction) decimal.Decimal {
	profit := decimal.Zero
	for _, item := range sale.Items {
		if item.Product == nil {
			s.logger.Warn("Skipping unresolved line item",
				zap.String("transaction_id", sale.ID.String()),
				zap.String("product_uid", item.ProductUID),
			)
			continue
		}
		profit = profit.Add(item.Product.Profit())
	}
	return profit
}

// Report returns totals and the transactions of period
func (s *reportService) Report(ctx context.Context, period domain.Period) (*domain.SalesReport, error) {
	sales, err := s.list(ctx, period, 0)
	if err != nil {
		return nil, err
	}

	report := &domain.SalesReport{
		Period:       period,
		TotalSales:   decimal.Zero,
		TotalProfit:  decimal.Zero,
		Transactions: sales,
	}
	for _, sale := range sales {
		report.TotalSales = report.TotalSales.Add(sale.TotalPrice)
		report.TotalProfit = report.TotalProfit.Add(s.profitOf(sale))
	}
	return report, nil
}

// MonthlyProfit returns the selling and cost price of every resolved line
// item in the first MonthlyProfitLimit transactions of the current month.
func (s *reportService) MonthlyProfit(ctx context.Context) (*domain.ProfitSeries, error) {
	sales, err := s.list(ctx, domain.PeriodMonth, MonthlyProfitLimit)
	if err != nil {
		return nil, err
	}

	series := &domain.ProfitSeries{
		SellingPrices: []decimal.Decimal{},
		CostPrices:    []decimal.Decimal{},
	}
	for _, sale := range sales {
		for _, item := range sale.Items {
			if item.Product == nil {
				s.logger.Warn("Skipping unresolved line item",
					zap.String("transaction_id", sale.ID.String()),
					zap.String("product_uid", item.ProductUID),
				)
				continue
			}
			series.SellingPrices = append(series.SellingPrices, item.Product.SellingPrice)
			series.CostPrices = append(series.CostPrices, item.Product.Price)
		}
	}
	return series, nil
}

// MostProfitable ranks every transaction by profit, highest first. Equal
// profits keep their chronological order.
func (s *reportService) MostProfitable(ctx context.Context) ([]domain.TransactionProfit, error) {
	sales, err := s.list(ctx, domain.PeriodAll, 0)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.TransactionProfit, 0, len(sales))
	for _, sale := range sales {
		ranked = append(ranked, domain.TransactionProfit{Transaction: sale, Profit: s.profitOf(sale)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Profit.GreaterThan(ranked[j].Profit)
	})
	return ranked, nil
}

// SalesTotal returns the revenue of a week, month or year
func (s *reportService) SalesTotal(ctx context.Context, period domain.Period) (*domain.SalesTotal, error) {
	if period == domain.PeriodAll {
		return nil, &ValidationError{Field: "type", Message: "sales totals are available for week, month or year"}
	}
	sales, err := s.list(ctx, period, 0)
	if err != nil {
		return nil, err
	}

	total := &domain.SalesTotal{Period: period, TotalSales: decimal.Zero}
	for _, sale := range sales {
		total.TotalSales = total.TotalSales.Add(sale.TotalPrice)
	}
	return total, nil
}
