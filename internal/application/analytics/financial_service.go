package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pharmapos/backend/internal/domain/analytics"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTrendMonths = 12
	maxTrendMonths     = 24
)

// FinancialService builds the financial reports
type FinancialService struct {
	sales      SaleSource
	categories CategorySource
	cache      *cache.QueryCache
	config     Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewFinancialService creates a new FinancialService
func NewFinancialService(sales SaleSource, categories CategorySource, qc *cache.QueryCache, config Config, logger *zap.Logger) *FinancialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinancialService{
		sales:      sales,
		categories: categories,
		cache:      qc,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Summary returns the profit and loss summary of the period next to the equally long period before it
func (s *FinancialService) Summary(ctx context.Context, q PeriodQuery) (*FinancialSummaryResponse, error) {
	r, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	prev := shared.DateRange{Start: r.Start.Add(-r.End.Sub(r.Start)), End: r.Start}

	return cache.Fetch(ctx, s.cache, ViewFinanceSummary, q.key(), s.config.ttl(ViewFinanceSummary),
		func(ctx context.Context) (*FinancialSummaryResponse, error) {
			var current, previous []sales.Sale
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				current, err = s.sales.FindInRange(gctx, r)
				return err
			})
			g.Go(func() error {
				var err error
				previous, err = s.sales.FindInRange(gctx, prev)
				return err
			})
			if err := g.Wait(); err != nil {
				s.logger.Error("Failed to load financial summary", zap.Error(err))
				return nil, err
			}

			cur := analytics.Summarize(current)
			pre := analytics.Summarize(previous)
			return &FinancialSummaryResponse{
				Range:              r,
				PreviousRange:      prev,
				Current:            cur,
				Previous:           pre,
				RevenueChangePct:   analytics.PercentChange(cur.NetRevenue, pre.NetRevenue),
				ProfitChangePct:    analytics.PercentChange(cur.GrossProfit, pre.GrossProfit),
				TransactionsChange: cur.Transactions - pre.Transactions,
			}, nil
		})
}

// MonthlyTrend returns months (1..24, default 12) consecutive months ending this month
func (s *FinancialService) MonthlyTrend(ctx context.Context, months int) (*TrendResponse, error) {
	if months == 0 {
		months = defaultTrendMonths
	}
	if months < 1 || months > maxTrendMonths {
		return nil, shared.NewDomainError("INVALID_MONTHS", fmt.Sprintf("months must be between 1 and %d", maxTrendMonths))
	}
	now := s.now()
	loc := s.config.location()
	last := shared.StartOfMonth(now, loc)
	r := shared.DateRange{Start: last.AddDate(0, -(months - 1), 0), End: last.AddDate(0, 1, 0)}

	return cache.Fetch(ctx, s.cache, ViewMonthlyTrend, last.Format("2006-01")+":"+strconv.Itoa(months), s.config.ttl(ViewMonthlyTrend),
		func(ctx context.Context) (*TrendResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			points := analytics.MonthlyTrend(list, months, now, loc)
			return &TrendResponse{Range: r, Points: points, Total: sumPoints(points)}, nil
		})
}

// CategoryPerformance returns revenue, profit and share per category for the period
func (s *FinancialService) CategoryPerformance(ctx context.Context, q PeriodQuery) (*CategoryPerformanceResponse, error) {
	r, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, ViewCategoryPerformance, q.key(), s.config.ttl(ViewCategoryPerformance),
		func(ctx context.Context) (*CategoryPerformanceResponse, error) {
			var list []sales.Sale
			var categories []catalog.Category
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				list, err = s.sales.FindInRange(gctx, r)
				return err
			})
			g.Go(func() error {
				var err error
				categories, err = s.categories.FindAllIncludingInactive(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return nil, err
			}
			return &CategoryPerformanceResponse{Range: r, Categories: analytics.CategoryBreakdown(list, categories)}, nil
		})
}

// ProfitByProduct ranks products by gross profit for the period
func (s *FinancialService) ProfitByProduct(ctx context.Context, q RankingQuery) (*ProductRankingResponse, error) {
	r, err := s.resolve(q.PeriodQuery)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(q.Limit)
	return cache.Fetch(ctx, s.cache, ViewProfitByProduct, q.key()+":"+strconv.Itoa(limit), s.config.ttl(ViewProfitByProduct),
		func(ctx context.Context) (*ProductRankingResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			return &ProductRankingResponse{Range: r, Products: analytics.ProfitByProduct(list, limit)}, nil
		})
}

// DailyBreakdown returns one zero-filled row per day of the period
func (s *FinancialService) DailyBreakdown(ctx context.Context, q PeriodQuery) (*TrendResponse, error) {
	r, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	loc := s.config.location()
	return cache.Fetch(ctx, s.cache, ViewDailyBreakdown, q.key(), s.config.ttl(ViewDailyBreakdown),
		func(ctx context.Context) (*TrendResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			points := analytics.DailyBreakdown(list, r, loc)
			return &TrendResponse{Range: r, Points: points, Total: sumPoints(points)}, nil
		})
}

// ExportDailyBreakdown writes the daily breakdown of the period as CSV with a totals row
func (s *FinancialService) ExportDailyBreakdown(ctx context.Context, q PeriodQuery, w io.Writer) error {
	report, err := s.DailyBreakdown(ctx, q)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "transactions", "revenue", "cost", "profit", "margin_pct"}); err != nil {
		return err
	}
	for _, p := range append(report.Points, report.Total) {
		row := []string{
			p.Period,
			strconv.Itoa(p.Transactions),
			p.Revenue.StringFixed(2),
			p.Cost.StringFixed(2),
			p.Profit.StringFixed(2),
			analytics.Percent(p.Profit, p.Revenue).StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFilename names the CSV download for the period
func (s *FinancialService) ExportFilename(q PeriodQuery) (string, error) {
	r, err := s.resolve(q)
	if err != nil {
		return "", err
	}
	last := r.End.AddDate(0, 0, -1)
	return fmt.Sprintf("daily-breakdown_%s_%s.csv", r.Start.Format("2006-01-02"), last.Format("2006-01-02")), nil
}

func (s *FinancialService) resolve(q PeriodQuery) (shared.DateRange, error) {
	return shared.ResolvePeriod(q.Period, q.From, q.To, s.now(), s.config.location())
}
