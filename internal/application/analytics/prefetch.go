package analytics

import (
	"context"
	"time"

	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Prefetcher recomputes the common views ahead of demand so that the first
// request after a quiet period is served from cache
type Prefetcher struct {
	dashboard *DashboardService
	financial *FinancialService
	logger    *zap.Logger
}

// NewPrefetcher creates a new Prefetcher
func NewPrefetcher(dashboard *DashboardService, financial *FinancialService, logger *zap.Logger) *Prefetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prefetcher{dashboard: dashboard, financial: financial, logger: logger}
}

// WarmDashboard refreshes every dashboard card with its default parameters
func (p *Prefetcher) WarmDashboard(ctx context.Context) error {
	ctx = cache.WithForceRefresh(ctx)
	today := PeriodQuery{Period: shared.PeriodToday}
	return p.run(ctx, "dashboard", map[string]func(context.Context) error{
		ViewOverview: func(ctx context.Context) error {
			_, err := p.dashboard.Overview(ctx)
			return err
		},
		ViewHourlySales: func(ctx context.Context) error {
			_, err := p.dashboard.HourlySales(ctx, "")
			return err
		},
		ViewTopSellers: func(ctx context.Context) error {
			_, err := p.dashboard.TopSellers(ctx, RankingQuery{PeriodQuery: today})
			return err
		},
		ViewStockAlerts: func(ctx context.Context) error {
			_, err := p.dashboard.StockAlerts(ctx)
			return err
		},
		ViewExpiryAlerts: func(ctx context.Context) error {
			_, err := p.dashboard.ExpiryAlerts(ctx)
			return err
		},
		ViewPaymentMethods: func(ctx context.Context) error {
			_, err := p.dashboard.PaymentMethods(ctx, today)
			return err
		},
		ViewWeeklyTrend: func(ctx context.Context) error {
			_, err := p.dashboard.WeeklyTrend(ctx)
			return err
		},
	})
}

// WarmFinancial refreshes the month-to-date financial reports
func (p *Prefetcher) WarmFinancial(ctx context.Context) error {
	ctx = cache.WithForceRefresh(ctx)
	month := PeriodQuery{Period: shared.PeriodMonth}
	return p.run(ctx, "financial", map[string]func(context.Context) error{
		ViewFinanceSummary: func(ctx context.Context) error {
			_, err := p.financial.Summary(ctx, month)
			return err
		},
		ViewMonthlyTrend: func(ctx context.Context) error {
			_, err := p.financial.MonthlyTrend(ctx, 0)
			return err
		},
		ViewCategoryPerformance: func(ctx context.Context) error {
			_, err := p.financial.CategoryPerformance(ctx, month)
			return err
		},
		ViewProfitByProduct: func(ctx context.Context) error {
			_, err := p.financial.ProfitByProduct(ctx, RankingQuery{PeriodQuery: month})
			return err
		},
		ViewDailyBreakdown: func(ctx context.Context) error {
			_, err := p.financial.DailyBreakdown(ctx, month)
			return err
		},
	})
}

func (p *Prefetcher) run(ctx context.Context, group string, views map[string]func(context.Context) error) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for view, warm := range views {
		g.Go(func() error {
			if err := warm(gctx); err != nil {
				p.logger.Warn("Prefetch failed", zap.String("view", view), zap.Error(err))
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	p.logger.Info("Analytics prefetch finished",
		zap.String("group", group),
		zap.Int("views", len(views)),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil))
	return err
}
