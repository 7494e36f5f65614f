// Package analytics serves the dashboard and financial report views.
// Every view reads through the query cache; cold reads fan out with errgroup.
package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/pharmapos/backend/internal/domain/analytics"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache view names. Keys take the form analytics:<view>:<params>.
const (
	ViewOverview            = "dashboard:overview"
	ViewHourlySales         = "dashboard:hourly-sales"
	ViewTopSellers          = "dashboard:top-sellers"
	ViewStockAlerts         = "dashboard:stock-alerts"
	ViewExpiryAlerts        = "dashboard:expiry-alerts"
	ViewRecentSales         = "dashboard:recent-sales"
	ViewPaymentMethods      = "dashboard:payment-methods"
	ViewWeeklyTrend         = "dashboard:weekly-trend"
	ViewFinanceSummary      = "finance:summary"
	ViewMonthlyTrend        = "finance:monthly-trend"
	ViewCategoryPerformance = "finance:category-performance"
	ViewProfitByProduct     = "finance:profit-by-product"
	ViewDailyBreakdown      = "finance:daily-breakdown"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
	expiryHorizonDays   = 90
)

// SaleSource reads sales for aggregation
type SaleSource interface {
	FindInRange(ctx context.Context, r shared.DateRange) ([]sales.Sale, error)
	FindRecent(ctx context.Context, limit int) ([]sales.Sale, error)
}

// ProductSource reads products for stock and expiry views
type ProductSource interface {
	FindAllActive(ctx context.Context) ([]catalog.Product, error)
	FindLowStock(ctx context.Context) ([]catalog.Product, error)
	FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]catalog.Product, error)
}

// CategorySource reads category labels
type CategorySource interface {
	FindAllIncludingInactive(ctx context.Context) ([]catalog.Category, error)
}

// Config holds the analytics settings shared by both services
type Config struct {
	Location       *time.Location
	ExpiryWarnDays int
	// ViewTTLs overrides the cache TTL per view; missing views use the cache default
	ViewTTLs map[string]time.Duration
}

func (c Config) ttl(view string) time.Duration {
	return c.ViewTTLs[view]
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// DashboardService builds the dashboard cards
type DashboardService struct {
	sales    SaleSource
	products ProductSource
	cache    *cache.QueryCache
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(sales SaleSource, products ProductSource, qc *cache.QueryCache, config Config, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ExpiryWarnDays <= 0 {
		config.ExpiryWarnDays = catalog.DefaultExpiryWarnDays
	}
	return &DashboardService{
		sales:    sales,
		products: products,
		cache:    qc,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Overview returns today's headline figures with a comparison against yesterday
func (s *DashboardService) Overview(ctx context.Context) (*analytics.DashboardOverview, error) {
	loc := s.config.location()
	now := s.now().In(loc)
	today := shared.DayRange(now, loc)

	return cache.Fetch(ctx, s.cache, ViewOverview, today.Start.Format("2006-01-02"), s.config.ttl(ViewOverview),
		func(ctx context.Context) (*analytics.DashboardOverview, error) {
			var todaySales, yesterdaySales []sales.Sale
			var products []catalog.Product

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				todaySales, err = s.sales.FindInRange(gctx, today)
				return err
			})
			g.Go(func() error {
				var err error
				yesterdaySales, err = s.sales.FindInRange(gctx, shared.DateRange{Start: today.Start.AddDate(0, 0, -1), End: today.Start})
				return err
			})
			g.Go(func() error {
				var err error
				products, err = s.products.FindAllActive(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				s.logger.Error("Failed to load dashboard overview", zap.Error(err))
				return nil, err
			}

			o := analytics.BuildOverview(todaySales, yesterdaySales, products, now, s.config.ExpiryWarnDays)
			return &o, nil
		})
}

// HourlySales returns 24 hourly buckets for date (YYYY-MM-DD, default today)
func (s *DashboardService) HourlySales(ctx context.Context, date string) (*HourlySalesResponse, error) {
	loc := s.config.location()
	day := s.now().In(loc)
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_DATE", "date must be in YYYY-MM-DD format")
		}
		day = parsed
	}
	r := shared.DayRange(day, loc)
	key := r.Start.Format("2006-01-02")

	return cache.Fetch(ctx, s.cache, ViewHourlySales, key, s.config.ttl(ViewHourlySales),
		func(ctx context.Context) (*HourlySalesResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			buckets := analytics.HourlyBuckets(list, day, loc)
			resp := &HourlySalesResponse{Date: key, Buckets: buckets, TotalRevenue: decimal.Zero}
			for i := range buckets {
				b := &buckets[i]
				resp.TotalRevenue = resp.TotalRevenue.Add(b.Revenue)
				resp.Transactions += b.Transactions
				if b.Transactions > 0 && (resp.PeakHour == nil || b.Revenue.GreaterThan(buckets[*resp.PeakHour].Revenue)) {
					h := b.Hour
					resp.PeakHour = &h
				}
			}
			return resp, nil
		})
}

// TopSellers ranks products by units sold in the period
func (s *DashboardService) TopSellers(ctx context.Context, q RankingQuery) (*ProductRankingResponse, error) {
	r, err := s.resolve(q.PeriodQuery)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(q.Limit)

	return cache.Fetch(ctx, s.cache, ViewTopSellers, q.key()+":"+strconv.Itoa(limit), s.config.ttl(ViewTopSellers),
		func(ctx context.Context) (*ProductRankingResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			return &ProductRankingResponse{Range: r, Products: analytics.TopSellers(list, limit)}, nil
		})
}

// StockAlerts returns products at or below their reorder level, grouped by severity
func (s *DashboardService) StockAlerts(ctx context.Context) (*analytics.StockTriageResult, error) {
	return cache.Fetch(ctx, s.cache, ViewStockAlerts, "", s.config.ttl(ViewStockAlerts),
		func(ctx context.Context) (*analytics.StockTriageResult, error) {
			products, err := s.products.FindLowStock(ctx)
			if err != nil {
				return nil, err
			}
			res := analytics.StockTriage(products)
			return &res, nil
		})
}

// ExpiryAlerts returns stocked products expiring within 90 days or already expired
func (s *DashboardService) ExpiryAlerts(ctx context.Context) (*analytics.ExpiryTriageResult, error) {
	loc := s.config.location()
	now := s.now().In(loc)
	today := shared.StartOfDay(now, loc)

	return cache.Fetch(ctx, s.cache, ViewExpiryAlerts, today.Format("2006-01-02"), s.config.ttl(ViewExpiryAlerts),
		func(ctx context.Context) (*analytics.ExpiryTriageResult, error) {
			products, err := s.products.FindExpiringBefore(ctx, today.AddDate(0, 0, expiryHorizonDays+1))
			if err != nil {
				return nil, err
			}
			res := analytics.ExpiryTriage(products, now)
			return &res, nil
		})
}

// RecentSales returns the latest completed sales
func (s *DashboardService) RecentSales(ctx context.Context, limit int) ([]RecentSaleResponse, error) {
	limit = clampLimit(limit)
	return cache.Fetch(ctx, s.cache, ViewRecentSales, strconv.Itoa(limit), s.config.ttl(ViewRecentSales),
		func(ctx context.Context) ([]RecentSaleResponse, error) {
			list, err := s.sales.FindRecent(ctx, limit)
			if err != nil {
				return nil, err
			}
			out := make([]RecentSaleResponse, len(list))
			for i := range list {
				out[i] = toRecentSale(&list[i])
			}
			return out, nil
		})
}

// PaymentMethods returns the payment mix for the period
func (s *DashboardService) PaymentMethods(ctx context.Context, q PeriodQuery) (*PaymentMethodsResponse, error) {
	r, err := s.resolve(q)
	if err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, ViewPaymentMethods, q.key(), s.config.ttl(ViewPaymentMethods),
		func(ctx context.Context) (*PaymentMethodsResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			return &PaymentMethodsResponse{Range: r, Methods: analytics.PaymentBreakdown(list)}, nil
		})
}

// WeeklyTrend returns one row per day for the last seven days including today
func (s *DashboardService) WeeklyTrend(ctx context.Context) (*TrendResponse, error) {
	loc := s.config.location()
	today := shared.StartOfDay(s.now(), loc)
	r := shared.DateRange{Start: today.AddDate(0, 0, -6), End: today.AddDate(0, 0, 1)}

	return cache.Fetch(ctx, s.cache, ViewWeeklyTrend, today.Format("2006-01-02"), s.config.ttl(ViewWeeklyTrend),
		func(ctx context.Context) (*TrendResponse, error) {
			list, err := s.sales.FindInRange(ctx, r)
			if err != nil {
				return nil, err
			}
			points := analytics.DailyBreakdown(list, r, loc)
			return &TrendResponse{Range: r, Points: points, Total: sumPoints(points)}, nil
		})
}

func (s *DashboardService) resolve(q PeriodQuery) (shared.DateRange, error) {
	return shared.ResolvePeriod(q.Period, q.From, q.To, s.now(), s.config.location())
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultRankingLimit
	}
	if limit > maxRankingLimit {
		return maxRankingLimit
	}
	return limit
}
