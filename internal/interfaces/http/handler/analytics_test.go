package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	analyticsapp "github.com/pharmapos/backend/internal/application/analytics"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSales struct {
	list []sales.Sale
	err  error
}

func (s *stubSales) FindInRange(_ context.Context, _ shared.DateRange) ([]sales.Sale, error) {
	return s.list, s.err
}

func (s *stubSales) FindRecent(_ context.Context, _ int) ([]sales.Sale, error) {
	return s.list, s.err
}

type stubProducts struct {
	list []catalog.Product
}

func (s *stubProducts) FindAllActive(context.Context) ([]catalog.Product, error) { return s.list, nil }
func (s *stubProducts) FindLowStock(context.Context) ([]catalog.Product, error)  { return s.list, nil }
func (s *stubProducts) FindExpiringBefore(context.Context, time.Time) ([]catalog.Product, error) {
	return s.list, nil
}

type stubCategories struct{}

func (stubCategories) FindAllIncludingInactive(context.Context) ([]catalog.Category, error) {
	return nil, nil
}

func newHandlerQueryCache(t *testing.T) *cache.QueryCache {
	t.Helper()
	store := cache.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	qc := cache.NewQueryCache(store, cache.QueryCacheConfig{Namespace: "analytics:", DefaultTTL: time.Minute}, nil, nil)
	t.Cleanup(qc.Wait)
	return qc
}

func newAnalyticsEngine(t *testing.T, saleSource analyticsapp.SaleSource) *gin.Engine {
	t.Helper()
	qc := newHandlerQueryCache(t)
	config := analyticsapp.Config{Location: time.UTC, ExpiryWarnDays: 90}
	dashboard := NewDashboardHandler(analyticsapp.NewDashboardService(saleSource, &stubProducts{}, qc, config, nil))
	finance := NewFinanceHandler(analyticsapp.NewFinancialService(saleSource, stubCategories{}, qc, config, nil))

	engine := newTestEngine(testClaims(uuid.New(), "report:read", "finance:read"))
	d := engine.Group("/dashboard")
	d.GET("/overview", dashboard.Overview)
	d.GET("/hourly-sales", dashboard.HourlySales)
	d.GET("/top-sellers", dashboard.TopSellers)
	d.GET("/stock-alerts", dashboard.StockAlerts)
	d.GET("/recent-sales", dashboard.RecentSales)
	f := engine.Group("/finance")
	f.GET("/summary", finance.Summary)
	f.GET("/monthly-trend", finance.MonthlyTrend)
	f.GET("/daily-breakdown", finance.DailyBreakdown)
	f.GET("/daily-breakdown/export", finance.ExportDailyBreakdown)
	return engine
}

func TestDashboardHandler_StockAlerts(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{})

	w := doRequest(engine, http.MethodGet, "/dashboard/stock-alerts", nil)

	assertStatus(t, w, http.StatusOK)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestDashboardHandler_QueryValidation(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{})

	tests := []struct {
		name  string
		path  string
		field string
	}{
		{"recent sales limit too high", "/dashboard/recent-sales?limit=500", "limit"},
		{"hourly sales bad date", "/dashboard/hourly-sales?date=12/05/2026", "date"},
		{"unknown period", "/dashboard/top-sellers?period=fortnight", "period"},
		{"custom period without bounds", "/dashboard/top-sellers?period=custom", "from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(engine, http.MethodGet, tt.path, nil)
			assertStatus(t, w, http.StatusBadRequest)
			errInfo := decodeError(t, w)
			require.NotEmpty(t, errInfo.Details)
			assert.True(t, strings.HasSuffix(errInfo.Details[0].Field, tt.field), errInfo.Details[0].Field)
		})
	}
}

func TestFinanceHandler_SummaryRejectsReversedRange(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{})

	w := doRequest(engine, http.MethodGet, "/finance/summary?period=custom&from=2026-03-10&to=2026-03-01", nil)

	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "ERR_INVALID_PERIOD", decodeError(t, w).Code)
}

func TestFinanceHandler_SummarySourceFailure(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{err: errors.New("read replica unavailable")})

	w := doRequest(engine, http.MethodGet, "/finance/summary?period=week", nil)

	assertStatus(t, w, http.StatusInternalServerError)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeInternal, errInfo.Code)
	assert.NotContains(t, errInfo.Message, "replica")
}

func TestFinanceHandler_DailyBreakdown(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{})

	w := doRequest(engine, http.MethodGet, "/finance/daily-breakdown?period=custom&from=2026-03-01&to=2026-03-03", nil)

	assertStatus(t, w, http.StatusOK)
	var got analyticsapp.TrendResponse
	decodeData(t, w, &got)
	assert.Len(t, got.Points, 3)
	assert.Zero(t, got.Total.Transactions)
}

func TestFinanceHandler_ExportDailyBreakdown(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{})

	w := doRequest(engine, http.MethodGet, "/finance/daily-breakdown/export?period=custom&from=2026-03-01&to=2026-03-03", nil)

	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="daily-breakdown_2026-03-01_2026-03-03.csv"`, w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"date", "transactions", "revenue", "cost", "profit", "margin_pct"}, records[0])
	assert.Equal(t, "0.00", records[1][2])
}

func TestFinanceHandler_ExportFailureReturnsJSON(t *testing.T) {
	engine := newAnalyticsEngine(t, &stubSales{err: errors.New("boom")})

	w := doRequest(engine, http.MethodGet, "/finance/daily-breakdown/export?period=month", nil)

	assertStatus(t, w, http.StatusInternalServerError)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.False(t, decodeResponse(t, w).Success)
}
