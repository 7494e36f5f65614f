package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsapp "github.com/pharmapos/backend/internal/application/analytics"
)

// DashboardHandler serves the dashboard cards
type DashboardHandler struct {
	BaseHandler
	dashboard *analyticsapp.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboard *analyticsapp.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

type hourlyQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type limitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type monthsQuery struct {
	Months int `form:"months" binding:"omitempty,min=1,max=36"`
}

// Overview godoc
// @ID           dashboardOverview
// @Summary      Dashboard overview
// @Description  Today's revenue, transactions, profit and stock health with a comparison against yesterday
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[analytics.DashboardOverview]
// @Security     BearerAuth
// @Router       /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.dashboard.Overview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overview)
}

// HourlySales godoc
// @ID           dashboardHourlySales
// @Summary      Hourly sales
// @Description  24 hourly buckets for the given day in store time
// @Tags         dashboard
// @Produce      json
// @Param        date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success      200 {object} APIResponse[analyticsapp.HourlySalesResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/hourly-sales [get]
func (h *DashboardHandler) HourlySales(c *gin.Context) {
	var q hourlyQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.dashboard.HourlySales(c.Request.Context(), q.Date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// TopSellers godoc
// @ID           dashboardTopSellers
// @Summary      Top sellers
// @Tags         dashboard
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Param        limit query int false "Result limit" default(10)
// @Success      200 {object} APIResponse[analyticsapp.ProductRankingResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/top-sellers [get]
func (h *DashboardHandler) TopSellers(c *gin.Context) {
	var q analyticsapp.RankingQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.dashboard.TopSellers(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// StockAlerts godoc
// @ID           dashboardStockAlerts
// @Summary      Stock alerts
// @Description  Active products bucketed into out of stock, critical and low
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[analytics.StockTriageResult]
// @Security     BearerAuth
// @Router       /dashboard/stock-alerts [get]
func (h *DashboardHandler) StockAlerts(c *gin.Context) {
	result, err := h.dashboard.StockAlerts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ExpiryAlerts godoc
// @ID           dashboardExpiryAlerts
// @Summary      Expiry alerts
// @Description  Products expired or expiring within 30, 60 and 90 days
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[analytics.ExpiryTriageResult]
// @Security     BearerAuth
// @Router       /dashboard/expiry-alerts [get]
func (h *DashboardHandler) ExpiryAlerts(c *gin.Context) {
	result, err := h.dashboard.ExpiryAlerts(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RecentSales godoc
// @ID           dashboardRecentSales
// @Summary      Recent sales
// @Tags         dashboard
// @Produce      json
// @Param        limit query int false "Result limit" default(10)
// @Success      200 {object} APIResponse[[]analyticsapp.RecentSaleResponse]
// @Security     BearerAuth
// @Router       /dashboard/recent-sales [get]
func (h *DashboardHandler) RecentSales(c *gin.Context) {
	var q limitQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.dashboard.RecentSales(c.Request.Context(), q.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PaymentMethods godoc
// @ID           dashboardPaymentMethods
// @Summary      Payment method mix
// @Tags         dashboard
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[analyticsapp.PaymentMethodsResponse]
// @Security     BearerAuth
// @Router       /dashboard/payment-methods [get]
func (h *DashboardHandler) PaymentMethods(c *gin.Context) {
	var q analyticsapp.PeriodQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.dashboard.PaymentMethods(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// WeeklyTrend godoc
// @ID           dashboardWeeklyTrend
// @Summary      Weekly trend
// @Description  Daily revenue and profit for the last seven days
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[analyticsapp.TrendResponse]
// @Security     BearerAuth
// @Router       /dashboard/weekly-trend [get]
func (h *DashboardHandler) WeeklyTrend(c *gin.Context) {
	result, err := h.dashboard.WeeklyTrend(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// FinanceHandler serves the financial reports
type FinanceHandler struct {
	BaseHandler
	financial *analyticsapp.FinancialService
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(financial *analyticsapp.FinancialService) *FinanceHandler {
	return &FinanceHandler{financial: financial}
}

// Summary godoc
// @ID           financeSummary
// @Summary      Financial summary
// @Description  Revenue, cost, gross profit, margin and discounts with a comparison against the preceding range
// @Tags         finance
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[analyticsapp.FinancialSummaryResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	var q analyticsapp.PeriodQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.financial.Summary(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// MonthlyTrend godoc
// @ID           financeMonthlyTrend
// @Summary      Monthly trend
// @Tags         finance
// @Produce      json
// @Param        months query int false "Number of months ending with the current one" default(12)
// @Success      200 {object} APIResponse[analyticsapp.TrendResponse]
// @Security     BearerAuth
// @Router       /finance/monthly-trend [get]
func (h *FinanceHandler) MonthlyTrend(c *gin.Context) {
	var q monthsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.financial.MonthlyTrend(c.Request.Context(), q.Months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CategoryPerformance godoc
// @ID           financeCategoryPerformance
// @Summary      Category performance
// @Tags         finance
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[analyticsapp.CategoryPerformanceResponse]
// @Security     BearerAuth
// @Router       /finance/category-performance [get]
func (h *FinanceHandler) CategoryPerformance(c *gin.Context) {
	var q analyticsapp.PeriodQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.financial.CategoryPerformance(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ProfitByProduct godoc
// @ID           financeProfitByProduct
// @Summary      Profit by product
// @Tags         finance
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Param        limit query int false "Result limit" default(10)
// @Success      200 {object} APIResponse[analyticsapp.ProductRankingResponse]
// @Security     BearerAuth
// @Router       /finance/profit-by-product [get]
func (h *FinanceHandler) ProfitByProduct(c *gin.Context) {
	var q analyticsapp.RankingQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.financial.ProfitByProduct(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DailyBreakdown godoc
// @ID           financeDailyBreakdown
// @Summary      Daily breakdown
// @Tags         finance
// @Produce      json
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[analyticsapp.TrendResponse]
// @Security     BearerAuth
// @Router       /finance/daily-breakdown [get]
func (h *FinanceHandler) DailyBreakdown(c *gin.Context) {
	var q analyticsapp.PeriodQuery
	if !h.bindQuery(c, &q) {
		return
	}
	result, err := h.financial.DailyBreakdown(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ExportDailyBreakdown godoc
// @ID           financeExportDailyBreakdown
// @Summary      Export daily breakdown
// @Description  CSV download of the daily breakdown with a totals row
// @Tags         finance
// @Produce      text/csv
// @Param        period query string false "Period" Enums(today, yesterday, week, month, quarter, year, custom)
// @Param        from query string false "Custom range start (YYYY-MM-DD)"
// @Param        to query string false "Custom range end (YYYY-MM-DD)"
// @Success      200 {file} binary
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /finance/daily-breakdown/export [get]
func (h *FinanceHandler) ExportDailyBreakdown(c *gin.Context) {
	var q analyticsapp.PeriodQuery
	if !h.bindQuery(c, &q) {
		return
	}
	filename, err := h.financial.ExportFilename(q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	// buffered so a failure still yields a JSON error instead of a truncated file
	var buf bytes.Buffer
	if err := h.financial.ExportDailyBreakdown(c.Request.Context(), q, &buf); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
