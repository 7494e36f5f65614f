package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/analytics"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PeriodQuery selects a reporting range: a preset or a custom from/to pair
type PeriodQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=today yesterday week month quarter year custom"`
	From   string `form:"from" binding:"required_if=Period custom"`
	To     string `form:"to" binding:"required_if=Period custom"`
}

// key returns a cache key fragment for the query
func (q PeriodQuery) key() string {
	if q.Period == shared.PeriodCustom {
		return q.Period + ":" + q.From + ":" + q.To
	}
	if q.Period == "" {
		return shared.PeriodToday
	}
	return q.Period
}

// RankingQuery is a period plus a result limit
type RankingQuery struct {
	PeriodQuery
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// HourlySalesResponse is the intraday sales curve
type HourlySalesResponse struct {
	Date         string                   `json:"date"`
	Buckets      []analytics.HourlyBucket `json:"buckets"`
	TotalRevenue decimal.Decimal          `json:"total_revenue"`
	Transactions int                      `json:"transactions"`
	PeakHour     *int                     `json:"peak_hour,omitempty"`
}

// ProductRankingResponse lists products for a range
type ProductRankingResponse struct {
	Range    shared.DateRange         `json:"range"`
	Products []analytics.ProductSales `json:"products"`
}

// PaymentMethodsResponse is the payment mix for a range
type PaymentMethodsResponse struct {
	Range   shared.DateRange         `json:"range"`
	Methods []analytics.PaymentShare `json:"methods"`
}

// TrendResponse is a zero-filled time series
type TrendResponse struct {
	Range  shared.DateRange        `json:"range"`
	Points []analytics.PeriodPoint `json:"points"`
	Total  analytics.PeriodPoint   `json:"total"`
}

// RecentSaleResponse is one row of the recent transactions card
type RecentSaleResponse struct {
	ID            uuid.UUID           `json:"id"`
	ReceiptNumber string              `json:"receipt_number"`
	CashierName   string              `json:"cashier_name"`
	CustomerName  string              `json:"customer_name,omitempty"`
	PaymentMethod sales.PaymentMethod `json:"payment_method"`
	Status        sales.SaleStatus    `json:"status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	CreatedAt     time.Time           `json:"created_at"`
}

// FinancialSummaryResponse compares a range against the one before it
type FinancialSummaryResponse struct {
	Range              shared.DateRange           `json:"range"`
	PreviousRange      shared.DateRange           `json:"previous_range"`
	Current            analytics.FinancialSummary `json:"current"`
	Previous           analytics.FinancialSummary `json:"previous"`
	RevenueChangePct   decimal.Decimal            `json:"revenue_change_pct"`
	ProfitChangePct    decimal.Decimal            `json:"profit_change_pct"`
	TransactionsChange int                        `json:"transactions_change"`
}

// CategoryPerformanceResponse is revenue by category for a range
type CategoryPerformanceResponse struct {
	Range      shared.DateRange                `json:"range"`
	Categories []analytics.CategoryPerformance `json:"categories"`
}

func toRecentSale(s *sales.Sale) RecentSaleResponse {
	return RecentSaleResponse{
		ID:            s.ID,
		ReceiptNumber: s.ReceiptNumber,
		CashierName:   s.CashierName,
		CustomerName:  s.CustomerName,
		PaymentMethod: s.PaymentMethod,
		Status:        s.Status,
		TotalAmount:   s.TotalAmount,
		CreatedAt:     s.CreatedAt,
	}
}

// sumPoints totals a series into one point labelled "total"
func sumPoints(points []analytics.PeriodPoint) analytics.PeriodPoint {
	total := analytics.PeriodPoint{Period: "total", Label: "Total", Revenue: decimal.Zero, Cost: decimal.Zero, Profit: decimal.Zero}
	for _, p := range points {
		total.Revenue = total.Revenue.Add(p.Revenue)
		total.Cost = total.Cost.Add(p.Cost)
		total.Profit = total.Profit.Add(p.Profit)
		total.Transactions += p.Transactions
	}
	if len(points) > 0 {
		total.Start = points[0].Start
	}
	return total
}
