package analytics

import (
	"time"

	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// DashboardOverview is the headline card set of the dashboard
type DashboardOverview struct {
	TodayRevenue         decimal.Decimal `json:"today_revenue"`
	TodayTransactions    int             `json:"today_transactions"`
	TodayItemsSold       int             `json:"today_items_sold"`
	AverageTicket        decimal.Decimal `json:"average_ticket"`
	YesterdayRevenue     decimal.Decimal `json:"yesterday_revenue"`
	RevenueChangePct     decimal.Decimal `json:"revenue_change_pct"`
	TodayGrossProfit     decimal.Decimal `json:"today_gross_profit"`
	TotalProducts        int             `json:"total_products"`
	InventoryCostValue   decimal.Decimal `json:"inventory_cost_value"`
	InventoryRetailValue decimal.Decimal `json:"inventory_retail_value"`
	LowStockCount        int             `json:"low_stock_count"`
	CriticalStockCount   int             `json:"critical_stock_count"`
	OutOfStockCount      int             `json:"out_of_stock_count"`
	ExpiringSoonCount    int             `json:"expiring_soon_count"`
	ExpiredCount         int             `json:"expired_count"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// BuildOverview combines today's and yesterday's sales with the active product list
func BuildOverview(today, yesterday []sales.Sale, products []catalog.Product, now time.Time, warnDays int) DashboardOverview {
	todaySum := Summarize(today)
	yesterdaySum := Summarize(yesterday)

	o := DashboardOverview{
		TodayRevenue:         todaySum.TotalCollected,
		TodayTransactions:    todaySum.Transactions,
		TodayItemsSold:       todaySum.ItemsSold,
		AverageTicket:        todaySum.AverageTransaction,
		YesterdayRevenue:     yesterdaySum.TotalCollected,
		RevenueChangePct:     PercentChange(todaySum.TotalCollected, yesterdaySum.TotalCollected),
		TodayGrossProfit:     todaySum.GrossProfit,
		InventoryCostValue:   decimal.Zero,
		InventoryRetailValue: decimal.Zero,
		GeneratedAt:          now,
	}

	for i := range products {
		p := &products[i]
		if !p.IsActive() {
			continue
		}
		o.TotalProducts++
		o.InventoryCostValue = o.InventoryCostValue.Add(p.InventoryValue())
		o.InventoryRetailValue = o.InventoryRetailValue.Add(p.RetailValue())
		switch p.StockStatus() {
		case catalog.StockStatusLow:
			o.LowStockCount++
		case catalog.StockStatusCritical:
			o.CriticalStockCount++
		case catalog.StockStatusOutOfStock:
			o.OutOfStockCount++
		}
		if p.StockQuantity > 0 {
			switch p.ExpiryStatus(now, warnDays) {
			case catalog.ExpiryStatusExpired:
				o.ExpiredCount++
			case catalog.ExpiryStatusExpiringSoon:
				o.ExpiringSoonCount++
			}
		}
	}
	return o
}
