package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FinancialSummary is the profit and loss view of a set of sales.
// Revenue figures exclude tax; TotalCollected includes it.
type FinancialSummary struct {
	GrossSales         decimal.Decimal `json:"gross_sales"`
	Discounts          decimal.Decimal `json:"discounts"`
	NetRevenue         decimal.Decimal `json:"net_revenue"`
	TaxCollected       decimal.Decimal `json:"tax_collected"`
	TotalCollected     decimal.Decimal `json:"total_collected"`
	CostOfGoodsSold    decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	GrossMarginPct     decimal.Decimal `json:"gross_margin_pct"`
	Refunds            decimal.Decimal `json:"refunds"`
	RefundCount        int             `json:"refund_count"`
	VoidCount          int             `json:"void_count"`
	Transactions       int             `json:"transactions"`
	ItemsSold          int             `json:"items_sold"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
}

// Summarize reduces sales of any status into a financial summary.
// Only completed sales count toward revenue; refunded ones are totalled separately.
func Summarize(list []sales.Sale) FinancialSummary {
	sum := FinancialSummary{
		GrossSales:         decimal.Zero,
		Discounts:          decimal.Zero,
		NetRevenue:         decimal.Zero,
		TaxCollected:       decimal.Zero,
		TotalCollected:     decimal.Zero,
		CostOfGoodsSold:    decimal.Zero,
		GrossProfit:        decimal.Zero,
		GrossMarginPct:     decimal.Zero,
		Refunds:            decimal.Zero,
		AverageTransaction: decimal.Zero,
	}
	for i := range list {
		s := &list[i]
		switch s.Status {
		case sales.SaleStatusCompleted:
			sum.GrossSales = sum.GrossSales.Add(s.Subtotal)
			sum.Discounts = sum.Discounts.Add(s.DiscountAmount)
			sum.TaxCollected = sum.TaxCollected.Add(s.TaxAmount)
			sum.TotalCollected = sum.TotalCollected.Add(s.TotalAmount)
			sum.CostOfGoodsSold = sum.CostOfGoodsSold.Add(s.CostTotal())
			sum.ItemsSold += s.ItemCount()
			sum.Transactions++
		case sales.SaleStatusRefunded:
			sum.Refunds = sum.Refunds.Add(s.TotalAmount)
			sum.RefundCount++
		case sales.SaleStatusVoided:
			sum.VoidCount++
		}
	}
	sum.NetRevenue = sum.GrossSales.Sub(sum.Discounts)
	sum.GrossProfit = sum.NetRevenue.Sub(sum.CostOfGoodsSold)
	sum.GrossMarginPct = Percent(sum.GrossProfit, sum.NetRevenue)
	if sum.Transactions > 0 {
		sum.AverageTransaction = sum.TotalCollected.Div(decimal.NewFromInt(int64(sum.Transactions))).Round(2)
	}
	return sum
}

// PeriodPoint is one row of a time series
type PeriodPoint struct {
	Period       string          `json:"period"`
	Label        string          `json:"label"`
	Start        time.Time       `json:"start"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	Transactions int             `json:"transactions"`
}

func newPoint(period, label string, start time.Time) PeriodPoint {
	return PeriodPoint{Period: period, Label: label, Start: start, Revenue: decimal.Zero, Cost: decimal.Zero, Profit: decimal.Zero}
}

func (p *PeriodPoint) add(s *sales.Sale) {
	p.Revenue = p.Revenue.Add(s.NetAmount())
	p.Cost = p.Cost.Add(s.CostTotal())
	p.Profit = p.Revenue.Sub(p.Cost)
	p.Transactions++
}

// MonthlyTrend returns exactly months consecutive months ending with end's month,
// oldest first, zero-filled. Revenue is net of discounts and tax.
func MonthlyTrend(list []sales.Sale, months int, end time.Time, loc *time.Location) []PeriodPoint {
	if loc == nil {
		loc = time.UTC
	}
	if months <= 0 {
		months = 12
	}
	last := shared.StartOfMonth(end, loc)
	first := last.AddDate(0, -(months - 1), 0)

	points := make([]PeriodPoint, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		start := first.AddDate(0, i, 0)
		key := start.Format("2006-01")
		points[i] = newPoint(key, start.Format("Jan 2006"), start)
		index[key] = i
	}
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() {
			continue
		}
		if idx, ok := index[s.CreatedAt.In(loc).Format("2006-01")]; ok {
			points[idx].add(s)
		}
	}
	return points
}

// DailyBreakdown returns one zero-filled row per local day in the range
func DailyBreakdown(list []sales.Sale, r shared.DateRange, loc *time.Location) []PeriodPoint {
	if loc == nil {
		loc = time.UTC
	}
	var points []PeriodPoint
	index := make(map[string]int)
	for d := shared.StartOfDay(r.Start, loc); d.Before(r.End); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		index[key] = len(points)
		points = append(points, newPoint(key, d.Format("Mon 02 Jan"), d))
	}
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() || !r.Contains(s.CreatedAt) {
			continue
		}
		if idx, ok := index[s.CreatedAt.In(loc).Format("2006-01-02")]; ok {
			points[idx].add(s)
		}
	}
	if points == nil {
		points = []PeriodPoint{}
	}
	return points
}

// CategoryPerformance is revenue and profit for one category
type CategoryPerformance struct {
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
	Cost       decimal.Decimal `json:"cost"`
	Profit     decimal.Decimal `json:"profit"`
	MarginPct  decimal.Decimal `json:"margin_pct"`
	Units      int             `json:"units"`
	SharePct   decimal.Decimal `json:"share_pct"`
}

// CategoryBreakdown groups completed sale lines by the category captured at checkout.
// Lines without a known category fall into "Uncategorized". Ordered by revenue desc.
func CategoryBreakdown(list []sales.Sale, categories []catalog.Category) []CategoryPerformance {
	names := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	index := make(map[uuid.UUID]int)
	var out []CategoryPerformance
	total := decimal.Zero
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() {
			continue
		}
		for _, item := range s.Items {
			key := uuid.Nil
			if item.CategoryID != nil {
				if _, known := names[*item.CategoryID]; known {
					key = *item.CategoryID
				}
			}
			idx, ok := index[key]
			if !ok {
				idx = len(out)
				index[key] = idx
				cp := CategoryPerformance{Name: UncategorizedName, Revenue: decimal.Zero, Cost: decimal.Zero}
				if key != uuid.Nil {
					id := key
					cp.CategoryID = &id
					cp.Name = names[key]
				}
				out = append(out, cp)
			}
			cp := &out[idx]
			cp.Revenue = cp.Revenue.Add(item.LineTotal)
			cp.Cost = cp.Cost.Add(item.LineCost())
			cp.Units += item.Quantity
			total = total.Add(item.LineTotal)
		}
	}
	for i := range out {
		out[i].Profit = out[i].Revenue.Sub(out[i].Cost)
		out[i].MarginPct = Percent(out[i].Profit, out[i].Revenue)
		out[i].SharePct = Percent(out[i].Revenue, total)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if out == nil {
		out = []CategoryPerformance{}
	}
	return out
}

// PaymentShare is the volume taken through one payment method
type PaymentShare struct {
	Method       sales.PaymentMethod `json:"method"`
	Transactions int                 `json:"transactions"`
	Amount       decimal.Decimal     `json:"amount"`
	SharePct     decimal.Decimal     `json:"share_pct"`
}

// PaymentBreakdown totals completed sales by payment method, listing every method
func PaymentBreakdown(list []sales.Sale) []PaymentShare {
	out := make([]PaymentShare, len(sales.PaymentMethods))
	index := make(map[sales.PaymentMethod]int, len(out))
	for i, m := range sales.PaymentMethods {
		out[i] = PaymentShare{Method: m, Amount: decimal.Zero, SharePct: decimal.Zero}
		index[m] = i
	}
	total := decimal.Zero
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() {
			continue
		}
		idx, ok := index[s.PaymentMethod]
		if !ok {
			continue
		}
		out[idx].Transactions++
		out[idx].Amount = out[idx].Amount.Add(s.TotalAmount)
		total = total.Add(s.TotalAmount)
	}
	for i := range out {
		out[i].SharePct = Percent(out[i].Amount, total)
	}
	return out
}
