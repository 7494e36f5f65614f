// Package analytics holds the read models and pure reducers behind the dashboard
// and financial reports. Every function here is deterministic over its inputs.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// UncategorizedName labels products without a category
const UncategorizedName = "Uncategorized"

// Percent returns part/whole*100 rounded to 2 places, zero when whole is zero
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// PercentChange returns the change from previous to current in percent.
// Growth from zero is reported as 100.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(hundred).Round(2)
}

// HourlyBucket is revenue for one hour of a day
type HourlyBucket struct {
	Hour         int             `json:"hour"`
	Label        string          `json:"label"`
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int             `json:"transactions"`
}

// HourlyBuckets splits completed sales of the local day into 24 hour buckets.
// Hours without sales are present with zero values.
func HourlyBuckets(list []sales.Sale, day time.Time, loc *time.Location) []HourlyBucket {
	if loc == nil {
		loc = time.UTC
	}
	r := shared.DayRange(day, loc)
	buckets := make([]HourlyBucket, 24)
	for h := range buckets {
		buckets[h] = HourlyBucket{Hour: h, Label: fmt.Sprintf("%02d:00", h), Revenue: decimal.Zero}
	}
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() || !r.Contains(s.CreatedAt) {
			continue
		}
		h := s.CreatedAt.In(loc).Hour()
		buckets[h].Revenue = buckets[h].Revenue.Add(s.TotalAmount)
		buckets[h].Transactions++
	}
	return buckets
}

// ProductSales aggregates line items for one product
type ProductSales struct {
	ProductID    uuid.UUID       `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	MarginPct    decimal.Decimal `json:"margin_pct"`
	Transactions int             `json:"transactions"`
}

func aggregateProducts(list []sales.Sale) []ProductSales {
	index := make(map[uuid.UUID]int)
	var out []ProductSales
	for i := range list {
		s := &list[i]
		if !s.IsCompleted() {
			continue
		}
		for _, item := range s.Items {
			idx, ok := index[item.ProductID]
			if !ok {
				idx = len(out)
				index[item.ProductID] = idx
				out = append(out, ProductSales{
					ProductID: item.ProductID,
					SKU:       item.SKU,
					Name:      item.ProductName,
					Revenue:   decimal.Zero,
					Cost:      decimal.Zero,
				})
			}
			ps := &out[idx]
			ps.Quantity += item.Quantity
			ps.Revenue = ps.Revenue.Add(item.LineTotal)
			ps.Cost = ps.Cost.Add(item.LineCost())
			ps.Transactions++
		}
	}
	for i := range out {
		out[i].Profit = out[i].Revenue.Sub(out[i].Cost)
		out[i].MarginPct = Percent(out[i].Profit, out[i].Revenue)
	}
	return out
}

// TopSellers ranks products by units sold, then revenue, then name
func TopSellers(list []sales.Sale, limit int) []ProductSales {
	out := aggregateProducts(list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return truncate(out, limit)
}

// ProfitByProduct ranks products by gross profit
func ProfitByProduct(list []sales.Sale, limit int) []ProductSales {
	out := aggregateProducts(list)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Profit.Cmp(out[j].Profit); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return truncate(out, limit)
}

func truncate[T any](items []T, limit int) []T {
	if items == nil {
		items = []T{}
	}
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// StockAlertItem is a product that needs reordering
type StockAlertItem struct {
	ProductID        uuid.UUID           `json:"product_id"`
	SKU              string              `json:"sku"`
	Name             string              `json:"name"`
	StockQuantity    int                 `json:"stock_quantity"`
	ReorderLevel     int                 `json:"reorder_level"`
	CriticalLevel    int                 `json:"critical_level"`
	Status           catalog.StockStatus `json:"status"`
	FillRatio        float64             `json:"fill_ratio"`
	SuggestedReorder int                 `json:"suggested_reorder"`
}

// StockTriageResult groups products by stock severity
type StockTriageResult struct {
	OutOfStock      []StockAlertItem `json:"out_of_stock"`
	Critical        []StockAlertItem `json:"critical"`
	Low             []StockAlertItem `json:"low"`
	OutOfStockCount int              `json:"out_of_stock_count"`
	CriticalCount   int              `json:"critical_count"`
	LowCount        int              `json:"low_count"`
}

// StockTriage sorts active products into out-of-stock, critical and low lists,
// each ordered by fill ratio ascending then name.
func StockTriage(products []catalog.Product) StockTriageResult {
	res := StockTriageResult{
		OutOfStock: []StockAlertItem{},
		Critical:   []StockAlertItem{},
		Low:        []StockAlertItem{},
	}
	for i := range products {
		p := &products[i]
		if !p.IsActive() {
			continue
		}
		status := p.StockStatus()
		if status == catalog.StockStatusInStock {
			continue
		}
		suggested := p.ReorderLevel*2 - p.StockQuantity
		if suggested < 0 {
			suggested = 0
		}
		item := StockAlertItem{
			ProductID:        p.ID,
			SKU:              p.SKU,
			Name:             p.Name,
			StockQuantity:    p.StockQuantity,
			ReorderLevel:     p.ReorderLevel,
			CriticalLevel:    p.CriticalLevel,
			Status:           status,
			FillRatio:        p.FillRatio(),
			SuggestedReorder: suggested,
		}
		switch status {
		case catalog.StockStatusOutOfStock:
			res.OutOfStock = append(res.OutOfStock, item)
		case catalog.StockStatusCritical:
			res.Critical = append(res.Critical, item)
		case catalog.StockStatusLow:
			res.Low = append(res.Low, item)
		}
	}
	for _, l := range [][]StockAlertItem{res.OutOfStock, res.Critical, res.Low} {
		sort.SliceStable(l, func(i, j int) bool {
			if l[i].FillRatio != l[j].FillRatio {
				return l[i].FillRatio < l[j].FillRatio
			}
			return l[i].Name < l[j].Name
		})
	}
	res.OutOfStockCount = len(res.OutOfStock)
	res.CriticalCount = len(res.Critical)
	res.LowCount = len(res.Low)
	return res
}

// ExpiryItem is a product batch approaching or past expiry
type ExpiryItem struct {
	ProductID       uuid.UUID       `json:"product_id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	BatchNumber     string          `json:"batch_number,omitempty"`
	ExpiryDate      time.Time       `json:"expiry_date"`
	DaysUntilExpiry int             `json:"days_until_expiry"`
	Quantity        int             `json:"quantity"`
	ValueAtRisk     decimal.Decimal `json:"value_at_risk"`
}

// ExpiryBucket groups expiry items in one window
type ExpiryBucket struct {
	Key         string          `json:"key"`
	Label       string          `json:"label"`
	Count       int             `json:"count"`
	ValueAtRisk decimal.Decimal `json:"value_at_risk"`
	Items       []ExpiryItem    `json:"items"`
}

// ExpiryTriageResult holds the expiry windows
type ExpiryTriageResult struct {
	Expired          ExpiryBucket    `json:"expired"`
	Within30         ExpiryBucket    `json:"within_30"`
	Within60         ExpiryBucket    `json:"within_60"`
	Within90         ExpiryBucket    `json:"within_90"`
	TotalValueAtRisk decimal.Decimal `json:"total_value_at_risk"`
}

func newExpiryBucket(key, label string) ExpiryBucket {
	return ExpiryBucket{Key: key, Label: label, ValueAtRisk: decimal.Zero, Items: []ExpiryItem{}}
}

func (b *ExpiryBucket) add(item ExpiryItem) {
	b.Items = append(b.Items, item)
	b.Count++
	b.ValueAtRisk = b.ValueAtRisk.Add(item.ValueAtRisk)
}

// ExpiryTriage buckets products holding stock by days until expiry:
// expired (<0), within 30, 31-60 and 61-90 days. Items are ordered by expiry date.
func ExpiryTriage(products []catalog.Product, now time.Time) ExpiryTriageResult {
	res := ExpiryTriageResult{
		Expired:          newExpiryBucket("expired", "Expired"),
		Within30:         newExpiryBucket("within_30", "Expires within 30 days"),
		Within60:         newExpiryBucket("within_60", "Expires in 31-60 days"),
		Within90:         newExpiryBucket("within_90", "Expires in 61-90 days"),
		TotalValueAtRisk: decimal.Zero,
	}

	ps := make([]*catalog.Product, 0, len(products))
	for i := range products {
		if products[i].ExpiryDate != nil && products[i].StockQuantity > 0 {
			ps = append(ps, &products[i])
		}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].ExpiryDate.Equal(*ps[j].ExpiryDate) {
			return ps[i].ExpiryDate.Before(*ps[j].ExpiryDate)
		}
		return ps[i].Name < ps[j].Name
	})

	for _, p := range ps {
		days, _ := p.DaysUntilExpiry(now)
		item := ExpiryItem{
			ProductID:       p.ID,
			SKU:             p.SKU,
			Name:            p.Name,
			BatchNumber:     p.BatchNumber,
			ExpiryDate:      *p.ExpiryDate,
			DaysUntilExpiry: days,
			Quantity:        p.StockQuantity,
			ValueAtRisk:     p.InventoryValue(),
		}
		switch {
		case days < 0:
			res.Expired.add(item)
		case days <= 30:
			res.Within30.add(item)
		case days <= 60:
			res.Within60.add(item)
		case days <= 90:
			res.Within90.add(item)
		default:
			continue
		}
		res.TotalValueAtRisk = res.TotalValueAtRisk.Add(item.ValueAtRisk)
	}
	return res
}
