package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 12, 14, 30, 0, 0, time.UTC)

type mockSaleSource struct {
	mock.Mock
}

func (m *mockSaleSource) FindInRange(ctx context.Context, r shared.DateRange) ([]sales.Sale, error) {
	args := m.Called(ctx, r)
	list, _ := args.Get(0).([]sales.Sale)
	return list, args.Error(1)
}

func (m *mockSaleSource) FindRecent(ctx context.Context, limit int) ([]sales.Sale, error) {
	args := m.Called(ctx, limit)
	list, _ := args.Get(0).([]sales.Sale)
	return list, args.Error(1)
}

type mockProductSource struct {
	mock.Mock
}

func (m *mockProductSource) FindAllActive(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]catalog.Product)
	return list, args.Error(1)
}

func (m *mockProductSource) FindLowStock(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]catalog.Product)
	return list, args.Error(1)
}

func (m *mockProductSource) FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]catalog.Product, error) {
	args := m.Called(ctx, cutoff)
	list, _ := args.Get(0).([]catalog.Product)
	return list, args.Error(1)
}

type mockCategorySource struct {
	mock.Mock
}

func (m *mockCategorySource) FindAllIncludingInactive(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]catalog.Category)
	return list, args.Error(1)
}

func newTestQueryCache(t *testing.T) *cache.QueryCache {
	t.Helper()
	store := cache.NewMemoryStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	qc := cache.NewQueryCache(store, cache.QueryCacheConfig{
		Namespace:  "analytics:",
		DefaultTTL: 5 * time.Minute,
		StaleTime:  5 * time.Minute,
	}, nil, nil)
	t.Cleanup(qc.Wait)
	return qc
}

// rangeStarting matches a DateRange by its start instant
func rangeStarting(start time.Time) any {
	return mock.MatchedBy(func(r shared.DateRange) bool { return r.Start.Equal(start) })
}

// completedSale builds a completed sale with one line
func completedSale(at time.Time, method sales.PaymentMethod, product string, qty int, price, cost string, categoryID *uuid.UUID) sales.Sale {
	unit := decimal.RequireFromString(price)
	line := unit.Mul(decimal.NewFromInt(int64(qty)))
	s := sales.Sale{
		ReceiptNumber:  "RX-" + at.Format("20060102") + "-" + uuid.NewString()[:6],
		CashierName:    "Dana",
		PaymentMethod:  method,
		Status:         sales.SaleStatusCompleted,
		Subtotal:       line,
		DiscountAmount: decimal.Zero,
		TaxAmount:      decimal.Zero,
		TotalAmount:    line,
		Items: []sales.SaleItem{{
			ID:          uuid.New(),
			ProductID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(product)),
			ProductName: product,
			SKU:         product,
			CategoryID:  categoryID,
			Quantity:    qty,
			UnitPrice:   unit,
			UnitCost:    decimal.RequireFromString(cost),
			Discount:    decimal.Zero,
			LineTotal:   line,
		}},
	}
	s.ID = uuid.New()
	s.CreatedAt = at
	return s
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code)
}
