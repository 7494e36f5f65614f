package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func TestCacheInvalidator_DropsCachedViews(t *testing.T) {
	qc := newTestQueryCache(t)
	saleSource := new(mockSaleSource)
	products := new(mockProductSource)
	svc := NewDashboardService(saleSource, products, qc, Config{Location: time.UTC}, nil)
	svc.now = func() time.Time { return testNow }
	saleSource.On("FindInRange", mock.Anything, mock.Anything).Return([]sales.Sale{}, nil)

	ctx := context.Background()
	_, err := svc.PaymentMethods(ctx, PeriodQuery{})
	require.NoError(t, err)
	_, err = svc.PaymentMethods(ctx, PeriodQuery{})
	require.NoError(t, err)
	saleSource.AssertNumberOfCalls(t, "FindInRange", 1)

	h := NewCacheInvalidator(qc, nil)
	event := &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCompleted, "Sale", uuid.New())}
	require.NoError(t, h.Handle(ctx, event))

	_, err = svc.PaymentMethods(ctx, PeriodQuery{})
	require.NoError(t, err)
	saleSource.AssertNumberOfCalls(t, "FindInRange", 2)
}

func TestCacheInvalidator_EventTypes(t *testing.T) {
	h := NewCacheInvalidator(newTestQueryCache(t), nil)
	types := h.EventTypes()
	assert.Contains(t, types, sales.EventTypeSaleRefunded)
	assert.Contains(t, types, catalog.EventTypeStockChanged)
	assert.NotContains(t, types, "UserCreated")
}

func TestPrefetcher_WarmsEveryView(t *testing.T) {
	qc := newTestQueryCache(t)
	saleSource := new(mockSaleSource)
	products := new(mockProductSource)
	categories := new(mockCategorySource)
	cfg := Config{Location: time.UTC}
	dash := NewDashboardService(saleSource, products, qc, cfg, nil)
	dash.now = func() time.Time { return testNow }
	fin := NewFinancialService(saleSource, categories, qc, cfg, nil)
	fin.now = func() time.Time { return testNow }

	saleSource.On("FindInRange", mock.Anything, mock.Anything).Return([]sales.Sale{}, nil)
	products.On("FindAllActive", mock.Anything).Return([]catalog.Product{}, nil)
	products.On("FindLowStock", mock.Anything).Return([]catalog.Product{}, nil)
	products.On("FindExpiringBefore", mock.Anything, mock.Anything).Return([]catalog.Product{}, nil)
	categories.On("FindAllIncludingInactive", mock.Anything).Return([]catalog.Category{}, nil)

	p := NewPrefetcher(dash, fin, nil)
	ctx := context.Background()
	require.NoError(t, p.WarmDashboard(ctx))
	require.NoError(t, p.WarmFinancial(ctx))
	products.AssertExpectations(t)
	categories.AssertExpectations(t)

	// warmed views are cache hits afterwards
	calls := len(saleSource.Calls)
	_, err := dash.WeeklyTrend(ctx)
	require.NoError(t, err)
	_, err = fin.Summary(ctx, PeriodQuery{Period: shared.PeriodMonth})
	require.NoError(t, err)
	assert.Len(t, saleSource.Calls, calls)
}
