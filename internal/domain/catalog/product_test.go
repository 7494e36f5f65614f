package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct("amx-500", "Amoxicillin 500mg", "box")
	require.NoError(t, err)
	require.NoError(t, p.SetPrices(decimal.NewFromInt(4), decimal.NewFromInt(10)))
	require.NoError(t, p.SetStockLevels(20, 5))
	p.ClearDomainEvents()
	return p
}

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid inputs", func(t *testing.T) {
		product, err := NewProduct("sku-001", "Paracetamol", "")
		require.NoError(t, err)

		assert.Equal(t, "SKU-001", product.SKU)
		assert.Equal(t, "Paracetamol", product.Name)
		assert.Equal(t, "unit", product.Unit)
		assert.Equal(t, DosageFormOther, product.DosageForm)
		assert.Equal(t, ProductStatusActive, product.Status)
		assert.Zero(t, product.StockQuantity)
		assert.NotEqual(t, uuid.Nil, product.ID)
		assert.Equal(t, 1, product.GetVersion())
	})

	t.Run("publishes ProductCreated event", func(t *testing.T) {
		product, err := NewProduct("SKU-002", "Ibuprofen", "strip")
		require.NoError(t, err)

		events := product.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*ProductCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, product.ID, event.ProductID)
		assert.Equal(t, "SKU-002", event.SKU)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewProduct("", "Name", "box")
		assert.ErrorContains(t, err, "SKU cannot be empty")
		_, err = NewProduct("SKU 1", "Name", "box")
		assert.ErrorContains(t, err, "SKU can only contain")
		_, err = NewProduct("SKU-1", "  ", "box")
		assert.ErrorContains(t, err, "name cannot be empty")
	})
}

func TestProduct_SetStockLevels(t *testing.T) {
	p := newTestProduct(t)

	require.NoError(t, p.SetStockLevels(30, -1))
	assert.Equal(t, 30, p.ReorderLevel)
	assert.Equal(t, 15, p.CriticalLevel)

	assert.Error(t, p.SetStockLevels(10, 11))
	assert.Error(t, p.SetStockLevels(-1, 0))
}

func TestProduct_StockStatus(t *testing.T) {
	tests := []struct {
		qty  int
		want StockStatus
	}{
		{0, StockStatusOutOfStock},
		{3, StockStatusCritical},
		{5, StockStatusCritical},
		{6, StockStatusLow},
		{20, StockStatusLow},
		{21, StockStatusInStock},
	}
	p := newTestProduct(t)
	for _, tt := range tests {
		p.StockQuantity = tt.qty
		assert.Equal(t, tt.want, p.StockStatus(), "qty=%d", tt.qty)
	}
}

func TestProduct_AdjustStock(t *testing.T) {
	t.Run("deducts and emits stock changed event", func(t *testing.T) {
		p := newTestProduct(t)
		p.StockQuantity = 25

		before, after, err := p.DeductStock(22, MovementSale)
		require.NoError(t, err)
		assert.Equal(t, 25, before)
		assert.Equal(t, 3, after)

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		ev := events[0].(*StockChangedEvent)
		assert.Equal(t, StockStatusInStock, ev.PreviousStatus)
		assert.Equal(t, StockStatusCritical, ev.CurrentStatus)
		assert.True(t, ev.Worsened())
		assert.Equal(t, MovementSale, ev.MovementType)
	})

	t.Run("never goes negative", func(t *testing.T) {
		p := newTestProduct(t)
		p.StockQuantity = 2

		_, _, err := p.DeductStock(3, MovementSale)
		require.Error(t, err)
		assert.ErrorContains(t, err, "Insufficient stock")
		assert.Equal(t, 2, p.StockQuantity)
		assert.Empty(t, p.GetDomainEvents())
	})

	t.Run("restores stock", func(t *testing.T) {
		p := newTestProduct(t)
		_, after, err := p.RestoreStock(4, MovementRefund)
		require.NoError(t, err)
		assert.Equal(t, 4, after)
		ev := p.GetDomainEvents()[0].(*StockChangedEvent)
		assert.False(t, ev.Worsened())
	})

	t.Run("rejects zero adjustment", func(t *testing.T) {
		p := newTestProduct(t)
		_, _, err := p.AdjustStock(0, MovementAdjustment)
		assert.Error(t, err)
	})

	t.Run("setting the same quantity emits nothing", func(t *testing.T) {
		p := newTestProduct(t)
		p.StockQuantity = 7
		_, _, err := p.SetStock(7, MovementBulkUpdate)
		require.NoError(t, err)
		assert.Empty(t, p.GetDomainEvents())
	})
}

func TestProduct_Expiry(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	p := newTestProduct(t)

	assert.Equal(t, ExpiryStatusNone, p.ExpiryStatus(now, 30))

	date := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	require.NoError(t, p.SetBatch("B-1", date(2026, 5, 31)))
	assert.Equal(t, ExpiryStatusExpired, p.ExpiryStatus(now, 30))
	assert.True(t, p.IsExpired(now))

	require.NoError(t, p.SetBatch("B-2", date(2026, 6, 1)))
	days, ok := p.DaysUntilExpiry(now)
	require.True(t, ok)
	assert.Equal(t, 0, days)
	assert.Equal(t, ExpiryStatusExpiringSoon, p.ExpiryStatus(now, 30))

	require.NoError(t, p.SetBatch("B-3", date(2026, 7, 1)))
	assert.Equal(t, ExpiryStatusExpiringSoon, p.ExpiryStatus(now, 30))

	require.NoError(t, p.SetBatch("B-4", date(2026, 7, 2)))
	assert.Equal(t, ExpiryStatusOK, p.ExpiryStatus(now, 30))
}

func TestProduct_DaysUntilExpiryUsesClockLocation(t *testing.T) {
	p := newTestProduct(t)
	expiry := time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.SetBatch("B-TZ", &expiry))

	// 18:30 UTC on the 12th is already the 13th in a UTC+8 store.
	instant := time.Date(2026, 5, 12, 18, 30, 0, 0, time.UTC)
	store := time.FixedZone("UTC+8", 8*60*60)

	days, ok := p.DaysUntilExpiry(instant)
	require.True(t, ok)
	assert.Equal(t, 0, days)
	assert.NoError(t, p.CanBeSold(instant))

	days, ok = p.DaysUntilExpiry(instant.In(store))
	require.True(t, ok)
	assert.Equal(t, -1, days)
	assert.ErrorContains(t, p.CanBeSold(instant.In(store)), "expired")
}

func TestProduct_CanBeSold(t *testing.T) {
	now := time.Now()
	p := newTestProduct(t)
	assert.NoError(t, p.CanBeSold(now))

	require.NoError(t, p.Deactivate())
	assert.ErrorContains(t, p.CanBeSold(now), "not available")

	require.NoError(t, p.Activate())
	past := now.AddDate(0, 0, -3)
	require.NoError(t, p.SetBatch("OLD", &past))
	assert.ErrorContains(t, p.CanBeSold(now), "expired")
}

func TestProduct_Pricing(t *testing.T) {
	p := newTestProduct(t)
	p.StockQuantity = 10

	assert.True(t, decimal.NewFromInt(60).Equal(p.MarginPercent()))
	assert.True(t, decimal.NewFromInt(40).Equal(p.InventoryValue()))
	assert.True(t, decimal.NewFromInt(100).Equal(p.RetailValue()))
	assert.False(t, p.IsBelowCost())

	assert.Error(t, p.SetPrices(decimal.NewFromInt(-1), decimal.Zero))
	require.NoError(t, p.SetPrices(decimal.NewFromInt(12), decimal.NewFromInt(10)))
	assert.True(t, p.IsBelowCost())
}

func TestProduct_SetPharmacology(t *testing.T) {
	p := newTestProduct(t)
	require.NoError(t, p.SetPharmacology(DosageFormCapsule, "500mg", true))
	assert.Equal(t, DosageFormCapsule, p.DosageForm)
	assert.True(t, p.RequiresPrescription)

	assert.Error(t, p.SetPharmacology("lozenge", "", false))
}
