package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/scheduler"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestMetrics(t *testing.T, provider StockSnapshotProvider) (*PharmacyMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp, err := NewMeterProviderWithReader(reader, "pharmapos-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewPharmacyMetrics(PharmacyMetricsConfig{
		Meter:         mp.Meter("test"),
		StockProvider: provider,
	})
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func intSum(t *testing.T, m metricdata.Metrics, attr attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestNewPharmacyMetrics_NilMeter(t *testing.T) {
	m, err := NewPharmacyMetrics(PharmacyMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, m)
}

func TestNewPharmacyMetrics_NoopMeter(t *testing.T) {
	m, err := NewPharmacyMetrics(PharmacyMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	assert.NoError(t, m.Handle(context.Background(), &sales.SaleCompletedEvent{PaymentMethod: sales.PaymentCash}))
}

func TestPharmacyMetrics_SaleEvents(t *testing.T) {
	m, reader := newTestMetrics(t, nil)
	ctx := context.Background()

	sale := &sales.Sale{PaymentMethod: sales.PaymentCard, TotalAmount: decimal.NewFromInt(25)}
	sale.ID = uuid.New()
	completed := sales.NewSaleCompletedEvent(sale)
	completed.ItemCount = 3

	require.NoError(t, m.Handle(ctx, completed))
	require.NoError(t, m.Handle(ctx, completed))
	require.NoError(t, m.Handle(ctx, sales.NewSaleReversedEvent(sales.EventTypeSaleVoided, sale, "wrong item")))

	got := collect(t, reader)
	assert.Equal(t, int64(2), intSum(t, got["pharmapos_sales_total"], AttrPaymentMethod.String(string(sales.PaymentCard))))
	assert.Equal(t, int64(1), intSum(t, got["pharmapos_sale_reversals_total"], AttrOutcome.String(sales.EventTypeSaleVoided)))

	revenue, ok := got["pharmapos_sales_revenue"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, revenue.DataPoints, 1)
	assert.InDelta(t, 50.0, revenue.DataPoints[0].Value, 0.001)

	items, ok := got["pharmapos_items_sold_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(6), items.DataPoints[0].Value)
}

func TestPharmacyMetrics_Observers(t *testing.T) {
	m, reader := newTestMetrics(t, nil)
	ctx := context.Background()

	m.ObserveLookup(ctx, "dashboard:overview", "hit")
	m.ObserveLookup(ctx, "dashboard:overview", "miss")
	m.ObserveLookup(ctx, "dashboard:overview", "hit")
	m.ObserveHandled(ctx, sales.EventTypeSaleCompleted, nil, time.Millisecond)
	m.ObserveHandled(ctx, sales.EventTypeSaleCompleted, errors.New("boom"), time.Millisecond)
	m.ObserveJob(ctx, scheduler.TaskExpiryScan, scheduler.JobStatusSuccess, time.Second)

	got := collect(t, reader)
	assert.Equal(t, int64(2), intSum(t, got["pharmapos_cache_lookups_total"], AttrCacheOutcome.String("hit")))
	assert.Equal(t, int64(1), intSum(t, got["pharmapos_events_handled_total"], AttrOutcome.String("error")))
	assert.Equal(t, int64(1), intSum(t, got["pharmapos_jobs_total"], AttrTask.String(scheduler.TaskExpiryScan)))
}

type fakeBroadcaster struct {
	err   error
	calls int
}

func (f *fakeBroadcaster) Broadcast(context.Context, *notification.Notification) error {
	f.calls++
	return f.err
}

func TestPharmacyMetrics_WrapBroadcaster(t *testing.T) {
	m, reader := newTestMetrics(t, nil)
	next := &fakeBroadcaster{err: errors.New("redis down")}
	b := m.WrapBroadcaster(next)

	n := &notification.Notification{Type: notification.TypeLowStock, Priority: notification.PriorityHigh}
	err := b.Broadcast(context.Background(), n)

	assert.EqualError(t, err, "redis down")
	assert.Equal(t, 1, next.calls)
	got := collect(t, reader)
	assert.Equal(t, int64(1), intSum(t, got["pharmapos_notifications_total"], AttrNotification.String(string(notification.TypeLowStock))))
	assert.Equal(t, int64(1), intSum(t, got["pharmapos_notification_broadcast_errors_total"], AttrNotification.String(string(notification.TypeLowStock))))
}

type staticStock struct {
	snap StockSnapshot
	err  error
}

func (s staticStock) StockSnapshot(context.Context, time.Time) (StockSnapshot, error) {
	return s.snap, s.err
}

func TestPharmacyMetrics_CollectStock(t *testing.T) {
	m, reader := newTestMetrics(t, staticStock{snap: StockSnapshot{InStock: 40, LowStock: 3, Critical: 2, OutOfStock: 1, Expired: 4}})

	require.NoError(t, m.CollectStock(context.Background()))

	got := collect(t, reader)
	gauge, ok := got["pharmapos_stock_products"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	values := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		v, _ := dp.Attributes.Value(AttrStockStatus)
		values[v.AsString()] = dp.Value
	}
	assert.Equal(t, int64(40), values["in_stock"])
	assert.Equal(t, int64(3), values["low_stock"])
	assert.Equal(t, int64(2), values["critical"])
	assert.Equal(t, int64(1), values["out_of_stock"])
	assert.Equal(t, int64(4), values["expired"])
}

func TestPharmacyMetrics_CollectStockError(t *testing.T) {
	m, _ := newTestMetrics(t, staticStock{err: errors.New("db down")})
	assert.EqualError(t, m.CollectStock(context.Background()), "db down")
}

func TestPharmacyMetrics_StartStop(t *testing.T) {
	m, reader := newTestMetrics(t, staticStock{snap: StockSnapshot{InStock: 1}})
	m.Start(context.Background())
	m.Stop()
	m.Stop()

	got := collect(t, reader)
	assert.Contains(t, got, "pharmapos_stock_products")
}

func TestGormStockSnapshotProvider(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT .* FROM "products" WHERE status = .* AND "products"."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"in_stock", "low_stock", "critical", "out_of_stock", "expired", "expiring"}).
			AddRow(10, 2, 1, 3, 0, 5))

	snap, err := NewGormStockSnapshotProvider(db).StockSnapshot(context.Background(), time.Now().AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, StockSnapshot{InStock: 10, LowStock: 2, Critical: 1, OutOfStock: 3, Expiring: 5}, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTraceID_Empty(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	ctx, span := StartServiceSpan(context.Background(), "sale", "checkout")
	EndSpan(span, nil)
	_ = ctx
}

var _ shared.EventHandler = (*PharmacyMetrics)(nil)
