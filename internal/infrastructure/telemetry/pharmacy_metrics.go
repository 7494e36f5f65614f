package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/infrastructure/scheduler"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const defaultCollectInterval = 5 * time.Minute

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// StockSnapshot is the point-in-time stock health of the catalog
type StockSnapshot struct {
	InStock    int64
	LowStock   int64
	Critical   int64
	OutOfStock int64
	Expired    int64
	Expiring   int64
}

// StockSnapshotProvider reads the stock health for the periodic gauges
type StockSnapshotProvider interface {
	StockSnapshot(ctx context.Context, expiryCutoff time.Time) (StockSnapshot, error)
}

// NotificationBroadcaster matches the realtime broadcaster used by the notification service
type NotificationBroadcaster interface {
	Broadcast(ctx context.Context, n *notification.Notification) error
}

// PharmacyMetricsConfig configures PharmacyMetrics
type PharmacyMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	StockProvider   StockSnapshotProvider
	CollectInterval time.Duration
	ExpiryWarnDays  int
}

// PharmacyMetrics records sales, notifications, cache, event bus and job activity,
// and samples stock health on an interval.
type PharmacyMetrics struct {
	logger *zap.Logger

	salesTotal      *Counter
	salesRevenue    *FloatCounter
	reversals       *Counter
	reversedAmount  *FloatCounter
	itemsSold       *Counter
	notifications   *Counter
	cacheLookups    *Counter
	eventsHandled   *Counter
	eventDuration   *Histogram
	jobsTotal       *Counter
	jobDuration     *Histogram
	stockProducts   *Gauge
	broadcastErrors *Counter

	provider       StockSnapshotProvider
	interval       time.Duration
	expiryWarnDays int
	stop           chan struct{}
	stopOnce       sync.Once
	startOnce      sync.Once
	wg             sync.WaitGroup
}

// NewPharmacyMetrics creates every instrument on the configured meter
func NewPharmacyMetrics(cfg PharmacyMetricsConfig) (*PharmacyMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = defaultCollectInterval
	}
	warn := cfg.ExpiryWarnDays
	if warn <= 0 {
		warn = catalog.DefaultExpiryWarnDays
	}
	m := &PharmacyMetrics{
		logger:         logger,
		provider:       cfg.StockProvider,
		interval:       interval,
		expiryWarnDays: warn,
		stop:           make(chan struct{}),
	}

	meter := cfg.Meter
	var err error
	if m.salesTotal, err = NewCounter(meter, "pharmapos_sales_total", "Completed sales", "{sales}"); err != nil {
		return nil, err
	}
	if m.salesRevenue, err = NewFloatCounter(meter, "pharmapos_sales_revenue", "Revenue from completed sales", "{currency}"); err != nil {
		return nil, err
	}
	if m.reversals, err = NewCounter(meter, "pharmapos_sale_reversals_total", "Voided and refunded sales", "{sales}"); err != nil {
		return nil, err
	}
	if m.reversedAmount, err = NewFloatCounter(meter, "pharmapos_sale_reversed_amount", "Amount of voided and refunded sales", "{currency}"); err != nil {
		return nil, err
	}
	if m.itemsSold, err = NewCounter(meter, "pharmapos_items_sold_total", "Units sold", "{units}"); err != nil {
		return nil, err
	}
	if m.notifications, err = NewCounter(meter, "pharmapos_notifications_total", "Notifications created", "{notifications}"); err != nil {
		return nil, err
	}
	if m.broadcastErrors, err = NewCounter(meter, "pharmapos_notification_broadcast_errors_total", "Failed realtime pushes", "{notifications}"); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = NewCounter(meter, "pharmapos_cache_lookups_total", "Analytics cache lookups by outcome", "{lookups}"); err != nil {
		return nil, err
	}
	if m.eventsHandled, err = NewCounter(meter, "pharmapos_events_handled_total", "Domain event deliveries", "{events}"); err != nil {
		return nil, err
	}
	if m.eventDuration, err = NewHistogram(meter, "pharmapos_event_handler_duration_seconds", "Domain event handler duration", "s", FastBuckets...); err != nil {
		return nil, err
	}
	if m.jobsTotal, err = NewCounter(meter, "pharmapos_jobs_total", "Background job runs", "{jobs}"); err != nil {
		return nil, err
	}
	if m.jobDuration, err = NewHistogram(meter, "pharmapos_job_duration_seconds", "Background job duration", "s", JobDurationBuckets...); err != nil {
		return nil, err
	}
	if m.stockProducts, err = NewGauge(meter, "pharmapos_stock_products", "Active products by stock status", "{products}"); err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *PharmacyMetrics) EventTypes() []string {
	return []string{sales.EventTypeSaleCompleted, sales.EventTypeSaleVoided, sales.EventTypeSaleRefunded}
}

// Handle implements shared.EventHandler
func (m *PharmacyMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *sales.SaleCompletedEvent:
		method := AttrPaymentMethod.String(string(e.PaymentMethod))
		m.salesTotal.Inc(ctx, method)
		m.salesRevenue.Add(ctx, e.TotalAmount.InexactFloat64(), method)
		m.itemsSold.Add(ctx, int64(e.ItemCount))
	case *sales.SaleReversedEvent:
		kind := AttrOutcome.String(e.EventType())
		m.reversals.Inc(ctx, kind)
		m.reversedAmount.Add(ctx, e.TotalAmount.InexactFloat64(), kind)
	}
	return nil
}

// ObserveLookup implements cache.Observer
func (m *PharmacyMetrics) ObserveLookup(ctx context.Context, view, outcome string) {
	m.cacheLookups.Inc(ctx, AttrCacheView.String(view), AttrCacheOutcome.String(outcome))
}

// ObserveHandled implements event.Observer
func (m *PharmacyMetrics) ObserveHandled(ctx context.Context, eventType string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.eventsHandled.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome))
	m.eventDuration.RecordDuration(ctx, duration, AttrEventType.String(eventType))
}

// ObserveJob implements scheduler.Observer
func (m *PharmacyMetrics) ObserveJob(ctx context.Context, task string, status scheduler.JobStatus, duration time.Duration) {
	m.jobsTotal.Inc(ctx, AttrTask.String(task), AttrJobStatus.String(string(status)))
	m.jobDuration.RecordDuration(ctx, duration, AttrTask.String(task))
}

// RecordNotification counts a created notification
func (m *PharmacyMetrics) RecordNotification(ctx context.Context, n *notification.Notification) {
	m.notifications.Inc(ctx, AttrNotification.String(string(n.Type)), AttrPriority.String(string(n.Priority)))
}

// WrapBroadcaster counts notifications on their way to realtime clients
func (m *PharmacyMetrics) WrapBroadcaster(next NotificationBroadcaster) NotificationBroadcaster {
	return &countingBroadcaster{next: next, metrics: m}
}

type countingBroadcaster struct {
	next    NotificationBroadcaster
	metrics *PharmacyMetrics
}

func (b *countingBroadcaster) Broadcast(ctx context.Context, n *notification.Notification) error {
	b.metrics.RecordNotification(ctx, n)
	if b.next == nil {
		return nil
	}
	err := b.next.Broadcast(ctx, n)
	if err != nil {
		b.metrics.broadcastErrors.Inc(ctx, AttrNotification.String(string(n.Type)))
	}
	return err
}

// RecordStock publishes a stock snapshot to the gauge
func (m *PharmacyMetrics) RecordStock(ctx context.Context, s StockSnapshot) {
	m.stockProducts.Record(ctx, s.InStock, AttrStockStatus.String(string(catalog.StockStatusInStock)))
	m.stockProducts.Record(ctx, s.LowStock, AttrStockStatus.String(string(catalog.StockStatusLow)))
	m.stockProducts.Record(ctx, s.Critical, AttrStockStatus.String(string(catalog.StockStatusCritical)))
	m.stockProducts.Record(ctx, s.OutOfStock, AttrStockStatus.String(string(catalog.StockStatusOutOfStock)))
	m.stockProducts.Record(ctx, s.Expiring, AttrStockStatus.String("expiring"))
	m.stockProducts.Record(ctx, s.Expired, AttrStockStatus.String("expired"))
}

// CollectStock samples the provider once
func (m *PharmacyMetrics) CollectStock(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	snap, err := m.provider.StockSnapshot(ctx, time.Now().AddDate(0, 0, m.expiryWarnDays))
	if err != nil {
		m.logger.Warn("Failed to collect stock metrics", zap.Error(err))
		return err
	}
	m.RecordStock(ctx, snap)
	return nil
}

// Start samples stock immediately and then on every interval until Stop
func (m *PharmacyMetrics) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(m.interval)
			defer ticker.Stop()
			_ = m.CollectStock(ctx)
			for {
				select {
				case <-m.stop:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					_ = m.CollectStock(ctx)
				}
			}
		}()
	})
}

// Stop ends periodic collection
func (m *PharmacyMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

var (
	_ shared.EventHandler = (*PharmacyMetrics)(nil)
	_ scheduler.Observer  = (*PharmacyMetrics)(nil)
)
