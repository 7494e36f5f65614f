package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/notification"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AlertConfig holds the thresholds used to raise alerts
type AlertConfig struct {
	LargeSaleThreshold decimal.Decimal
	ExpiryWarnDays     int
	Currency           string
	Location           *time.Location
}

// AlertHandler turns stock and sale events into notifications and runs the expiry scan
type AlertHandler struct {
	notifier    *NotificationService
	productRepo catalog.ProductRepository
	config      AlertConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(notifier *NotificationService, productRepo catalog.ProductRepository, config AlertConfig, logger *zap.Logger) *AlertHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ExpiryWarnDays <= 0 {
		config.ExpiryWarnDays = catalog.DefaultExpiryWarnDays
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &AlertHandler{
		notifier:    notifier,
		productRepo: productRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *AlertHandler) EventTypes() []string {
	return []string{catalog.EventTypeStockChanged, sales.EventTypeSaleCompleted}
}

// Handle processes a domain event
func (h *AlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *catalog.StockChangedEvent:
		return h.onStockChanged(ctx, e)
	case *sales.SaleCompletedEvent:
		return h.onSaleCompleted(ctx, e)
	}
	return nil
}

func (h *AlertHandler) onStockChanged(ctx context.Context, e *catalog.StockChangedEvent) error {
	if !e.Worsened() {
		return nil
	}

	var (
		nType    notification.Type
		priority notification.Priority
		title    string
		message  string
	)
	switch e.CurrentStatus {
	case catalog.StockStatusOutOfStock:
		nType, priority = notification.TypeOutOfStock, notification.PriorityHigh
		title = fmt.Sprintf("%s is out of stock", e.Name)
		message = fmt.Sprintf("%s (%s) has no stock left.", e.Name, e.SKU)
	case catalog.StockStatusCritical:
		nType, priority = notification.TypeLowStock, notification.PriorityHigh
		title = fmt.Sprintf("%s is critically low", e.Name)
		message = fmt.Sprintf("%s (%s) has %d left, critical level is %d.", e.Name, e.SKU, e.After, e.CriticalLevel)
	case catalog.StockStatusLow:
		nType, priority = notification.TypeLowStock, notification.PriorityNormal
		title = fmt.Sprintf("%s is running low", e.Name)
		message = fmt.Sprintf("%s (%s) has %d left, reorder level is %d.", e.Name, e.SKU, e.After, e.ReorderLevel)
	default:
		return nil
	}

	n, err := notification.New(nType, priority, title, message)
	if err != nil {
		return err
	}
	n.About("product", e.ProductID).
		WithDedupKey(fmt.Sprintf("stock:%s:%s", e.ProductID, e.CurrentStatus))
	_, err = h.notifier.Notify(ctx, n)
	return err
}

func (h *AlertHandler) onSaleCompleted(ctx context.Context, e *sales.SaleCompletedEvent) error {
	if h.config.LargeSaleThreshold.IsZero() || e.TotalAmount.LessThan(h.config.LargeSaleThreshold) {
		return nil
	}

	n, err := notification.New(notification.TypeSale, notification.PriorityNormal,
		fmt.Sprintf("Large sale %s", e.ReceiptNumber),
		fmt.Sprintf("Sale %s totalled %s %s across %d items.",
			e.ReceiptNumber, h.config.Currency, e.TotalAmount.StringFixed(2), e.ItemCount),
	)
	if err != nil {
		return err
	}
	n.About("sale", e.SaleID).WithDedupKey("sale:" + e.SaleID.String())
	_, err = h.notifier.Notify(ctx, n)
	return err
}

// ScanExpiry raises expiring and expired alerts for stocked products and returns how many were created
func (h *AlertHandler) ScanExpiry(ctx context.Context) (int, error) {
	now := h.now().In(h.config.Location)
	// Expiry dates are stored as UTC midnights of the local calendar day.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, h.config.ExpiryWarnDays+1)

	products, err := h.productRepo.FindExpiringBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range products {
		n, err := h.expiryAlert(&products[i], now)
		if err != nil {
			return created, err
		}
		if n == nil {
			continue
		}
		ok, err := h.notifier.Notify(ctx, n)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}

	h.logger.Info("Expiry scan finished",
		zap.Int("candidates", len(products)),
		zap.Int("alerts", created),
	)
	return created, nil
}

func (h *AlertHandler) expiryAlert(p *catalog.Product, now time.Time) (*notification.Notification, error) {
	days, ok := p.DaysUntilExpiry(now)
	if !ok {
		return nil, nil
	}
	expiry := p.ExpiryDate.Format("2006-01-02")

	var (
		n   *notification.Notification
		err error
		key string
	)
	switch p.ExpiryStatus(now, h.config.ExpiryWarnDays) {
	case catalog.ExpiryStatusExpired:
		n, err = notification.New(notification.TypeExpired, notification.PriorityCritical,
			fmt.Sprintf("%s has expired", p.Name),
			fmt.Sprintf("%s (%s) batch %s expired on %s with %d %s on hand.",
				p.Name, p.SKU, p.BatchNumber, expiry, p.StockQuantity, p.Unit),
		)
		key = fmt.Sprintf("expired:%s:%s", p.ID, expiry)
	case catalog.ExpiryStatusExpiringSoon:
		priority := notification.PriorityNormal
		if days <= 7 {
			priority = notification.PriorityHigh
		}
		n, err = notification.New(notification.TypeExpiring, priority,
			fmt.Sprintf("%s expires in %d days", p.Name, days),
			fmt.Sprintf("%s (%s) batch %s expires on %s with %d %s on hand.",
				p.Name, p.SKU, p.BatchNumber, expiry, p.StockQuantity, p.Unit),
		)
		key = fmt.Sprintf("expiring:%s:%s", p.ID, expiry)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.About("product", p.ID).WithDedupKey(key)
	return n, nil
}
