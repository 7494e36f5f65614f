package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID loads a sale with its items
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &sale, nil
}

// FindByReceiptNumber loads a sale with its items by receipt number
func (r *GormSaleRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*sales.Sale, error) {
	var sale sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("receipt_number = ?", receiptNumber).
		First(&sale).Error; err != nil {
		return nil, translateError(err)
	}
	return &sale, nil
}

// FindAll lists sales without items
func (r *GormSaleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Sale, error) {
	var list []sales.Sale
	query := r.applyFilter(r.db.WithContext(ctx).Model(&sales.Sale{}), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, SaleSortFields, "created_at")).
		Offset(filter.Offset())
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Count counts sales matching the filter
func (r *GormSaleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&sales.Sale{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindInRange loads every sale created in [r.Start, r.End) with items
func (r *GormSaleRepository) FindInRange(ctx context.Context, rng shared.DateRange) ([]sales.Sale, error) {
	var list []sales.Sale
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at < ?", rng.Start.UTC(), rng.End.UTC()).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindRecent returns the latest completed sales
func (r *GormSaleRepository) FindRecent(ctx context.Context, limit int) ([]sales.Sale, error) {
	if limit <= 0 {
		limit = 10
	}
	var list []sales.Sale
	if err := r.db.WithContext(ctx).
		Where("status = ?", sales.SaleStatusCompleted).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts the sale together with its items
func (r *GormSaleRepository) Create(ctx context.Context, sale *sales.Sale) error {
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return translateError(err)
	}
	sale.MarkPersisted()
	return nil
}

// UpdateStatus writes the reversal fields when the stored version still matches
func (r *GormSaleRepository) UpdateStatus(ctx context.Context, sale *sales.Sale) error {
	result := r.db.WithContext(ctx).Model(&sales.Sale{}).
		Where("id = ? AND version = ?", sale.ID, sale.PersistedVersion()).
		Updates(map[string]any{
			"status":        sale.Status,
			"voided_at":     sale.VoidedAt,
			"voided_by":     sale.VoidedBy,
			"void_reason":   sale.VoidReason,
			"refunded_at":   sale.RefundedAt,
			"refunded_by":   sale.RefundedBy,
			"refund_reason": sale.RefundReason,
			"version":       sale.Version,
			"updated_at":    sale.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	sale.MarkPersisted()
	return nil
}

// CustomerStats aggregates completed purchases for a customer
func (r *GormSaleRepository) CustomerStats(ctx context.Context, customerID uuid.UUID) (*sales.CustomerStats, error) {
	var agg struct {
		SaleCount  int64
		TotalSpent decimal.Decimal
	}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&sales.Sale{}).
			Where("customer_id = ? AND status = ?", customerID, sales.SaleStatusCompleted)
	}
	if err := base().
		Select("COUNT(*) AS sale_count, COALESCE(SUM(total_amount), 0) AS total_spent").
		Scan(&agg).Error; err != nil {
		return nil, err
	}

	stats := &sales.CustomerStats{SaleCount: agg.SaleCount, TotalSpent: agg.TotalSpent}
	if agg.SaleCount == 0 {
		return stats, nil
	}

	var last sales.Sale
	result := base().Select("id", "created_at").Order("created_at DESC").Limit(1).Find(&last)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		at := last.CreatedAt
		stats.LastPurchase = &at
	}
	return stats, nil
}

func (r *GormSaleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		folded, plain := searchPatterns(filter.Search)
		query = query.Where("LOWER(receipt_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_name) LIKE ?",
			plain, folded, plain)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_method":
			query = query.Where("payment_method = ?", value)
		case "cashier_id":
			query = query.Where("cashier_id = ?", value)
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "from":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at >= ?", t.UTC())
			}
		case "to":
			if t, ok := value.(time.Time); ok {
				query = query.Where("created_at < ?", t.UTC())
			}
		}
	}
	return query
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)
