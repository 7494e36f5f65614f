package telemetry

import (
	"context"
	"time"

	"github.com/pharmapos/backend/internal/domain/catalog"
	"gorm.io/gorm"
)

// GormStockSnapshotProvider aggregates stock health in a single query over active products
type GormStockSnapshotProvider struct {
	db *gorm.DB
}

// NewGormStockSnapshotProvider creates a new GormStockSnapshotProvider
func NewGormStockSnapshotProvider(db *gorm.DB) *GormStockSnapshotProvider {
	return &GormStockSnapshotProvider{db: db}
}

// StockSnapshot classifies active products the same way catalog.ClassifyStock does
func (p *GormStockSnapshotProvider) StockSnapshot(ctx context.Context, expiryCutoff time.Time) (StockSnapshot, error) {
	var row struct {
		InStock    int64
		LowStock   int64
		Critical   int64
		OutOfStock int64
		Expired    int64
		Expiring   int64
	}
	now := time.Now()
	err := p.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Select(`
			COALESCE(SUM(CASE WHEN stock_quantity > reorder_level AND stock_quantity > critical_level THEN 1 ELSE 0 END), 0) AS in_stock,
			COALESCE(SUM(CASE WHEN stock_quantity > critical_level AND stock_quantity > 0 AND stock_quantity <= reorder_level THEN 1 ELSE 0 END), 0) AS low_stock,
			COALESCE(SUM(CASE WHEN stock_quantity > 0 AND stock_quantity <= critical_level THEN 1 ELSE 0 END), 0) AS critical,
			COALESCE(SUM(CASE WHEN stock_quantity <= 0 THEN 1 ELSE 0 END), 0) AS out_of_stock,
			COALESCE(SUM(CASE WHEN stock_quantity > 0 AND expiry_date IS NOT NULL AND expiry_date < ? THEN 1 ELSE 0 END), 0) AS expired,
			COALESCE(SUM(CASE WHEN stock_quantity > 0 AND expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date < ? THEN 1 ELSE 0 END), 0) AS expiring`,
			now, now, expiryCutoff).
		Where("status = ?", catalog.ProductStatusActive).
		Scan(&row).Error
	if err != nil {
		return StockSnapshot{}, err
	}
	return StockSnapshot(row), nil
}
