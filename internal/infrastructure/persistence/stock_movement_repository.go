package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormStockMovementRepository appends to the stock ledger
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Save appends a single movement
func (r *GormStockMovementRepository) Save(ctx context.Context, movement *catalog.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// SaveBatch appends movements in batches of 100
func (r *GormStockMovementRepository) SaveBatch(ctx context.Context, movements []*catalog.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(movements, 100).Error
}

// FindByProduct lists a product's movements, newest first by default
func (r *GormStockMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]catalog.StockMovement, error) {
	var movements []catalog.StockMovement
	query := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.StockMovement{}), productID, filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, StockMovementSortFields, "created_at")).
		Offset(filter.Offset())
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
	}
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// CountByProduct counts a product's movements
func (r *GormStockMovementRepository) CountByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.StockMovement{}), productID, filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormStockMovementRepository) applyFilter(query *gorm.DB, productID uuid.UUID, filter shared.Filter) *gorm.DB {
	query = query.Where("product_id = ?", productID)
	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "from":
			query = query.Where("created_at >= ?", value)
		case "to":
			query = query.Where("created_at < ?", value)
		}
	}
	return query
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ catalog.StockMovementRepository = (*GormStockMovementRepository)(nil)
