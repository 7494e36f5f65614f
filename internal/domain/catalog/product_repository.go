package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDUnscoped also returns soft-deleted products
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate loads a product with a row lock inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdateUnscoped locks the row even when the product is soft-deleted
	FindByIDForUpdateUnscoped(ctx context.Context, id uuid.UUID) (*Product, error)

	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindAllActive returns every live active product, used by analytics
	FindAllActive(ctx context.Context) ([]Product, error)

	// FindLowStock returns products at or below their reorder level
	FindLowStock(ctx context.Context) ([]Product, error)

	// FindExpiringBefore returns products with stock whose expiry date is before the cutoff
	FindExpiringBefore(ctx context.Context, cutoff time.Time) ([]Product, error)

	Save(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)

	// CountsByCategory returns product counts keyed by category id
	CountsByCategory(ctx context.Context) (map[uuid.UUID]int64, error)

	ExistsBySKU(ctx context.Context, sku string, excludeID *uuid.UUID) (bool, error)
	ExistsByBarcode(ctx context.Context, barcode string, excludeID *uuid.UUID) (bool, error)
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*Category, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Category, error)

	// FindAllIncludingInactive returns every live category, used for report labels
	FindAllIncludingInactive(ctx context.Context) ([]Category, error)

	Save(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
}

// StockMovementRepository persists the stock ledger
type StockMovementRepository interface {
	Save(ctx context.Context, movement *StockMovement) error
	SaveBatch(ctx context.Context, movements []*StockMovement) error
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockMovement, error)
	CountByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) (int64, error)
}
