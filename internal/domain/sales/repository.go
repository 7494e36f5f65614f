package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStats summarises a customer's purchase history
type CustomerStats struct {
	SaleCount    int64           `json:"sale_count"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	LastPurchase *time.Time      `json:"last_purchase,omitempty"`
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	// FindByID loads a sale with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Sale, error)

	// FindAll lists sales without items
	FindAll(ctx context.Context, filter shared.Filter) ([]Sale, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindInRange loads sales created in the range with their items, any status
	FindInRange(ctx context.Context, r shared.DateRange) ([]Sale, error)

	// FindRecent returns the latest completed sales without items
	FindRecent(ctx context.Context, limit int) ([]Sale, error)

	// Create inserts a sale and its items
	Create(ctx context.Context, sale *Sale) error

	// UpdateStatus persists status fields guarded by the aggregate version
	UpdateStatus(ctx context.Context, sale *Sale) error

	CustomerStats(ctx context.Context, customerID uuid.UUID) (*CustomerStats, error)
}
