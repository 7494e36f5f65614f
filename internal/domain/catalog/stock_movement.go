package catalog

import (
	"time"

	"github.com/google/uuid"
)

// MovementType identifies why stock changed
type MovementType string

const (
	MovementInitial    MovementType = "initial"
	MovementSale       MovementType = "sale"
	MovementVoid       MovementType = "void"
	MovementRefund     MovementType = "refund"
	MovementRestock    MovementType = "restock"
	MovementAdjustment MovementType = "adjustment"
	MovementBulkUpdate MovementType = "bulk_update"
)

// StockMovement is an append-only ledger row for a stock change
type StockMovement struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	Type           MovementType `gorm:"type:varchar(20);not null;index" json:"type"`
	QuantityChange int          `gorm:"not null" json:"quantity_change"`
	QuantityBefore int          `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int          `gorm:"not null" json:"quantity_after"`
	Reference      string       `gorm:"type:varchar(100)" json:"reference,omitempty"`
	Note           string       `gorm:"type:varchar(500)" json:"note,omitempty"`
	UserID         *uuid.UUID   `gorm:"type:uuid" json:"user_id,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement records a change from before to after
func NewStockMovement(productID uuid.UUID, movementType MovementType, before, after int, reference, note string, userID *uuid.UUID) *StockMovement {
	return &StockMovement{
		ID:             uuid.New(),
		ProductID:      productID,
		Type:           movementType,
		QuantityChange: after - before,
		QuantityBefore: before,
		QuantityAfter:  after,
		Reference:      reference,
		Note:           note,
		UserID:         userID,
		CreatedAt:      time.Now(),
	}
}
