package sales

import (
	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeSale is the aggregate type for sales
const AggregateTypeSale = "Sale"

// Event type constants
const (
	EventTypeSaleCompleted = "SaleCompleted"
	EventTypeSaleVoided    = "SaleVoided"
	EventTypeSaleRefunded  = "SaleRefunded"
)

// SaleCompletedEvent is published after a sale is committed
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	CashierID     uuid.UUID       `json:"cashier_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
}

// NewSaleCompletedEvent creates a SaleCompletedEvent
func NewSaleCompletedEvent(s *Sale) *SaleCompletedEvent {
	return &SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSaleCompleted, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		ReceiptNumber:   s.ReceiptNumber,
		CashierID:       s.CashierID,
		PaymentMethod:   s.PaymentMethod,
		TotalAmount:     s.TotalAmount,
		ItemCount:       s.ItemCount(),
	}
}

// SaleReversedEvent is published when a sale is voided or refunded
type SaleReversedEvent struct {
	shared.BaseDomainEvent
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Reason        string          `json:"reason"`
}

// NewSaleReversedEvent creates a void or refund event
func NewSaleReversedEvent(eventType string, s *Sale, reason string) *SaleReversedEvent {
	return &SaleReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeSale, s.ID),
		SaleID:          s.ID,
		ReceiptNumber:   s.ReceiptNumber,
		TotalAmount:     s.TotalAmount,
		Reason:          reason,
	}
}
