package catalog

import (
	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeProduct  = "Product"
	AggregateTypeCategory = "Category"
)

// Event type constants
const (
	EventTypeProductCreated = "ProductCreated"
	EventTypeProductUpdated = "ProductUpdated"
	EventTypeProductDeleted = "ProductDeleted"
	EventTypeStockChanged   = "StockChanged"
)

// ProductCreatedEvent is published when a new product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID  `json:"product_id"`
	SKU        string     `json:"sku"`
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Name:            product.Name,
		CategoryID:      product.CategoryID,
	}
}

// ProductUpdatedEvent is published when product details or status change
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID     `json:"product_id"`
	SKU       string        `json:"sku"`
	Name      string        `json:"name"`
	Status    ProductStatus `json:"status"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(product *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Name:            product.Name,
		Status:          product.Status,
	}
}

// ProductDeletedEvent is published when a product is soft-deleted
type ProductDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
}

// NewProductDeletedEvent creates a new ProductDeletedEvent
func NewProductDeletedEvent(product *Product) *ProductDeletedEvent {
	return &ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeleted, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		SKU:             product.SKU,
	}
}

// StockChangedEvent is published whenever on-hand quantity changes
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID    `json:"product_id"`
	SKU            string       `json:"sku"`
	Name           string       `json:"name"`
	Before         int          `json:"before"`
	After          int          `json:"after"`
	ReorderLevel   int          `json:"reorder_level"`
	CriticalLevel  int          `json:"critical_level"`
	MovementType   MovementType `json:"movement_type"`
	PreviousStatus StockStatus  `json:"previous_status"`
	CurrentStatus  StockStatus  `json:"current_status"`
}

// NewStockChangedEvent creates a StockChangedEvent from the product's current state
func NewStockChangedEvent(product *Product, before int, movementType MovementType) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, AggregateTypeProduct, product.ID),
		ProductID:       product.ID,
		SKU:             product.SKU,
		Name:            product.Name,
		Before:          before,
		After:           product.StockQuantity,
		ReorderLevel:    product.ReorderLevel,
		CriticalLevel:   product.CriticalLevel,
		MovementType:    movementType,
		PreviousStatus:  ClassifyStock(before, product.ReorderLevel, product.CriticalLevel),
		CurrentStatus:   product.StockStatus(),
	}
}

// Worsened reports whether the change moved the product into a more severe stock status
func (e *StockChangedEvent) Worsened() bool {
	return e.CurrentStatus.Severity() > e.PreviousStatus.Severity()
}
