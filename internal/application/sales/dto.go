package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// Cashier identifies the user ringing up a sale
type Cashier struct {
	ID   uuid.UUID
	Name string
}

// CheckoutItemRequest is one line of a checkout
type CheckoutItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	Discount  *decimal.Decimal `json:"discount"`
}

// CheckoutRequest represents a request to complete a sale
type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod   string                `json:"payment_method" binding:"required,oneof=cash card mobile_money insurance"`
	AmountPaid      *decimal.Decimal      `json:"amount_paid"`
	CustomerID      *uuid.UUID            `json:"customer_id"`
	CustomerName    string                `json:"customer_name" binding:"max=200"`
	DiscountAmount  *decimal.Decimal      `json:"discount_amount"`
	DiscountPercent *decimal.Decimal      `json:"discount_percent"`
	PrescriptionRef string                `json:"prescription_ref" binding:"max=100"`
	Notes           string                `json:"notes" binding:"max=2000"`
}

// ReverseSaleRequest carries the reason for a void or refund
type ReverseSaleRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// SaleListFilter represents filter options for the sale list
type SaleListFilter struct {
	Search        string     `form:"search"`
	Status        string     `form:"status" binding:"omitempty,oneof=pending completed voided refunded"`
	PaymentMethod string     `form:"payment_method" binding:"omitempty,oneof=cash card mobile_money insurance"`
	CashierID     *uuid.UUID `form:"-"`
	CustomerID    *uuid.UUID `form:"-"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
	Page          int        `form:"page" binding:"min=0"`
	PageSize      int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SaleItemResponse represents a sale line in API responses
type SaleItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID              uuid.UUID          `json:"id"`
	ReceiptNumber   string             `json:"receipt_number"`
	CashierID       uuid.UUID          `json:"cashier_id"`
	CashierName     string             `json:"cashier_name"`
	CustomerID      *uuid.UUID         `json:"customer_id,omitempty"`
	CustomerName    string             `json:"customer_name,omitempty"`
	PaymentMethod   string             `json:"payment_method"`
	Status          string             `json:"status"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	TaxRate         decimal.Decimal    `json:"tax_rate"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	AmountPaid      decimal.Decimal    `json:"amount_paid"`
	ChangeDue       decimal.Decimal    `json:"change_due"`
	ItemCount       int                `json:"item_count"`
	PrescriptionRef string             `json:"prescription_ref,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	VoidedAt        *time.Time         `json:"voided_at,omitempty"`
	VoidReason      string             `json:"void_reason,omitempty"`
	RefundedAt      *time.Time         `json:"refunded_at,omitempty"`
	RefundReason    string             `json:"refund_reason,omitempty"`
	Items           []SaleItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ToSaleResponse converts a domain sale to a response
func ToSaleResponse(s *sales.Sale) SaleResponse {
	resp := SaleResponse{
		ID:              s.ID,
		ReceiptNumber:   s.ReceiptNumber,
		CashierID:       s.CashierID,
		CashierName:     s.CashierName,
		CustomerID:      s.CustomerID,
		CustomerName:    s.CustomerName,
		PaymentMethod:   string(s.PaymentMethod),
		Status:          string(s.Status),
		Subtotal:        s.Subtotal,
		DiscountAmount:  s.DiscountAmount,
		TaxRate:         s.TaxRate,
		TaxAmount:       s.TaxAmount,
		TotalAmount:     s.TotalAmount,
		AmountPaid:      s.AmountPaid,
		ChangeDue:       s.ChangeDue,
		ItemCount:       s.ItemCount(),
		PrescriptionRef: s.PrescriptionRef,
		Notes:           s.Notes,
		VoidedAt:        s.VoidedAt,
		VoidReason:      s.VoidReason,
		RefundedAt:      s.RefundedAt,
		RefundReason:    s.RefundReason,
		CreatedAt:       s.CreatedAt,
	}
	if len(s.Items) > 0 {
		resp.Items = make([]SaleItemResponse, len(s.Items))
		for i, item := range s.Items {
			resp.Items[i] = SaleItemResponse{
				ID:          item.ID,
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				SKU:         item.SKU,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Discount:    item.Discount,
				LineTotal:   item.LineTotal,
			}
		}
	}
	return resp
}

// TodaySummaryResponse is the register view of the current business day
type TodaySummaryResponse struct {
	Date               string          `json:"date"`
	Transactions       int             `json:"transactions"`
	Revenue            decimal.Decimal `json:"revenue"`
	ItemsSold          int             `json:"items_sold"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	VoidCount          int             `json:"void_count"`
	RefundCount        int             `json:"refund_count"`
	MyTransactions     int             `json:"my_transactions"`
	MyRevenue          decimal.Decimal `json:"my_revenue"`
	Currency           string          `json:"currency"`
}

// StoreInfo is printed in the receipt header
type StoreInfo struct {
	Name    string
	Address string
	Phone   string
}

// ReceiptData is everything a receipt template needs
type ReceiptData struct {
	Store    StoreInfo
	Sale     SaleResponse
	Currency string
	Location *time.Location
}
