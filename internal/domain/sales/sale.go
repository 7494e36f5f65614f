package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleStatus represents the lifecycle state of a sale
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusVoided    SaleStatus = "voided"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusVoided, SaleStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentInsurance   PaymentMethod = "insurance"
)

// IsValid checks if the payment method is supported
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentInsurance:
		return true
	}
	return false
}

// PaymentMethods lists all supported payment methods in display order
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentMobileMoney, PaymentInsurance}

var hundred = decimal.NewFromInt(100)

// SaleItem is a line on a sale with price and cost snapshots taken at checkout
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	SKU         string          `gorm:"column:sku;type:varchar(50);not null"`
	CategoryID  *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt   time.Time       `gorm:"not null"`

	requiresPrescription bool
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// LineCost is the cost of goods for the line
func (i SaleItem) LineCost() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Profit is the line total less its cost
func (i SaleItem) Profit() decimal.Decimal {
	return i.LineTotal.Sub(i.LineCost())
}

// ItemInput carries the product snapshot for a new line
type ItemInput struct {
	ProductID            uuid.UUID
	ProductName          string
	SKU                  string
	CategoryID           *uuid.UUID
	Quantity             int
	UnitPrice            decimal.Decimal
	UnitCost             decimal.Decimal
	Discount             decimal.Decimal
	RequiresPrescription bool
}

// Sale is a point-of-sale transaction and the aggregate root for its items
type Sale struct {
	shared.BaseAggregateRoot
	ReceiptNumber   string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	CashierID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashierName     string          `gorm:"type:varchar(100)"`
	CustomerID      *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerName    string          `gorm:"type:varchar(200)"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null"`
	Status          SaleStatus      `gorm:"type:varchar(20);not null;index"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ChangeDue       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PrescriptionRef string          `gorm:"type:varchar(100)"`
	Notes           string          `gorm:"type:text"`
	VoidedAt        *time.Time
	VoidedBy        *uuid.UUID `gorm:"type:uuid"`
	VoidReason      string     `gorm:"type:varchar(500)"`
	RefundedAt      *time.Time
	RefundedBy      *uuid.UUID `gorm:"type:uuid"`
	RefundReason    string     `gorm:"type:varchar(500)"`
	Items           []SaleItem `gorm:"foreignKey:SaleID;references:ID"`

	discountPercent decimal.Decimal
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale starts a pending sale for a cashier
func NewSale(cashierID uuid.UUID, cashierName string, method PaymentMethod) (*Sale, error) {
	if cashierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CASHIER", "Cashier is required")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unsupported payment method %q", method))
	}
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CashierID:         cashierID,
		CashierName:       cashierName,
		PaymentMethod:     method,
		Status:            SaleStatusPending,
		Subtotal:          decimal.Zero,
		DiscountAmount:    decimal.Zero,
		TaxRate:           decimal.Zero,
		TaxAmount:         decimal.Zero,
		TotalAmount:       decimal.Zero,
		AmountPaid:        decimal.Zero,
		ChangeDue:         decimal.Zero,
		Items:             make([]SaleItem, 0),
	}, nil
}

// SetCustomer links the sale to a customer contact or a walk-in name
func (s *Sale) SetCustomer(customerID *uuid.UUID, name string) {
	s.CustomerID = customerID
	s.CustomerName = strings.TrimSpace(name)
}

// SetNotes sets free-text notes
func (s *Sale) SetNotes(notes string) {
	s.Notes = notes
}

// AddItem appends a line. A product can appear only once per sale.
func (s *Sale) AddItem(in ItemInput) error {
	if s.Status != SaleStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Items can only be added to a pending sale")
	}
	if in.ProductID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if in.Quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if in.UnitPrice.IsNegative() || in.UnitCost.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	for _, item := range s.Items {
		if item.ProductID == in.ProductID {
			return shared.NewDomainError("DUPLICATE_ITEM", fmt.Sprintf("Product %s is already on the sale", in.ProductName))
		}
	}

	gross := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
	if in.Discount.IsNegative() || in.Discount.GreaterThan(gross) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Line discount must be between zero and the line amount")
	}

	s.Items = append(s.Items, SaleItem{
		ID:                   uuid.New(),
		SaleID:               s.ID,
		ProductID:            in.ProductID,
		ProductName:          in.ProductName,
		SKU:                  in.SKU,
		CategoryID:           in.CategoryID,
		Quantity:             in.Quantity,
		UnitPrice:            in.UnitPrice,
		UnitCost:             in.UnitCost,
		Discount:             in.Discount,
		LineTotal:            gross.Sub(in.Discount).Round(2),
		CreatedAt:            time.Now(),
		requiresPrescription: in.RequiresPrescription,
	})
	return nil
}

// SetDiscountAmount sets a sale-level discount amount applied after line discounts
func (s *Sale) SetDiscountAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	s.DiscountAmount = amount
	s.discountPercent = decimal.Zero
	return nil
}

// SetDiscountPercent sets a sale-level discount as a percentage of the subtotal
func (s *Sale) SetDiscountPercent(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount percent must be between 0 and 100")
	}
	s.discountPercent = percent
	s.DiscountAmount = decimal.Zero
	return nil
}

// RequiresPrescription reports whether any line needs a prescription reference
func (s *Sale) RequiresPrescription() bool {
	for _, item := range s.Items {
		if item.requiresPrescription {
			return true
		}
	}
	return false
}

// Complete computes totals, validates payment and finalizes the sale.
// total = subtotal - discount + (subtotal - discount) * taxRate
func (s *Sale) Complete(receiptNumber string, taxRate, amountPaid decimal.Decimal, prescriptionRef string) error {
	if s.Status != SaleStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Sale is already finalized")
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("EMPTY_SALE", "A sale must have at least one item")
	}
	if receiptNumber == "" {
		return shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number is required")
	}
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be in [0, 1)")
	}
	prescriptionRef = strings.TrimSpace(prescriptionRef)
	if s.RequiresPrescription() && prescriptionRef == "" {
		return shared.NewDomainError("PRESCRIPTION_REQUIRED", "A prescription reference is required for prescription-only items")
	}

	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	discount := s.DiscountAmount
	if s.discountPercent.IsPositive() {
		discount = subtotal.Mul(s.discountPercent).Div(hundred).Round(2)
	}
	if discount.GreaterThan(subtotal) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the subtotal")
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Round(2)
	total := taxable.Add(tax).Round(2)

	paid := total
	change := decimal.Zero
	if s.PaymentMethod == PaymentCash {
		if amountPaid.LessThan(total) {
			return shared.NewDomainError("INSUFFICIENT_PAYMENT",
				fmt.Sprintf("Amount paid %s is less than the total %s", amountPaid.StringFixed(2), total.StringFixed(2)))
		}
		paid = amountPaid
		change = amountPaid.Sub(total)
	}

	s.ReceiptNumber = receiptNumber
	s.Subtotal = subtotal
	s.DiscountAmount = discount
	s.TaxRate = taxRate
	s.TaxAmount = tax
	s.TotalAmount = total
	s.AmountPaid = paid
	s.ChangeDue = change
	s.PrescriptionRef = prescriptionRef
	s.Status = SaleStatusCompleted
	s.UpdatedAt = time.Now()

	s.AddDomainEvent(NewSaleCompletedEvent(s))
	return nil
}

// Void cancels a completed sale within the void window
func (s *Sale) Void(userID uuid.UUID, reason string, now time.Time, window time.Duration) error {
	if err := s.ensureReversible(reason); err != nil {
		return err
	}
	if window > 0 && now.Sub(s.CreatedAt) > window {
		return shared.NewDomainError("VOID_WINDOW_EXPIRED",
			fmt.Sprintf("Sales can only be voided within %s; use a refund instead", window))
	}

	s.Status = SaleStatusVoided
	s.VoidedAt = &now
	s.VoidedBy = &userID
	s.VoidReason = strings.TrimSpace(reason)
	s.Touch()

	s.AddDomainEvent(NewSaleReversedEvent(EventTypeSaleVoided, s, s.VoidReason))
	return nil
}

// Refund reverses a completed sale as a customer return
func (s *Sale) Refund(userID uuid.UUID, reason string, now time.Time) error {
	if err := s.ensureReversible(reason); err != nil {
		return err
	}

	s.Status = SaleStatusRefunded
	s.RefundedAt = &now
	s.RefundedBy = &userID
	s.RefundReason = strings.TrimSpace(reason)
	s.Touch()

	s.AddDomainEvent(NewSaleReversedEvent(EventTypeSaleRefunded, s, s.RefundReason))
	return nil
}

func (s *Sale) ensureReversible(reason string) error {
	if s.Status != SaleStatusCompleted {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reverse a sale in %s status", s.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "A reason is required")
	}
	return nil
}

// IsCompleted reports whether the sale counts toward revenue
func (s *Sale) IsCompleted() bool {
	return s.Status == SaleStatusCompleted
}

// ItemCount is the total number of units sold
func (s *Sale) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// NetAmount is revenue before tax
func (s *Sale) NetAmount() decimal.Decimal {
	return s.Subtotal.Sub(s.DiscountAmount)
}

// CostTotal is the cost of goods sold across all lines
func (s *Sale) CostTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineCost())
	}
	return total
}

// GrossProfit is net revenue less cost of goods
func (s *Sale) GrossProfit() decimal.Decimal {
	return s.NetAmount().Sub(s.CostTotal())
}

// GenerateReceiptNumber builds a receipt number like RCP-20260115-4F9A2C
func GenerateReceiptNumber(prefix string, at time.Time) string {
	if prefix == "" {
		prefix = "RCP"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}
