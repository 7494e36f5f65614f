package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// DosageForm is the pharmaceutical form of a product
type DosageForm string

const (
	DosageFormTablet    DosageForm = "tablet"
	DosageFormCapsule   DosageForm = "capsule"
	DosageFormSyrup     DosageForm = "syrup"
	DosageFormInjection DosageForm = "injection"
	DosageFormCream     DosageForm = "cream"
	DosageFormDrops     DosageForm = "drops"
	DosageFormInhaler   DosageForm = "inhaler"
	DosageFormPowder    DosageForm = "powder"
	DosageFormOther     DosageForm = "other"
)

// IsValid reports whether the dosage form is known
func (d DosageForm) IsValid() bool {
	switch d {
	case DosageFormTablet, DosageFormCapsule, DosageFormSyrup, DosageFormInjection,
		DosageFormCream, DosageFormDrops, DosageFormInhaler, DosageFormPowder, DosageFormOther:
		return true
	}
	return false
}

// StockStatus classifies the on-hand quantity against the product thresholds
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLow        StockStatus = "low_stock"
	StockStatusCritical   StockStatus = "critical"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// Severity orders stock statuses, higher is worse
func (s StockStatus) Severity() int {
	switch s {
	case StockStatusLow:
		return 1
	case StockStatusCritical:
		return 2
	case StockStatusOutOfStock:
		return 3
	}
	return 0
}

// ExpiryStatus classifies a product's expiry date relative to now
type ExpiryStatus string

const (
	ExpiryStatusNone         ExpiryStatus = "none"
	ExpiryStatusOK           ExpiryStatus = "ok"
	ExpiryStatusExpiringSoon ExpiryStatus = "expiring_soon"
	ExpiryStatusExpired      ExpiryStatus = "expired"
)

// DefaultExpiryWarnDays is the window used when no explicit one is configured
const DefaultExpiryWarnDays = 30

// Product is a sellable item in the pharmacy catalog.
// It is the aggregate root for pricing, thresholds and on-hand stock.
type Product struct {
	shared.SoftDeletableAggregateRoot
	SKU                  string          `gorm:"column:sku;type:varchar(50);not null;index"`
	Barcode              string          `gorm:"type:varchar(50);index"`
	Name                 string          `gorm:"type:varchar(200);not null"`
	GenericName          string          `gorm:"type:varchar(200)"`
	Manufacturer         string          `gorm:"type:varchar(200)"`
	Description          string          `gorm:"type:text"`
	CategoryID           *uuid.UUID      `gorm:"type:uuid;index"`
	DosageForm           DosageForm      `gorm:"type:varchar(20);not null;default:'other'"`
	Strength             string          `gorm:"type:varchar(50)"`
	Unit                 string          `gorm:"type:varchar(20);not null;default:'unit'"`
	CostPrice            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellingPrice         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	StockQuantity        int             `gorm:"not null;default:0"`
	ReorderLevel         int             `gorm:"not null;default:0"`
	CriticalLevel        int             `gorm:"not null;default:0"`
	RequiresPrescription bool            `gorm:"not null;default:false"`
	BatchNumber          string          `gorm:"type:varchar(50)"`
	ExpiryDate           *time.Time      `gorm:"type:date;index"`
	ImageKey             string          `gorm:"type:varchar(500)"`
	Status               ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	SearchText           string          `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product with zero stock
func NewProduct(sku, name, unit string) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if unit == "" {
		unit = "unit"
	}
	if err := validateUnit(unit); err != nil {
		return nil, err
	}

	product := &Product{
		SoftDeletableAggregateRoot: shared.NewSoftDeletableAggregateRoot(),
		SKU:                        strings.ToUpper(strings.TrimSpace(sku)),
		Name:                       strings.TrimSpace(name),
		Unit:                       unit,
		DosageForm:                 DosageFormOther,
		CostPrice:                  decimal.Zero,
		SellingPrice:               decimal.Zero,
		Status:                     ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// Update updates descriptive fields
func (p *Product) Update(name, genericName, manufacturer, description string) error {
	if err := validateProductName(name); err != nil {
		return err
	}

	p.Name = strings.TrimSpace(name)
	p.GenericName = strings.TrimSpace(genericName)
	p.Manufacturer = strings.TrimSpace(manufacturer)
	p.Description = description
	p.Touch()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// SetSKU changes the stock keeping unit code
func (p *Product) SetSKU(sku string) error {
	if err := validateSKU(sku); err != nil {
		return err
	}
	p.SKU = strings.ToUpper(strings.TrimSpace(sku))
	p.Touch()
	return nil
}

// SetBarcode sets the product barcode
func (p *Product) SetBarcode(barcode string) error {
	barcode = strings.TrimSpace(barcode)
	if len(barcode) > 50 {
		return shared.NewDomainError("INVALID_BARCODE", "Barcode cannot exceed 50 characters")
	}

	p.Barcode = barcode
	p.Touch()

	return nil
}

// SetCategory sets the product category
func (p *Product) SetCategory(categoryID *uuid.UUID) {
	p.CategoryID = categoryID
	p.Touch()
}

// SetPharmacology sets dosage form, strength and prescription requirement
func (p *Product) SetPharmacology(form DosageForm, strength string, requiresPrescription bool) error {
	if form == "" {
		form = DosageFormOther
	}
	if !form.IsValid() {
		return shared.NewDomainError("INVALID_DOSAGE_FORM", fmt.Sprintf("Unknown dosage form %q", form))
	}
	if len(strength) > 50 {
		return shared.NewDomainError("INVALID_STRENGTH", "Strength cannot exceed 50 characters")
	}

	p.DosageForm = form
	p.Strength = strings.TrimSpace(strength)
	p.RequiresPrescription = requiresPrescription
	p.Touch()

	return nil
}

// SetUnit sets the unit of sale
func (p *Product) SetUnit(unit string) error {
	if err := validateUnit(unit); err != nil {
		return err
	}
	p.Unit = unit
	p.Touch()
	return nil
}

// SetPrices sets cost and selling price
func (p *Product) SetPrices(costPrice, sellingPrice decimal.Decimal) error {
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}

	p.CostPrice = costPrice
	p.SellingPrice = sellingPrice
	p.Touch()

	return nil
}

// SetStockLevels sets the reorder and critical thresholds.
// A negative critical level defaults to half the reorder level.
func (p *Product) SetStockLevels(reorderLevel, criticalLevel int) error {
	if reorderLevel < 0 {
		return shared.NewDomainError("INVALID_REORDER_LEVEL", "Reorder level cannot be negative")
	}
	if criticalLevel < 0 {
		criticalLevel = reorderLevel / 2
	}
	if criticalLevel > reorderLevel {
		return shared.NewDomainError("INVALID_CRITICAL_LEVEL", "Critical level cannot exceed reorder level")
	}

	p.ReorderLevel = reorderLevel
	p.CriticalLevel = criticalLevel
	p.Touch()

	return nil
}

// SetBatch records the batch number and expiry date of the stock on hand
func (p *Product) SetBatch(batchNumber string, expiryDate *time.Time) error {
	if len(batchNumber) > 50 {
		return shared.NewDomainError("INVALID_BATCH", "Batch number cannot exceed 50 characters")
	}
	p.BatchNumber = strings.TrimSpace(batchNumber)
	if expiryDate != nil {
		d := time.Date(expiryDate.Year(), expiryDate.Month(), expiryDate.Day(), 0, 0, 0, 0, time.UTC)
		p.ExpiryDate = &d
	} else {
		p.ExpiryDate = nil
	}
	p.Touch()
	return nil
}

// RefreshSearchText recomputes the folded text matched by catalog search
func (p *Product) RefreshSearchText() {
	p.SearchText = shared.FoldSearch(p.Name, p.GenericName, p.SKU, p.Barcode)
}

// SetImage stores the object storage key of the product image
func (p *Product) SetImage(key string) {
	p.ImageKey = key
	p.Touch()
}

// Activate activates the product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	p.Status = ProductStatusActive
	p.Touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// Deactivate hides the product from the point of sale
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Product is already inactive")
	}
	p.Status = ProductStatusInactive
	p.Touch()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// MarkDeleted records a deletion event; the row itself is soft-deleted by the repository
func (p *Product) MarkDeleted() {
	p.AddDomainEvent(NewProductDeletedEvent(p))
}

// AdjustStock changes on-hand quantity by delta and returns the before/after quantities.
// The quantity can never become negative.
func (p *Product) AdjustStock(delta int, movementType MovementType) (before, after int, err error) {
	if delta == 0 {
		return p.StockQuantity, p.StockQuantity, shared.NewDomainError("INVALID_QUANTITY", "Stock adjustment cannot be zero")
	}
	return p.SetStock(p.StockQuantity+delta, movementType)
}

// SetStock sets the on-hand quantity to an absolute value
func (p *Product) SetStock(quantity int, movementType MovementType) (before, after int, err error) {
	before = p.StockQuantity
	if quantity < 0 {
		return before, before, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", p.Name, before, before-quantity))
	}

	p.StockQuantity = quantity
	p.Touch()

	if before != quantity {
		p.AddDomainEvent(NewStockChangedEvent(p, before, movementType))
	}
	return before, quantity, nil
}

// DeductStock removes sold quantity from stock
func (p *Product) DeductStock(quantity int, movementType MovementType) (before, after int, err error) {
	if quantity <= 0 {
		return p.StockQuantity, p.StockQuantity, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return p.SetStock(p.StockQuantity-quantity, movementType)
}

// RestoreStock returns quantity to stock (voids, refunds, restocks)
func (p *Product) RestoreStock(quantity int, movementType MovementType) (before, after int, err error) {
	if quantity <= 0 {
		return p.StockQuantity, p.StockQuantity, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	return p.SetStock(p.StockQuantity+quantity, movementType)
}

// StockStatus classifies the current quantity
func (p *Product) StockStatus() StockStatus {
	return ClassifyStock(p.StockQuantity, p.ReorderLevel, p.CriticalLevel)
}

// ClassifyStock classifies a quantity against reorder and critical thresholds
func ClassifyStock(quantity, reorderLevel, criticalLevel int) StockStatus {
	switch {
	case quantity <= 0:
		return StockStatusOutOfStock
	case quantity <= criticalLevel:
		return StockStatusCritical
	case quantity <= reorderLevel:
		return StockStatusLow
	default:
		return StockStatusInStock
	}
}

// FillRatio is quantity over reorder level, used to rank low-stock items
func (p *Product) FillRatio() float64 {
	if p.ReorderLevel <= 0 {
		if p.StockQuantity <= 0 {
			return 0
		}
		return float64(p.StockQuantity)
	}
	return float64(p.StockQuantity) / float64(p.ReorderLevel)
}

// DaysUntilExpiry returns whole days from now's date to the expiry date.
// The date is read in now's location, so pass a clock in the store's timezone.
// Negative values mean the product has expired. The bool is false without an expiry date.
func (p *Product) DaysUntilExpiry(now time.Time) (int, bool) {
	if p.ExpiryDate == nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exp := time.Date(p.ExpiryDate.Year(), p.ExpiryDate.Month(), p.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24), true
}

// ExpiryStatus classifies the expiry date relative to now
func (p *Product) ExpiryStatus(now time.Time, warnDays int) ExpiryStatus {
	days, ok := p.DaysUntilExpiry(now)
	if !ok {
		return ExpiryStatusNone
	}
	if warnDays <= 0 {
		warnDays = DefaultExpiryWarnDays
	}
	switch {
	case days < 0:
		return ExpiryStatusExpired
	case days <= warnDays:
		return ExpiryStatusExpiringSoon
	default:
		return ExpiryStatusOK
	}
}

// IsExpired reports whether the expiry date has passed
func (p *Product) IsExpired(now time.Time) bool {
	return p.ExpiryStatus(now, DefaultExpiryWarnDays) == ExpiryStatusExpired
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// CanBeSold checks that the product may be placed on a sale
func (p *Product) CanBeSold(now time.Time) error {
	if p.IsDeleted() || !p.IsActive() {
		return shared.NewDomainError("PRODUCT_INACTIVE", fmt.Sprintf("Product %s is not available for sale", p.Name))
	}
	if p.IsExpired(now) {
		return shared.NewDomainError("PRODUCT_EXPIRED", fmt.Sprintf("Product %s has expired", p.Name))
	}
	return nil
}

// IsBelowCost flags selling prices under the cost price
func (p *Product) IsBelowCost() bool {
	return p.SellingPrice.LessThan(p.CostPrice)
}

// MarginPercent returns (selling - cost) / selling * 100, zero when selling price is zero
func (p *Product) MarginPercent() decimal.Decimal {
	if p.SellingPrice.IsZero() {
		return decimal.Zero
	}
	return p.SellingPrice.Sub(p.CostPrice).Div(p.SellingPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

// InventoryValue is on-hand quantity at cost
func (p *Product) InventoryValue() decimal.Decimal {
	return p.CostPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
}

// RetailValue is on-hand quantity at selling price
func (p *Product) RetailValue() decimal.Decimal {
	return p.SellingPrice.Mul(decimal.NewFromInt(int64(p.StockQuantity)))
}

// IsValidSKU reports whether sku passes the product SKU rules
func IsValidSKU(sku string) bool {
	return validateSKU(sku) == nil
}

func validateSKU(sku string) error {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, dots, underscores, and hyphens")
		}
	}
	return nil
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validateUnit(unit string) error {
	if unit == "" {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if len(unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot exceed 20 characters")
	}
	return nil
}
