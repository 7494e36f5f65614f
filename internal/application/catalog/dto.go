package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU                  string           `json:"sku" binding:"required,min=1,max=50,sku"`
	Barcode              string           `json:"barcode" binding:"max=50"`
	Name                 string           `json:"name" binding:"required,min=1,max=200"`
	GenericName          string           `json:"generic_name" binding:"max=200"`
	Manufacturer         string           `json:"manufacturer" binding:"max=200"`
	Description          string           `json:"description" binding:"max=2000"`
	CategoryID           *uuid.UUID       `json:"category_id"`
	DosageForm           string           `json:"dosage_form" binding:"omitempty,oneof=tablet capsule syrup injection cream drops inhaler powder other"`
	Strength             string           `json:"strength" binding:"max=50"`
	Unit                 string           `json:"unit" binding:"max=20"`
	CostPrice            *decimal.Decimal `json:"cost_price"`
	SellingPrice         *decimal.Decimal `json:"selling_price"`
	InitialStock         int              `json:"initial_stock" binding:"min=0"`
	ReorderLevel         *int             `json:"reorder_level" binding:"omitempty,min=0"`
	CriticalLevel        *int             `json:"critical_level" binding:"omitempty,min=0"`
	RequiresPrescription bool             `json:"requires_prescription"`
	BatchNumber          string           `json:"batch_number" binding:"max=50"`
	ExpiryDate           *time.Time       `json:"expiry_date"`
}

// UpdateProductRequest represents a partial product update
type UpdateProductRequest struct {
	SKU                  *string          `json:"sku" binding:"omitempty,min=1,max=50,sku"`
	Barcode              *string          `json:"barcode" binding:"omitempty,max=50"`
	Name                 *string          `json:"name" binding:"omitempty,min=1,max=200"`
	GenericName          *string          `json:"generic_name" binding:"omitempty,max=200"`
	Manufacturer         *string          `json:"manufacturer" binding:"omitempty,max=200"`
	Description          *string          `json:"description" binding:"omitempty,max=2000"`
	CategoryID           *uuid.UUID       `json:"category_id"`
	ClearCategory        bool             `json:"clear_category"`
	DosageForm           *string          `json:"dosage_form" binding:"omitempty,oneof=tablet capsule syrup injection cream drops inhaler powder other"`
	Strength             *string          `json:"strength" binding:"omitempty,max=50"`
	Unit                 *string          `json:"unit" binding:"omitempty,min=1,max=20"`
	CostPrice            *decimal.Decimal `json:"cost_price"`
	SellingPrice         *decimal.Decimal `json:"selling_price"`
	ReorderLevel         *int             `json:"reorder_level" binding:"omitempty,min=0"`
	CriticalLevel        *int             `json:"critical_level" binding:"omitempty,min=0"`
	RequiresPrescription *bool            `json:"requires_prescription"`
	BatchNumber          *string          `json:"batch_number" binding:"omitempty,max=50"`
	ExpiryDate           *time.Time       `json:"expiry_date"`
	ClearExpiry          bool             `json:"clear_expiry"`
}

// ProductListFilter represents filter options for the product list
type ProductListFilter struct {
	Search               string     `form:"search"`
	Status               string     `form:"status" binding:"omitempty,oneof=active inactive"`
	CategoryID           *uuid.UUID `form:"-"`
	DosageForm           string     `form:"dosage_form"`
	StockStatus          string     `form:"stock_status" binding:"omitempty,oneof=in_stock low_stock critical out_of_stock"`
	RequiresPrescription *bool      `form:"requires_prescription"`
	ExpiringWithinDays   *int       `form:"expiring_within_days" binding:"omitempty,min=0,max=3650"`
	Deleted              bool       `form:"deleted"`
	Page                 int        `form:"page" binding:"min=0"`
	PageSize             int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy              string     `form:"order_by"`
	OrderDir             string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID                   uuid.UUID            `json:"id"`
	SKU                  string               `json:"sku"`
	Barcode              string               `json:"barcode"`
	Name                 string               `json:"name"`
	GenericName          string               `json:"generic_name"`
	Manufacturer         string               `json:"manufacturer"`
	Description          string               `json:"description"`
	CategoryID           *uuid.UUID           `json:"category_id"`
	DosageForm           string               `json:"dosage_form"`
	Strength             string               `json:"strength"`
	Unit                 string               `json:"unit"`
	CostPrice            decimal.Decimal      `json:"cost_price"`
	SellingPrice         decimal.Decimal      `json:"selling_price"`
	MarginPct            decimal.Decimal      `json:"margin_pct"`
	BelowCost            bool                 `json:"below_cost"`
	StockQuantity        int                  `json:"stock_quantity"`
	ReorderLevel         int                  `json:"reorder_level"`
	CriticalLevel        int                  `json:"critical_level"`
	StockStatus          catalog.StockStatus  `json:"stock_status"`
	RequiresPrescription bool                 `json:"requires_prescription"`
	BatchNumber          string               `json:"batch_number"`
	ExpiryDate           *time.Time           `json:"expiry_date"`
	ExpiryStatus         catalog.ExpiryStatus `json:"expiry_status"`
	HasImage             bool                 `json:"has_image"`
	Status               string               `json:"status"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	DeletedAt            *time.Time           `json:"deleted_at,omitempty"`
	Version              int                  `json:"version"`
}

// ToProductResponse converts a domain product to a response
func ToProductResponse(p *catalog.Product, now time.Time, warnDays int) ProductResponse {
	return ProductResponse{
		ID:                   p.ID,
		SKU:                  p.SKU,
		Barcode:              p.Barcode,
		Name:                 p.Name,
		GenericName:          p.GenericName,
		Manufacturer:         p.Manufacturer,
		Description:          p.Description,
		CategoryID:           p.CategoryID,
		DosageForm:           string(p.DosageForm),
		Strength:             p.Strength,
		Unit:                 p.Unit,
		CostPrice:            p.CostPrice,
		SellingPrice:         p.SellingPrice,
		MarginPct:            p.MarginPercent(),
		BelowCost:            p.IsBelowCost(),
		StockQuantity:        p.StockQuantity,
		ReorderLevel:         p.ReorderLevel,
		CriticalLevel:        p.CriticalLevel,
		StockStatus:          p.StockStatus(),
		RequiresPrescription: p.RequiresPrescription,
		BatchNumber:          p.BatchNumber,
		ExpiryDate:           p.ExpiryDate,
		ExpiryStatus:         p.ExpiryStatus(now, warnDays),
		HasImage:             p.ImageKey != "",
		Status:               string(p.Status),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		DeletedAt:            p.DeletedTime(),
		Version:              p.Version,
	}
}

// AdjustStockRequest changes stock by a signed delta
type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// RestockRequest receives new stock, optionally as a new batch
type RestockRequest struct {
	Quantity    int              `json:"quantity" binding:"required,min=1"`
	BatchNumber string           `json:"batch_number" binding:"max=50"`
	ExpiryDate  *time.Time       `json:"expiry_date"`
	CostPrice   *decimal.Decimal `json:"cost_price"`
	Reference   string           `json:"reference" binding:"max=100"`
}

// StockChangeResponse reports a single stock change
type StockChangeResponse struct {
	Product ProductResponse `json:"product"`
	Before  int             `json:"before"`
	After   int             `json:"after"`
}

// BulkStockItem is one row of a bulk stock update
type BulkStockItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Mode      string    `json:"mode"`
	Reason    string    `json:"reason" binding:"max=500"`
}

// BulkStockUpdateRequest is a validated-then-applied batch of stock changes
type BulkStockUpdateRequest struct {
	Items  []BulkStockItem `json:"items" binding:"required,dive"`
	DryRun bool            `json:"dry_run"`
}

// BulkStockUpdateResponse returns per-row before/after quantities
type BulkStockUpdateResponse struct {
	DryRun  bool                      `json:"dry_run"`
	Applied int                       `json:"applied"`
	Results []catalog.BulkStockResult `json:"results"`
}

// BulkValidationError carries every rejected row of a bulk update
type BulkValidationError struct {
	Rows []catalog.BulkRowError
}

func (e *BulkValidationError) Error() string {
	return "bulk stock update rejected"
}

// MovementListFilter filters the stock ledger of a product
type MovementListFilter struct {
	Type     string     `form:"type" binding:"omitempty,oneof=initial sale void refund restock adjustment bulk_update"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
}

// ImageUploadResponse describes a stored product image
type ImageUploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=1000"`
	Color       string `json:"color" binding:"omitempty,hexcolor"`
}

// UpdateCategoryRequest represents a request to update a category
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Color       *string `json:"color" binding:"omitempty,hexcolor"`
}

// CategoryListFilter represents filter options for the category list
type CategoryListFilter struct {
	Search   string `form:"search"`
	IsActive *bool  `form:"is_active"`
	Deleted  bool   `form:"deleted"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Color        string     `json:"color"`
	IsActive     bool       `json:"is_active"`
	ProductCount int64      `json:"product_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	Version      int        `json:"version"`
}

// ToCategoryResponse converts a domain category to a response
func ToCategoryResponse(c *catalog.Category, productCount int64) CategoryResponse {
	return CategoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		Color:        c.Color,
		IsActive:     c.IsActive,
		ProductCount: productCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DeletedAt:    c.DeletedTime(),
		Version:      c.Version,
	}
}
