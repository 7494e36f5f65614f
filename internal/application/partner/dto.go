package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// CreateContactRequest represents a request to create a contact
type CreateContactRequest struct {
	Type          string `json:"type" binding:"required,oneof=customer supplier prescriber"`
	Name          string `json:"name" binding:"required,min=1,max=200"`
	Phone         string `json:"phone" binding:"max=50"`
	Email         string `json:"email" binding:"omitempty,email,max=200"`
	Address       string `json:"address" binding:"max=1000"`
	Company       string `json:"company" binding:"max=200"`
	LicenseNumber string `json:"license_number" binding:"max=100"`
	Notes         string `json:"notes" binding:"max=2000"`
}

// UpdateContactRequest represents a partial contact update
type UpdateContactRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone         *string `json:"phone" binding:"omitempty,max=50"`
	Email         *string `json:"email" binding:"omitempty,max=200"`
	Address       *string `json:"address" binding:"omitempty,max=1000"`
	Company       *string `json:"company" binding:"omitempty,max=200"`
	LicenseNumber *string `json:"license_number" binding:"omitempty,max=100"`
	Notes         *string `json:"notes" binding:"omitempty,max=2000"`
}

// ContactListFilter represents filter options for the contact list
type ContactListFilter struct {
	Search   string `form:"search"`
	Type     string `form:"type" binding:"omitempty,oneof=customer supplier prescriber"`
	IsActive *bool  `form:"is_active"`
	Deleted  bool   `form:"deleted"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	Address       string     `json:"address"`
	Company       string     `json:"company"`
	LicenseNumber string     `json:"license_number,omitempty"`
	Notes         string     `json:"notes"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	Version       int        `json:"version"`
}

// ToContactResponse converts a domain contact to a response
func ToContactResponse(c *partner.Contact) ContactResponse {
	return ContactResponse{
		ID:            c.ID,
		Type:          string(c.Type),
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		Address:       c.Address,
		Company:       c.Company,
		LicenseNumber: c.LicenseNumber,
		Notes:         c.Notes,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
		DeletedAt:     c.DeletedTime(),
		Version:       c.Version,
	}
}

// PurchaseResponse is one sale in a customer's purchase history
type PurchaseResponse struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CustomerStatsResponse summarises a customer's lifetime purchases
type CustomerStatsResponse struct {
	ContactID      uuid.UUID       `json:"contact_id"`
	Visits         int64           `json:"visits"`
	LifetimeTotal  decimal.Decimal `json:"lifetime_total"`
	AverageBasket  decimal.Decimal `json:"average_basket"`
	LastPurchaseAt *time.Time      `json:"last_purchase_at,omitempty"`
}
