package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/partner"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ContactService handles customers, suppliers and prescribers
type ContactService struct {
	contactRepo partner.ContactRepository
	saleRepo    sales.SaleRepository
	logger      *zap.Logger
}

// NewContactService creates a new ContactService
func NewContactService(contactRepo partner.ContactRepository, saleRepo sales.SaleRepository, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{contactRepo: contactRepo, saleRepo: saleRepo, logger: logger}
}

// Create creates a new contact
func (s *ContactService) Create(ctx context.Context, req CreateContactRequest) (*ContactResponse, error) {
	contact, err := partner.NewContact(partner.ContactType(req.Type), partner.ContactDetails{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Company:       req.Company,
		LicenseNumber: req.LicenseNumber,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	s.logger.Info("Contact created", zap.String("contact_id", contact.ID.String()), zap.String("type", req.Type))

	resp := ToContactResponse(contact)
	return &resp, nil
}

// GetByID retrieves a contact by ID
func (s *ContactService) GetByID(ctx context.Context, id uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToContactResponse(contact)
	return &resp, nil
}

// List retrieves a page of contacts
func (s *ContactService) List(ctx context.Context, filter ContactListFilter) ([]ContactResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "name"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "asc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.IsActive != nil {
		domainFilter.Filters["is_active"] = *filter.IsActive
	}
	if filter.Deleted {
		domainFilter.Filters["deleted"] = true
	}

	contacts, err := s.contactRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.contactRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ContactResponse, len(contacts))
	for i := range contacts {
		out[i] = ToContactResponse(&contacts[i])
	}
	return out, total, nil
}

// Update applies a partial update to a contact
func (s *ContactService) Update(ctx context.Context, id uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	details := partner.ContactDetails{
		Name:          contact.Name,
		Phone:         contact.Phone,
		Email:         contact.Email,
		Address:       contact.Address,
		Company:       contact.Company,
		LicenseNumber: contact.LicenseNumber,
		Notes:         contact.Notes,
	}
	if req.Name != nil {
		details.Name = *req.Name
	}
	if req.Phone != nil {
		details.Phone = *req.Phone
	}
	if req.Email != nil {
		details.Email = *req.Email
	}
	if req.Address != nil {
		details.Address = *req.Address
	}
	if req.Company != nil {
		details.Company = *req.Company
	}
	if req.LicenseNumber != nil {
		details.LicenseNumber = *req.LicenseNumber
	}
	if req.Notes != nil {
		details.Notes = *req.Notes
	}
	if err := contact.Update(details); err != nil {
		return nil, err
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}

	resp := ToContactResponse(contact)
	return &resp, nil
}

// Activate marks a contact as active
func (s *ContactService) Activate(ctx context.Context, id uuid.UUID) (*ContactResponse, error) {
	return s.changeStatus(ctx, id, (*partner.Contact).Activate)
}

// Deactivate marks a contact as inactive
func (s *ContactService) Deactivate(ctx context.Context, id uuid.UUID) (*ContactResponse, error) {
	return s.changeStatus(ctx, id, (*partner.Contact).Deactivate)
}

func (s *ContactService) changeStatus(ctx context.Context, id uuid.UUID, change func(*partner.Contact) error) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(contact); err != nil {
		return nil, err
	}
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	resp := ToContactResponse(contact)
	return &resp, nil
}

// Delete soft-deletes a contact. Past sales keep their customer snapshot.
func (s *ContactService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.contactRepo.Delete(ctx, id)
}

// Restore brings back a soft-deleted contact
func (s *ContactService) Restore(ctx context.Context, id uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contact.IsDeleted() {
		return nil, shared.NewDomainError("NOT_DELETED", "Contact is not deleted")
	}
	if err := s.contactRepo.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// PurchaseHistory lists a customer's sales, newest first
func (s *ContactService) PurchaseHistory(ctx context.Context, id uuid.UUID, page, pageSize int) ([]PurchaseResponse, int64, error) {
	if _, err := s.customer(ctx, id); err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	filter := shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  map[string]interface{}{"customer_id": id},
	}

	list, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.saleRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PurchaseResponse, len(list))
	for i, sale := range list {
		out[i] = PurchaseResponse{
			SaleID:        sale.ID,
			ReceiptNumber: sale.ReceiptNumber,
			Status:        string(sale.Status),
			PaymentMethod: string(sale.PaymentMethod),
			TotalAmount:   sale.TotalAmount,
			CreatedAt:     sale.CreatedAt,
		}
	}
	return out, total, nil
}

// CustomerStats reports lifetime spend, visit count and the last purchase of a customer
func (s *ContactService) CustomerStats(ctx context.Context, id uuid.UUID) (*CustomerStatsResponse, error) {
	contact, err := s.customer(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.saleRepo.CustomerStats(ctx, contact.ID)
	if err != nil {
		return nil, err
	}

	resp := &CustomerStatsResponse{
		ContactID:      contact.ID,
		Visits:         stats.SaleCount,
		LifetimeTotal:  stats.TotalSpent,
		AverageBasket:  decimal.Zero,
		LastPurchaseAt: stats.LastPurchase,
	}
	if stats.SaleCount > 0 {
		resp.AverageBasket = stats.TotalSpent.Div(decimal.NewFromInt(stats.SaleCount)).Round(2)
	}
	return resp, nil
}

func (s *ContactService) customer(ctx context.Context, id uuid.UUID) (*partner.Contact, error) {
	contact, err := s.contactRepo.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, err
	}
	if !contact.IsCustomer() {
		return nil, shared.NewDomainError("NOT_A_CUSTOMER", "Purchase history is only kept for customers")
	}
	return contact, nil
}
