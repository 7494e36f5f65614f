package partner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/partner"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) contact(args mock.Arguments) (*partner.Contact, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Contact), args.Error(1)
}

func (m *MockContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Contact, error) {
	return m.contact(m.Called(ctx, id))
}

func (m *MockContactRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*partner.Contact, error) {
	return m.contact(m.Called(ctx, id))
}

func (m *MockContactRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Contact, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Contact), args.Error(1)
}

func (m *MockContactRepository) Save(ctx context.Context, contact *partner.Contact) error {
	return m.Called(ctx, contact).Error(0)
}

func (m *MockContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContactRepository) Restore(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockContactRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockSaleRepository only carries the read methods used for purchase history
type MockSaleRepository struct {
	mock.Mock
	sales.SaleRepository
}

func (m *MockSaleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Sale, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSaleRepository) CustomerStats(ctx context.Context, customerID uuid.UUID) (*sales.CustomerStats, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.CustomerStats), args.Error(1)
}

func TestContactService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer", func(t *testing.T) {
		contacts := new(MockContactRepository)
		svc := NewContactService(contacts, new(MockSaleRepository), nil)
		contacts.On("Save", ctx, mock.AnythingOfType("*partner.Contact")).Return(nil)

		resp, err := svc.Create(ctx, CreateContactRequest{Type: "customer", Name: " Abena Owusu ", Email: "Abena@Example.com"})
		require.NoError(t, err)
		assert.Equal(t, "Abena Owusu", resp.Name)
		assert.Equal(t, "abena@example.com", resp.Email)
		assert.True(t, resp.IsActive)
	})

	t.Run("prescribers need a license", func(t *testing.T) {
		contacts := new(MockContactRepository)
		svc := NewContactService(contacts, new(MockSaleRepository), nil)

		_, err := svc.Create(ctx, CreateContactRequest{Type: "prescriber", Name: "Dr. Boateng"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "LICENSE_REQUIRED", de.Code)
		contacts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestContactService_Update(t *testing.T) {
	ctx := context.Background()
	contacts := new(MockContactRepository)
	svc := NewContactService(contacts, new(MockSaleRepository), nil)

	c, err := partner.NewContact(partner.ContactTypeSupplier, partner.ContactDetails{Name: "MedSupply", Phone: "0201234567"})
	require.NoError(t, err)
	contacts.On("FindByID", ctx, c.ID).Return(c, nil)
	contacts.On("Save", ctx, c).Return(nil)

	company := "MedSupply Ghana Ltd"
	resp, err := svc.Update(ctx, c.ID, UpdateContactRequest{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "MedSupply Ghana Ltd", resp.Company)
	assert.Equal(t, "0201234567", resp.Phone)
}

func TestContactService_List(t *testing.T) {
	ctx := context.Background()
	contacts := new(MockContactRepository)
	svc := NewContactService(contacts, new(MockSaleRepository), nil)

	active := true
	contacts.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["type"] == "customer" && f.Filters["is_active"] == true && f.PageSize == 20
	})).Return([]partner.Contact{}, nil)
	contacts.On("Count", ctx, mock.Anything).Return(int64(0), nil)

	out, total, err := svc.List(ctx, ContactListFilter{Type: "customer", IsActive: &active})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, int64(0), total)
	contacts.AssertExpectations(t)
}

func TestContactService_Restore(t *testing.T) {
	ctx := context.Background()
	contacts := new(MockContactRepository)
	svc := NewContactService(contacts, new(MockSaleRepository), nil)

	c, _ := partner.NewContact(partner.ContactTypeCustomer, partner.ContactDetails{Name: "Yaw"})
	contacts.On("FindByIDUnscoped", ctx, c.ID).Return(c, nil)

	_, err := svc.Restore(ctx, c.ID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_DELETED", de.Code)
}

func TestContactService_PurchaseHistoryAndStats(t *testing.T) {
	ctx := context.Background()
	contacts := new(MockContactRepository)
	saleRepo := new(MockSaleRepository)
	svc := NewContactService(contacts, saleRepo, nil)

	customer, _ := partner.NewContact(partner.ContactTypeCustomer, partner.ContactDetails{Name: "Esi"})
	contacts.On("FindByIDUnscoped", ctx, customer.ID).Return(customer, nil)

	sale, err := sales.NewSale(uuid.New(), "Ama", sales.PaymentCard)
	require.NoError(t, err)
	sale.ReceiptNumber = "RCP-1"
	sale.Status = sales.SaleStatusCompleted
	sale.TotalAmount = decimal.NewFromInt(45)

	saleRepo.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Filters["customer_id"] == customer.ID && f.OrderDir == "desc"
	})).Return([]sales.Sale{*sale}, nil)
	saleRepo.On("Count", ctx, mock.Anything).Return(int64(1), nil)

	history, total, err := svc.PurchaseHistory(ctx, customer.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, history, 1)
	assert.Equal(t, "RCP-1", history[0].ReceiptNumber)

	last := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	saleRepo.On("CustomerStats", ctx, customer.ID).Return(&sales.CustomerStats{
		SaleCount: 3, TotalSpent: decimal.NewFromInt(100), LastPurchase: &last,
	}, nil)

	stats, err := svc.CustomerStats(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Visits)
	assert.True(t, stats.AverageBasket.Equal(decimal.RequireFromString("33.33")))
	assert.Equal(t, &last, stats.LastPurchaseAt)
}

func TestContactService_StatsRejectSuppliers(t *testing.T) {
	ctx := context.Background()
	contacts := new(MockContactRepository)
	svc := NewContactService(contacts, new(MockSaleRepository), nil)

	supplier, _ := partner.NewContact(partner.ContactTypeSupplier, partner.ContactDetails{Name: "Wholesale"})
	contacts.On("FindByIDUnscoped", ctx, supplier.ID).Return(supplier, nil)

	_, err := svc.CustomerStats(ctx, supplier.ID)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_A_CUSTOMER", de.Code)
}
