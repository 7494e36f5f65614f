package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/partner"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type saleFixture struct {
	sales     *MockSaleRepository
	products  *MockProductRepository
	movements *MockMovementRepository
	contacts  *MockContactRepository
	events    *MockEventPublisher
	service   *SaleService
	now       time.Time
}

func newSaleFixture() *saleFixture {
	f := &saleFixture{
		sales:     new(MockSaleRepository),
		products:  new(MockProductRepository),
		movements: new(MockMovementRepository),
		contacts:  new(MockContactRepository),
		events:    new(MockEventPublisher),
		now:       time.Date(2026, 5, 12, 10, 30, 0, 0, time.UTC),
	}
	f.service = NewSaleService(
		f.sales, f.contacts,
		NewNoOpTransactionScope(f.products, f.movements, f.sales),
		f.events,
		SaleServiceConfig{
			TaxRate:       decimal.RequireFromString("0.10"),
			Currency:      "USD",
			VoidWindow:    30 * time.Minute,
			ReceiptPrefix: "RCP",
		},
		nil,
	)
	f.service.now = func() time.Time { return f.now }
	return f
}

func sellable(t *testing.T, sku string, price, cost int64, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku, "box")
	require.NoError(t, err)
	require.NoError(t, p.SetPrices(decimal.NewFromInt(cost), decimal.NewFromInt(price)))
	require.NoError(t, p.SetStockLevels(5, 2))
	p.StockQuantity = stock
	p.ClearDomainEvents()
	return p
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestSaleService_Checkout(t *testing.T) {
	ctx := context.Background()
	cashier := Cashier{ID: uuid.New(), Name: "Ama"}

	t.Run("completes cash sale and deducts stock", func(t *testing.T) {
		f := newSaleFixture()
		a := sellable(t, "AAA-1", 8, 5, 10)
		b := sellable(t, "BBB-1", 5, 3, 4)
		f.products.On("FindByIDForUpdate", ctx, a.ID).Return(a, nil)
		f.products.On("FindByIDForUpdate", ctx, b.ID).Return(b, nil)
		f.products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Twice()
		f.movements.On("SaveBatch", ctx, mock.MatchedBy(func(ms []*catalog.StockMovement) bool {
			return len(ms) == 2 && ms[0].Type == catalog.MovementSale && ms[0].QuantityChange == -2 && ms[1].QuantityChange == -1
		})).Return(nil)
		f.sales.On("Create", ctx, mock.AnythingOfType("*sales.Sale")).Return(nil)
		f.events.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 3 && events[0].EventType() == sales.EventTypeSaleCompleted
		})).Return(nil)

		paid := decimal.NewFromInt(30)
		resp, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items: []CheckoutItemRequest{
				{ProductID: a.ID, Quantity: 2},
				{ProductID: b.ID, Quantity: 1},
			},
			PaymentMethod: "cash",
			AmountPaid:    &paid,
			CustomerName:  "Walk-in",
		})
		require.NoError(t, err)

		assert.Equal(t, "completed", resp.Status)
		assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(21)))
		assert.True(t, resp.TaxAmount.Equal(decimal.RequireFromString("2.10")), resp.TaxAmount.String())
		assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("23.10")), resp.TotalAmount.String())
		assert.True(t, resp.ChangeDue.Equal(decimal.RequireFromString("6.90")), resp.ChangeDue.String())
		assert.Equal(t, 3, resp.ItemCount)
		assert.Regexp(t, `^RCP-20260512-[0-9A-F]{6}$`, resp.ReceiptNumber)
		assert.Equal(t, "AAA-1", resp.Items[0].SKU)
		assert.Equal(t, 8, a.StockQuantity)
		assert.Equal(t, 3, b.StockQuantity)
		f.sales.AssertExpectations(t)
		f.movements.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("insufficient stock writes nothing", func(t *testing.T) {
		f := newSaleFixture()
		a := sellable(t, "LOW-1", 8, 5, 1)
		f.products.On("FindByIDForUpdate", ctx, a.ID).Return(a, nil)

		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: a.ID, Quantity: 3}},
			PaymentMethod: "card",
		})
		assert.Equal(t, "INSUFFICIENT_STOCK", domainCode(t, err))
		assert.Equal(t, 1, a.StockQuantity)
		f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		f.sales.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("rejects duplicate lines before touching storage", func(t *testing.T) {
		f := newSaleFixture()
		id := uuid.New()
		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: id, Quantity: 1}, {ProductID: id, Quantity: 2}},
			PaymentMethod: "card",
		})
		assert.Equal(t, "DUPLICATE_ITEM", domainCode(t, err))
		f.products.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything)
	})

	t.Run("prescription items need a reference", func(t *testing.T) {
		f := newSaleFixture()
		rx := sellable(t, "RX-1", 20, 12, 5)
		require.NoError(t, rx.SetPharmacology(catalog.DosageFormTablet, "250mg", true))
		f.products.On("FindByIDForUpdate", ctx, rx.ID).Return(rx, nil)

		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: rx.ID, Quantity: 1}},
			PaymentMethod: "insurance",
		})
		assert.Equal(t, "PRESCRIPTION_REQUIRED", domainCode(t, err))
		f.sales.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("expired products cannot be sold", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "EXP-1", 4, 2, 9)
		past := f.now.AddDate(0, 0, -2)
		require.NoError(t, p.SetBatch("B1", &past))
		f.products.On("FindByIDForUpdate", ctx, p.ID).Return(p, nil)

		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: "card",
		})
		assert.Equal(t, "PRODUCT_EXPIRED", domainCode(t, err))
	})

	t.Run("cash must cover the total", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "CSH-1", 10, 6, 9)
		f.products.On("FindByIDForUpdate", ctx, p.ID).Return(p, nil)

		paid := decimal.NewFromInt(10)
		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: "cash",
			AmountPaid:    &paid,
		})
		assert.Equal(t, "INSUFFICIENT_PAYMENT", domainCode(t, err))
		assert.Equal(t, 9, p.StockQuantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newSaleFixture()
		id := uuid.New()
		f.products.On("FindByIDForUpdate", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: id, Quantity: 1}},
			PaymentMethod: "card",
		})
		assert.Equal(t, "PRODUCT_NOT_FOUND", domainCode(t, err))
	})

	t.Run("links a registered customer", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "CUS-1", 10, 6, 9)
		customer, err := partner.NewContact(partner.ContactTypeCustomer, partner.ContactDetails{Name: "Kofi Mensah"})
		require.NoError(t, err)
		f.contacts.On("FindByID", ctx, customer.ID).Return(customer, nil)
		f.products.On("FindByIDForUpdate", ctx, p.ID).Return(p, nil)
		f.products.On("Save", ctx, p).Return(nil)
		f.movements.On("SaveBatch", ctx, mock.Anything).Return(nil)
		f.sales.On("Create", ctx, mock.Anything).Return(nil)
		f.events.On("Publish", ctx, mock.Anything).Return(nil)

		resp, err := f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: 1}},
			PaymentMethod: "mobile_money",
			CustomerID:    &customer.ID,
			CustomerName:  "ignored",
		})
		require.NoError(t, err)
		assert.Equal(t, "Kofi Mensah", resp.CustomerName)
		assert.Equal(t, customer.ID, *resp.CustomerID)
	})

	t.Run("suppliers are not customers", func(t *testing.T) {
		f := newSaleFixture()
		supplier, err := partner.NewContact(partner.ContactTypeSupplier, partner.ContactDetails{Name: "MedSupply Ltd"})
		require.NoError(t, err)
		f.contacts.On("FindByID", ctx, supplier.ID).Return(supplier, nil)

		_, err = f.service.Checkout(ctx, cashier, CheckoutRequest{
			Items:         []CheckoutItemRequest{{ProductID: uuid.New(), Quantity: 1}},
			PaymentMethod: "card",
			CustomerID:    &supplier.ID,
		})
		assert.Equal(t, "INVALID_CUSTOMER", domainCode(t, err))
	})
}

func completedSale(t *testing.T, createdAt time.Time, products ...*catalog.Product) *sales.Sale {
	t.Helper()
	sale, err := sales.NewSale(uuid.New(), "Ama", sales.PaymentCard)
	require.NoError(t, err)
	for _, p := range products {
		require.NoError(t, sale.AddItem(sales.ItemInput{
			ProductID:   p.ID,
			ProductName: p.Name,
			SKU:         p.SKU,
			Quantity:    2,
			UnitPrice:   p.SellingPrice,
			UnitCost:    p.CostPrice,
		}))
	}
	require.NoError(t, sale.Complete("RCP-20260512-ABCDEF", decimal.Zero, decimal.Zero, ""))
	sale.CreatedAt = createdAt
	sale.ClearDomainEvents()
	return sale
}

func TestSaleService_Void(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("restores stock within the window", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "VOID-1", 10, 6, 3)
		sale := completedSale(t, f.now.Add(-10*time.Minute), p)

		f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
		f.products.On("FindByIDForUpdateUnscoped", ctx, p.ID).Return(p, nil)
		f.products.On("Save", ctx, p).Return(nil)
		f.movements.On("SaveBatch", ctx, mock.MatchedBy(func(ms []*catalog.StockMovement) bool {
			return len(ms) == 1 && ms[0].Type == catalog.MovementVoid && ms[0].QuantityAfter == 5 && ms[0].Note == "wrong item"
		})).Return(nil)
		f.sales.On("UpdateStatus", ctx, sale).Return(nil)
		f.events.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return events[0].EventType() == sales.EventTypeSaleVoided
		})).Return(nil)

		resp, err := f.service.Void(ctx, actor, sale.ID, ReverseSaleRequest{Reason: "wrong item"})
		require.NoError(t, err)
		assert.Equal(t, "voided", resp.Status)
		assert.Equal(t, 5, p.StockQuantity)
		f.movements.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("refuses after the window", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "VOID-2", 10, 6, 3)
		sale := completedSale(t, f.now.Add(-2*time.Hour), p)
		f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)

		_, err := f.service.Void(ctx, actor, sale.ID, ReverseSaleRequest{Reason: "late"})
		assert.Equal(t, "VOID_WINDOW_EXPIRED", domainCode(t, err))
		f.sales.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("restocks products soft-deleted since the sale", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "DEL-1", 10, 6, 4)
		p.DeletedAt = gorm.DeletedAt{Time: f.now.Add(-time.Minute), Valid: true}
		sale := completedSale(t, f.now.Add(-5*time.Minute), p)

		f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
		f.products.On("FindByIDForUpdateUnscoped", ctx, p.ID).Return(p, nil)
		f.products.On("Save", ctx, p).Return(nil)
		f.movements.On("SaveBatch", ctx, mock.MatchedBy(func(ms []*catalog.StockMovement) bool {
			return len(ms) == 1 && ms[0].ProductID == p.ID &&
				ms[0].QuantityBefore == 4 && ms[0].QuantityAfter == 6
		})).Return(nil)
		f.sales.On("UpdateStatus", ctx, sale).Return(nil)
		f.events.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := f.service.Void(ctx, actor, sale.ID, ReverseSaleRequest{Reason: "scanned twice"})
		require.NoError(t, err)
		assert.Equal(t, 6, p.StockQuantity)
		assert.True(t, p.IsDeleted())
		f.products.AssertCalled(t, "Save", ctx, p)
		f.movements.AssertExpectations(t)
	})

	t.Run("skips products purged since the sale", func(t *testing.T) {
		f := newSaleFixture()
		p := sellable(t, "GONE-1", 10, 6, 3)
		sale := completedSale(t, f.now.Add(-5*time.Minute), p)
		f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
		f.products.On("FindByIDForUpdateUnscoped", ctx, p.ID).Return(nil, shared.ErrNotFound)
		f.sales.On("UpdateStatus", ctx, sale).Return(nil)
		f.events.On("Publish", ctx, mock.Anything).Return(nil)

		_, err := f.service.Void(ctx, actor, sale.ID, ReverseSaleRequest{Reason: "customer left"})
		require.NoError(t, err)
		f.movements.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})
}

func TestSaleService_Refund(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture()
	p := sellable(t, "REF-1", 10, 6, 0)
	sale := completedSale(t, f.now.AddDate(0, 0, -3), p)

	f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
	f.products.On("FindByIDForUpdateUnscoped", ctx, p.ID).Return(p, nil)
	f.products.On("Save", ctx, p).Return(nil)
	f.movements.On("SaveBatch", ctx, mock.Anything).Return(nil)
	f.sales.On("UpdateStatus", ctx, sale).Return(nil)
	f.events.On("Publish", ctx, mock.Anything).Return(nil)

	resp, err := f.service.Refund(ctx, uuid.New(), sale.ID, ReverseSaleRequest{Reason: "adverse reaction"})
	require.NoError(t, err)
	assert.Equal(t, "refunded", resp.Status)
	assert.Equal(t, "adverse reaction", resp.RefundReason)
	assert.Equal(t, 2, p.StockQuantity)

	f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
	_, err = f.service.Refund(ctx, uuid.New(), sale.ID, ReverseSaleRequest{Reason: "again"})
	assert.Equal(t, "INVALID_STATE", domainCode(t, err))
}

func TestSaleService_TodaySummary(t *testing.T) {
	ctx := context.Background()
	f := newSaleFixture()
	p := sellable(t, "SUM-1", 10, 6, 50)

	mine := completedSale(t, f.now, p)
	other := completedSale(t, f.now, p)
	voided := completedSale(t, f.now, p)
	voided.Status = sales.SaleStatusVoided

	f.sales.On("FindInRange", ctx, shared.DayRange(f.now, time.UTC)).
		Return([]sales.Sale{*mine, *other, *voided}, nil)

	resp, err := f.service.TodaySummary(ctx, mine.CashierID)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-12", resp.Date)
	assert.Equal(t, 2, resp.Transactions)
	assert.True(t, resp.Revenue.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 1, resp.VoidCount)
	assert.Equal(t, 1, resp.MyTransactions)
	assert.True(t, resp.MyRevenue.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "USD", resp.Currency)
}

func TestSaleService_Receipt(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		f := newSaleFixture()
		_, err := f.service.Receipt(ctx, uuid.New(), ReceiptHTML)
		assert.Equal(t, "RECEIPT_UNAVAILABLE", domainCode(t, err))
	})

	t.Run("renders pdf through the renderer", func(t *testing.T) {
		f := newSaleFixture()
		renderer := new(MockReceiptRenderer)
		f.service.SetReceiptRenderer(renderer)
		p := sellable(t, "PDF-1", 10, 6, 50)
		sale := completedSale(t, f.now, p)

		f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
		renderer.On("RenderPDF", ctx, mock.MatchedBy(func(d *ReceiptData) bool {
			return d.Sale.ReceiptNumber == sale.ReceiptNumber && d.Currency == "USD"
		})).Return([]byte("%PDF"), nil)

		out, err := f.service.Receipt(ctx, sale.ID, ReceiptPDF)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF"), out)
		renderer.AssertNotCalled(t, "RenderHTML", mock.Anything, mock.Anything)
	})
}
