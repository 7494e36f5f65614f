package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/analytics"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/partner"
	"github.com/pharmapos/backend/internal/domain/sales"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleServiceConfig holds the point-of-sale settings
type SaleServiceConfig struct {
	TaxRate       decimal.Decimal
	Currency      string
	VoidWindow    time.Duration
	ReceiptPrefix string
	Store         StoreInfo
	Location      *time.Location
}

// ReceiptRenderer turns a sale into a printable receipt
type ReceiptRenderer interface {
	RenderHTML(ctx context.Context, data *ReceiptData) ([]byte, error)
	RenderPDF(ctx context.Context, data *ReceiptData) ([]byte, error)
}

// ReceiptFormat selects the receipt output
type ReceiptFormat string

const (
	ReceiptHTML ReceiptFormat = "html"
	ReceiptPDF  ReceiptFormat = "pdf"
)

// SaleService handles checkout and the sale lifecycle
type SaleService struct {
	saleRepo    sales.SaleRepository
	contactRepo partner.ContactRepository
	txScope     TransactionScope
	events      shared.EventPublisher
	receipts    ReceiptRenderer
	config      SaleServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewSaleService creates a new SaleService
func NewSaleService(
	saleRepo sales.SaleRepository,
	contactRepo partner.ContactRepository,
	txScope TransactionScope,
	events shared.EventPublisher,
	config SaleServiceConfig,
	logger *zap.Logger,
) *SaleService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{
		saleRepo:    saleRepo,
		contactRepo: contactRepo,
		txScope:     txScope,
		events:      events,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SetReceiptRenderer enables receipt rendering
func (s *SaleService) SetReceiptRenderer(r ReceiptRenderer) {
	s.receipts = r
}

// Checkout validates the cart, deducts stock and stores a completed sale atomically.
// Products are locked in id order so concurrent checkouts cannot deadlock.
func (s *SaleService) Checkout(ctx context.Context, cashier Cashier, req CheckoutRequest) (*SaleResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_SALE", "A sale must have at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, shared.NewDomainError("DUPLICATE_ITEM", fmt.Sprintf("Product %s appears more than once", item.ProductID))
		}
		seen[item.ProductID] = struct{}{}
	}

	sale, err := sales.NewSale(cashier.ID, cashier.Name, sales.PaymentMethod(req.PaymentMethod))
	if err != nil {
		return nil, err
	}
	customerID, customerName, err := s.resolveCustomer(ctx, req.CustomerID, req.CustomerName)
	if err != nil {
		return nil, err
	}
	sale.SetCustomer(customerID, customerName)
	sale.SetNotes(req.Notes)
	if req.DiscountPercent != nil && req.DiscountPercent.IsPositive() {
		if err := sale.SetDiscountPercent(*req.DiscountPercent); err != nil {
			return nil, err
		}
	} else if req.DiscountAmount != nil {
		if err := sale.SetDiscountAmount(*req.DiscountAmount); err != nil {
			return nil, err
		}
	}
	amountPaid := decimal.Zero
	if req.AmountPaid != nil {
		amountPaid = *req.AmountPaid
	}

	lockOrder := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		lockOrder = append(lockOrder, item.ProductID)
	}
	sort.Slice(lockOrder, func(i, j int) bool {
		return bytes.Compare(lockOrder[i][:], lockOrder[j][:]) < 0
	})

	now := s.now()
	var touched []*catalog.Product
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		products := make(map[uuid.UUID]*catalog.Product, len(lockOrder))
		for _, id := range lockOrder {
			product, err := repos.ProductRepo().FindByIDForUpdate(ctx, id)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %s not found", id))
				}
				return err
			}
			if err := product.CanBeSold(now.In(s.config.Location)); err != nil {
				return err
			}
			products[id] = product
		}

		for _, item := range req.Items {
			product := products[item.ProductID]
			if product.StockQuantity < item.Quantity {
				return shared.NewDomainError("INSUFFICIENT_STOCK",
					fmt.Sprintf("Insufficient stock for %s: available %d, requested %d", product.Name, product.StockQuantity, item.Quantity))
			}
			discount := decimal.Zero
			if item.Discount != nil {
				discount = *item.Discount
			}
			if err := sale.AddItem(sales.ItemInput{
				ProductID:            product.ID,
				ProductName:          product.Name,
				SKU:                  product.SKU,
				CategoryID:           product.CategoryID,
				Quantity:             item.Quantity,
				UnitPrice:            product.SellingPrice,
				UnitCost:             product.CostPrice,
				Discount:             discount,
				RequiresPrescription: product.RequiresPrescription,
			}); err != nil {
				return err
			}
		}

		receipt := sales.GenerateReceiptNumber(s.config.ReceiptPrefix, now.In(s.config.Location))
		if err := sale.Complete(receipt, s.config.TaxRate, amountPaid, req.PrescriptionRef); err != nil {
			return err
		}

		movements := make([]*catalog.StockMovement, 0, len(sale.Items))
		for _, item := range sale.Items {
			product := products[item.ProductID]
			before, after, err := product.DeductStock(item.Quantity, catalog.MovementSale)
			if err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
			movements = append(movements, catalog.NewStockMovement(
				product.ID, catalog.MovementSale, before, after, sale.ReceiptNumber, "", &cashier.ID))
			touched = append(touched, product)
		}
		if err := repos.MovementRepo().SaveBatch(ctx, movements); err != nil {
			return err
		}
		return repos.SaleRepo().Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	aggregates := make([]shared.AggregateRoot, 0, len(touched)+1)
	aggregates = append(aggregates, sale)
	for _, p := range touched {
		aggregates = append(aggregates, p)
	}
	s.publish(ctx, aggregates...)

	s.logger.Info("Sale completed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
		zap.Int("items", sale.ItemCount()),
		zap.String("cashier_id", cashier.ID.String()))

	resp := ToSaleResponse(sale)
	return &resp, nil
}

// Void cancels a sale within the void window and returns its stock
func (s *SaleService) Void(ctx context.Context, actorID, id uuid.UUID, req ReverseSaleRequest) (*SaleResponse, error) {
	return s.reverse(ctx, actorID, id, catalog.MovementVoid, req.Reason, func(sale *sales.Sale, now time.Time) error {
		return sale.Void(actorID, req.Reason, now, s.config.VoidWindow)
	})
}

// Refund reverses a completed sale as a customer return and restocks every line
func (s *SaleService) Refund(ctx context.Context, actorID, id uuid.UUID, req ReverseSaleRequest) (*SaleResponse, error) {
	return s.reverse(ctx, actorID, id, catalog.MovementRefund, req.Reason, func(sale *sales.Sale, now time.Time) error {
		return sale.Refund(actorID, req.Reason, now)
	})
}

func (s *SaleService) reverse(ctx context.Context, actorID, id uuid.UUID, movementType catalog.MovementType, reason string, apply func(*sales.Sale, time.Time) error) (*SaleResponse, error) {
	var (
		sale    *sales.Sale
		touched []*catalog.Product
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sale, err = repos.SaleRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(sale, s.now()); err != nil {
			return err
		}

		movements := make([]*catalog.StockMovement, 0, len(sale.Items))
		for _, item := range sale.Items {
			// Stock sold from a product deleted since the sale still goes back on its row.
			product, err := repos.ProductRepo().FindByIDForUpdateUnscoped(ctx, item.ProductID)
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("Skipping restock of purged product",
					zap.String("sale_id", sale.ID.String()),
					zap.String("product_id", item.ProductID.String()))
				continue
			}
			if err != nil {
				return err
			}
			before, after, err := product.RestoreStock(item.Quantity, movementType)
			if err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
			movements = append(movements, catalog.NewStockMovement(
				product.ID, movementType, before, after, sale.ReceiptNumber, reason, &actorID))
			touched = append(touched, product)
		}
		if len(movements) > 0 {
			if err := repos.MovementRepo().SaveBatch(ctx, movements); err != nil {
				return err
			}
		}
		return repos.SaleRepo().UpdateStatus(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	aggregates := make([]shared.AggregateRoot, 0, len(touched)+1)
	aggregates = append(aggregates, sale)
	for _, p := range touched {
		aggregates = append(aggregates, p)
	}
	s.publish(ctx, aggregates...)

	s.logger.Info("Sale reversed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("status", string(sale.Status)),
		zap.String("user_id", actorID.String()))

	resp := ToSaleResponse(sale)
	return &resp, nil
}

// GetByID retrieves a sale with its items
func (s *SaleService) GetByID(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// GetByReceiptNumber retrieves a sale by its receipt number
func (s *SaleService) GetByReceiptNumber(ctx context.Context, receiptNumber string) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByReceiptNumber(ctx, receiptNumber)
	if err != nil {
		return nil, err
	}
	resp := ToSaleResponse(sale)
	return &resp, nil
}

// List retrieves a page of sales, newest first by default
func (s *SaleService) List(ctx context.Context, filter SaleListFilter) ([]SaleResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.PaymentMethod != "" {
		domainFilter.Filters["payment_method"] = filter.PaymentMethod
	}
	if filter.CashierID != nil {
		domainFilter.Filters["cashier_id"] = *filter.CashierID
	}
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.From != nil {
		domainFilter.Filters["from"] = shared.StartOfDay(*filter.From, s.config.Location)
	}
	if filter.To != nil {
		domainFilter.Filters["to"] = shared.StartOfDay(*filter.To, s.config.Location).AddDate(0, 0, 1)
	}

	list, err := s.saleRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.saleRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]SaleResponse, len(list))
	for i := range list {
		out[i] = ToSaleResponse(&list[i])
	}
	return out, total, nil
}

// TodaySummary reports the current business day for the register, with the cashier's own share
func (s *SaleService) TodaySummary(ctx context.Context, cashierID uuid.UUID) (*TodaySummaryResponse, error) {
	now := s.now()
	day := shared.DayRange(now, s.config.Location)
	list, err := s.saleRepo.FindInRange(ctx, day)
	if err != nil {
		return nil, err
	}

	summary := analytics.Summarize(list)
	resp := &TodaySummaryResponse{
		Date:               day.Start.Format("2006-01-02"),
		Transactions:       summary.Transactions,
		Revenue:            summary.TotalCollected,
		ItemsSold:          summary.ItemsSold,
		AverageTransaction: summary.AverageTransaction,
		VoidCount:          summary.VoidCount,
		RefundCount:        summary.RefundCount,
		MyRevenue:          decimal.Zero,
		Currency:           s.config.Currency,
	}
	for i := range list {
		if list[i].IsCompleted() && list[i].CashierID == cashierID {
			resp.MyTransactions++
			resp.MyRevenue = resp.MyRevenue.Add(list[i].TotalAmount)
		}
	}
	return resp, nil
}

// Receipt renders the receipt of a sale as HTML or PDF
func (s *SaleService) Receipt(ctx context.Context, id uuid.UUID, format ReceiptFormat) ([]byte, error) {
	if s.receipts == nil {
		return nil, shared.NewDomainError("RECEIPT_UNAVAILABLE", "Receipt rendering is not configured")
	}
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	data := &ReceiptData{
		Store:    s.config.Store,
		Sale:     ToSaleResponse(sale),
		Currency: s.config.Currency,
		Location: s.config.Location,
	}
	if format == ReceiptPDF {
		return s.receipts.RenderPDF(ctx, data)
	}
	return s.receipts.RenderHTML(ctx, data)
}

func (s *SaleService) resolveCustomer(ctx context.Context, customerID *uuid.UUID, name string) (*uuid.UUID, string, error) {
	if customerID == nil {
		return nil, name, nil
	}
	contact, err := s.contactRepo.FindByID(ctx, *customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, "", shared.NewDomainError("INVALID_CUSTOMER", "Customer not found")
		}
		return nil, "", err
	}
	if !contact.IsCustomer() || !contact.IsActive {
		return nil, "", shared.NewDomainError("INVALID_CUSTOMER", "Contact is not an active customer")
	}
	return &contact.ID, contact.Name, nil
}

func (s *SaleService) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if err := shared.PublishAndClear(ctx, s.events, aggregates...); err != nil {
		s.logger.Warn("Failed to publish sale events", zap.Error(err))
	}
}
