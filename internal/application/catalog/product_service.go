package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductServiceConfig holds the catalog settings the service needs
type ProductServiceConfig struct {
	ExpiryWarnDays      int
	DefaultReorderLevel int
	MaxImageBytes       int64
	ImageURLExpiry      time.Duration
	Location            *time.Location
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	movementRepo catalog.StockMovementRepository
	txScope      TransactionScope
	events       shared.EventPublisher
	images       ImageStorage
	config       ProductServiceConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	movementRepo catalog.StockMovementRepository,
	txScope TransactionScope,
	events shared.EventPublisher,
	config ProductServiceConfig,
	logger *zap.Logger,
) *ProductService {
	if config.ExpiryWarnDays <= 0 {
		config.ExpiryWarnDays = catalog.DefaultExpiryWarnDays
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		movementRepo: movementRepo,
		txScope:      txScope,
		events:       events,
		config:       config,
		logger:       logger,
		now:          time.Now,
	}
}

// SetImageStorage enables product image uploads
func (s *ProductService) SetImageStorage(images ImageStorage) {
	s.images = images
}

// Create creates a new product, recording an initial stock movement when stock is given
func (s *ProductService) Create(ctx context.Context, actorID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	req.SKU = normalizeSKU(req.SKU)
	if err := s.ensureUnique(ctx, req.SKU, req.Barcode, nil); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.SKU, req.Name, req.Unit)
	if err != nil {
		return nil, err
	}
	if err := product.Update(req.Name, req.GenericName, req.Manufacturer, req.Description); err != nil {
		return nil, err
	}
	if err := product.SetBarcode(req.Barcode); err != nil {
		return nil, err
	}
	product.SetCategory(req.CategoryID)
	if err := product.SetPharmacology(catalog.DosageForm(req.DosageForm), req.Strength, req.RequiresPrescription); err != nil {
		return nil, err
	}

	cost, selling := decimal.Zero, decimal.Zero
	if req.CostPrice != nil {
		cost = *req.CostPrice
	}
	if req.SellingPrice != nil {
		selling = *req.SellingPrice
	}
	if err := product.SetPrices(cost, selling); err != nil {
		return nil, err
	}

	reorder := s.config.DefaultReorderLevel
	if req.ReorderLevel != nil {
		reorder = *req.ReorderLevel
	}
	critical := -1
	if req.CriticalLevel != nil {
		critical = *req.CriticalLevel
	}
	if err := product.SetStockLevels(reorder, critical); err != nil {
		return nil, err
	}
	if err := product.SetBatch(req.BatchNumber, req.ExpiryDate); err != nil {
		return nil, err
	}

	// the setters above queue update events; a new product only announces its creation
	product.ClearDomainEvents()
	product.AddDomainEvent(catalog.NewProductCreatedEvent(product))

	var movement *catalog.StockMovement
	if req.InitialStock > 0 {
		before, after, err := product.SetStock(req.InitialStock, catalog.MovementInitial)
		if err != nil {
			return nil, err
		}
		movement = catalog.NewStockMovement(product.ID, catalog.MovementInitial, before, after, "", "Initial stock", &actorID)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		if movement != nil {
			return repos.MovementRepo().Save(ctx, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, product)
	s.logger.Info("Product created", zap.String("product_id", product.ID.String()), zap.String("sku", product.SKU))

	resp := s.toResponse(product)
	return &resp, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(product)
	return &resp, nil
}

// GetBySKU retrieves a product by its SKU
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(product)
	return &resp, nil
}

// GetByBarcode retrieves a product by barcode, used by POS scanners
func (s *ProductService) GetByBarcode(ctx context.Context, barcode string) (*ProductResponse, error) {
	product, err := s.productRepo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(product)
	return &resp, nil
}

// List retrieves a page of products
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
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
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.CategoryID != nil {
		domainFilter.Filters["category_id"] = *filter.CategoryID
	}
	if filter.DosageForm != "" {
		domainFilter.Filters["dosage_form"] = filter.DosageForm
	}
	if filter.StockStatus != "" {
		domainFilter.Filters["stock_status"] = filter.StockStatus
	}
	if filter.RequiresPrescription != nil {
		domainFilter.Filters["requires_prescription"] = *filter.RequiresPrescription
	}
	if filter.ExpiringWithinDays != nil {
		domainFilter.Filters["expiring_within_days"] = *filter.ExpiringWithinDays
	}
	if filter.Deleted {
		domainFilter.Filters["deleted"] = true
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = s.toResponse(&products[i])
	}
	return out, total, nil
}

// Update applies a partial update to a product
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sku, barcode := "", ""
	if req.SKU != nil {
		sku = normalizeSKU(*req.SKU)
	}
	if req.Barcode != nil {
		barcode = *req.Barcode
	}
	if err := s.ensureUnique(ctx, sku, barcode, &product.ID); err != nil {
		return nil, err
	}

	if req.SKU != nil {
		if err := product.SetSKU(*req.SKU); err != nil {
			return nil, err
		}
	}
	if req.Barcode != nil {
		if err := product.SetBarcode(*req.Barcode); err != nil {
			return nil, err
		}
	}

	name, generic, manufacturer, description := product.Name, product.GenericName, product.Manufacturer, product.Description
	if req.Name != nil {
		name = *req.Name
	}
	if req.GenericName != nil {
		generic = *req.GenericName
	}
	if req.Manufacturer != nil {
		manufacturer = *req.Manufacturer
	}
	if req.Description != nil {
		description = *req.Description
	}
	if err := product.Update(name, generic, manufacturer, description); err != nil {
		return nil, err
	}

	switch {
	case req.ClearCategory:
		product.SetCategory(nil)
	case req.CategoryID != nil:
		if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
		product.SetCategory(req.CategoryID)
	}

	form, strength, rx := product.DosageForm, product.Strength, product.RequiresPrescription
	if req.DosageForm != nil {
		form = catalog.DosageForm(*req.DosageForm)
	}
	if req.Strength != nil {
		strength = *req.Strength
	}
	if req.RequiresPrescription != nil {
		rx = *req.RequiresPrescription
	}
	if err := product.SetPharmacology(form, strength, rx); err != nil {
		return nil, err
	}

	if req.Unit != nil {
		if err := product.SetUnit(*req.Unit); err != nil {
			return nil, err
		}
	}

	if req.CostPrice != nil || req.SellingPrice != nil {
		cost, selling := product.CostPrice, product.SellingPrice
		if req.CostPrice != nil {
			cost = *req.CostPrice
		}
		if req.SellingPrice != nil {
			selling = *req.SellingPrice
		}
		if err := product.SetPrices(cost, selling); err != nil {
			return nil, err
		}
	}

	if req.ReorderLevel != nil || req.CriticalLevel != nil {
		reorder, critical := product.ReorderLevel, product.CriticalLevel
		if req.ReorderLevel != nil {
			reorder = *req.ReorderLevel
			if req.CriticalLevel == nil && critical > reorder {
				critical = -1
			}
		}
		if req.CriticalLevel != nil {
			critical = *req.CriticalLevel
		}
		if err := product.SetStockLevels(reorder, critical); err != nil {
			return nil, err
		}
	}

	if req.BatchNumber != nil || req.ExpiryDate != nil || req.ClearExpiry {
		batch, expiry := product.BatchNumber, product.ExpiryDate
		if req.BatchNumber != nil {
			batch = *req.BatchNumber
		}
		if req.ExpiryDate != nil {
			expiry = req.ExpiryDate
		}
		if req.ClearExpiry {
			expiry = nil
		}
		if err := product.SetBatch(batch, expiry); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	resp := s.toResponse(product)
	return &resp, nil
}

// Activate makes a product sellable again
func (s *ProductService) Activate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Product).Activate)
}

// Deactivate hides a product from the point of sale
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Product).Deactivate)
}

func (s *ProductService) changeStatus(ctx context.Context, id uuid.UUID, change func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)
	resp := s.toResponse(product)
	return &resp, nil
}

// Delete soft-deletes a product
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	product.MarkDeleted()
	s.publish(ctx, product)
	s.logger.Info("Product deleted", zap.String("product_id", id.String()), zap.String("sku", product.SKU))
	return nil
}

// Restore brings back a soft-deleted product when its SKU and barcode are still free
func (s *ProductService) Restore(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByIDUnscoped(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsDeleted() {
		return nil, shared.NewDomainError("NOT_DELETED", "Product is not deleted")
	}
	if err := s.ensureUnique(ctx, product.SKU, product.Barcode, &product.ID); err != nil {
		return nil, err
	}
	if err := s.productRepo.Restore(ctx, id); err != nil {
		return nil, err
	}

	restored, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	restored.AddDomainEvent(catalog.NewProductUpdatedEvent(restored))
	s.publish(ctx, restored)

	resp := s.toResponse(restored)
	return &resp, nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func (s *ProductService) ensureUnique(ctx context.Context, sku, barcode string, excludeID *uuid.UUID) error {
	if sku != "" {
		exists, err := s.productRepo.ExistsBySKU(ctx, sku, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
		}
	}
	if barcode != "" {
		exists, err := s.productRepo.ExistsByBarcode(ctx, barcode, excludeID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("ALREADY_EXISTS", "Product with this barcode already exists")
		}
	}
	return nil
}

func (s *ProductService) ensureCategory(ctx context.Context, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(ctx, *categoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return err
	}
	return nil
}

func (s *ProductService) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	if err := shared.PublishAndClear(ctx, s.events, aggregates...); err != nil {
		s.logger.Warn("Failed to publish product events", zap.Error(err))
	}
}

func (s *ProductService) toResponse(p *catalog.Product) ProductResponse {
	return ToProductResponse(p, s.now().In(s.config.Location), s.config.ExpiryWarnDays)
}
