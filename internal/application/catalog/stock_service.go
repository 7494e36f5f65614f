package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AdjustStock changes a product's stock by a signed delta with a reason
func (s *ProductService) AdjustStock(ctx context.Context, actorID, id uuid.UUID, req AdjustStockRequest) (*StockChangeResponse, error) {
	var (
		product       *catalog.Product
		before, after int
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		product, err = repos.ProductRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before, after, err = product.AdjustStock(req.Delta, catalog.MovementAdjustment)
		if err != nil {
			return err
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		return repos.MovementRepo().Save(ctx, catalog.NewStockMovement(
			product.ID, catalog.MovementAdjustment, before, after, "", req.Reason, &actorID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, product)
	return &StockChangeResponse{Product: s.toResponse(product), Before: before, After: after}, nil
}

// Restock receives new stock. A new batch number or expiry date replaces the current one.
func (s *ProductService) Restock(ctx context.Context, actorID, id uuid.UUID, req RestockRequest) (*StockChangeResponse, error) {
	var (
		product       *catalog.Product
		before, after int
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		product, err = repos.ProductRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before, after, err = product.RestoreStock(req.Quantity, catalog.MovementRestock)
		if err != nil {
			return err
		}
		if req.BatchNumber != "" || req.ExpiryDate != nil {
			batch, expiry := product.BatchNumber, product.ExpiryDate
			if req.BatchNumber != "" {
				batch = req.BatchNumber
			}
			if req.ExpiryDate != nil {
				expiry = req.ExpiryDate
			}
			if err := product.SetBatch(batch, expiry); err != nil {
				return err
			}
		}
		if req.CostPrice != nil {
			if err := product.SetPrices(*req.CostPrice, product.SellingPrice); err != nil {
				return err
			}
		}
		if err := repos.ProductRepo().Save(ctx, product); err != nil {
			return err
		}
		return repos.MovementRepo().Save(ctx, catalog.NewStockMovement(
			product.ID, catalog.MovementRestock, before, after, req.Reference, "Restock", &actorID))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, product)
	return &StockChangeResponse{Product: s.toResponse(product), Before: before, After: after}, nil
}

// BulkUpdateStock validates every row before writing anything. Any invalid row rejects
// the whole request with a BulkValidationError listing all failures. Valid requests are
// applied in one transaction, or only previewed when DryRun is set.
func (s *ProductService) BulkUpdateStock(ctx context.Context, actorID uuid.UUID, req BulkStockUpdateRequest) (*BulkStockUpdateResponse, error) {
	rows := make([]catalog.BulkStockRow, len(req.Items))
	ids := make([]uuid.UUID, 0, len(req.Items))
	for i, item := range req.Items {
		rows[i] = catalog.BulkStockRow{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Mode:      catalog.BulkStockMode(strings.ToLower(strings.TrimSpace(item.Mode))),
			Reason:    item.Reason,
		}
		if item.ProductID != uuid.Nil {
			ids = append(ids, item.ProductID)
		}
	}
	if len(rows) == 0 || len(rows) > catalog.MaxBulkStockRows {
		_, rowErrs := catalog.ValidateBulkStock(rows, nil)
		return nil, &BulkValidationError{Rows: rowErrs}
	}

	if req.DryRun {
		products, err := s.productRepo.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		results, rowErrs := catalog.ValidateBulkStock(rows, indexProducts(products))
		if len(rowErrs) > 0 {
			return nil, &BulkValidationError{Rows: rowErrs}
		}
		return &BulkStockUpdateResponse{DryRun: true, Applied: 0, Results: results}, nil
	}

	var (
		results []catalog.BulkStockResult
		changed []shared.AggregateRoot
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		products, err := repos.ProductRepo().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		byID := indexProducts(products)

		var rowErrs []catalog.BulkRowError
		results, rowErrs = catalog.ValidateBulkStock(rows, byID)
		if len(rowErrs) > 0 {
			return &BulkValidationError{Rows: rowErrs}
		}

		movements := make([]*catalog.StockMovement, 0, len(results))
		for i, res := range results {
			product := byID[res.ProductID]
			// Unchanged rows keep the product untouched but still record the count.
			if res.Before != res.After {
				if _, _, err := product.SetStock(res.After, catalog.MovementBulkUpdate); err != nil {
					return err
				}
				if err := repos.ProductRepo().Save(ctx, product); err != nil {
					return err
				}
				changed = append(changed, product)
			}
			movements = append(movements, catalog.NewStockMovement(
				product.ID, catalog.MovementBulkUpdate, res.Before, res.After, "bulk", rows[i].Reason, &actorID))
		}
		return repos.MovementRepo().SaveBatch(ctx, movements)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, changed...)
	s.logger.Info("Bulk stock update applied",
		zap.Int("rows", len(results)),
		zap.Int("changed", len(changed)),
		zap.String("user_id", actorID.String()))

	return &BulkStockUpdateResponse{DryRun: false, Applied: len(results), Results: results}, nil
}

// ListMovements returns the stock ledger of a product, newest first
func (s *ProductService) ListMovements(ctx context.Context, productID uuid.UUID, filter MovementListFilter) ([]catalog.StockMovement, int64, error) {
	if _, err := s.productRepo.FindByIDUnscoped(ctx, productID); err != nil {
		return nil, 0, err
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]interface{}),
	}
	if filter.Type != "" {
		domainFilter.Filters["type"] = filter.Type
	}
	if filter.From != nil {
		domainFilter.Filters["from"] = *filter.From
	}
	if filter.To != nil {
		domainFilter.Filters["to"] = filter.To.AddDate(0, 0, 1)
	}

	movements, err := s.movementRepo.FindByProduct(ctx, productID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.movementRepo.CountByProduct(ctx, productID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func indexProducts(products []catalog.Product) map[uuid.UUID]*catalog.Product {
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID
}
