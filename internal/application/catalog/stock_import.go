package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	csvimport "github.com/pharmapos/backend/internal/infrastructure/import"
)

// ImportStockSheet applies a CSV stock count through BulkUpdateStock. Rows may name
// products by sku or product_id. Rejected rows are reported with their sheet row
// number in BulkRowError.Index, and nothing is written unless every row is valid.
func (s *ProductService) ImportStockSheet(ctx context.Context, actorID uuid.UUID, r io.Reader, dryRun bool) (*BulkStockUpdateResponse, error) {
	lines, parseErrs, err := csvimport.ParseStockSheet(r, catalog.MaxBulkStockRows)
	if err != nil {
		return nil, &BulkValidationError{Rows: []catalog.BulkRowError{{Index: -1, Field: "file", Message: err.Error()}}}
	}

	var rowErrs []catalog.BulkRowError
	for _, e := range parseErrs.Errors() {
		rowErrs = append(rowErrs, catalog.BulkRowError{Index: e.Row, Field: e.Column, Message: e.Message})
	}

	ids, err := s.resolveSKUs(ctx, lines)
	if err != nil {
		return nil, err
	}
	req := BulkStockUpdateRequest{Items: make([]BulkStockItem, 0, len(lines)), DryRun: dryRun}
	for _, line := range lines {
		id := line.ProductID
		if line.SKU != "" {
			var ok bool
			if id, ok = ids[line.SKU]; !ok {
				rowErrs = append(rowErrs, catalog.BulkRowError{
					Index: line.Line, Field: csvimport.ColumnSKU,
					Message: fmt.Sprintf("product with sku %s not found", line.SKU),
				})
				continue
			}
		}
		req.Items = append(req.Items, BulkStockItem{ProductID: id, Quantity: line.Quantity, Mode: line.Mode, Reason: line.Reason})
	}
	if len(rowErrs) > 0 {
		return nil, &BulkValidationError{Rows: rowErrs}
	}

	result, err := s.BulkUpdateStock(ctx, actorID, req)
	var bulkErr *BulkValidationError
	if errors.As(err, &bulkErr) {
		for i := range bulkErr.Rows {
			if idx := bulkErr.Rows[i].Index; idx >= 0 && idx < len(lines) {
				bulkErr.Rows[i].Index = lines[idx].Line
			}
		}
	}
	return result, err
}

// resolveSKUs looks up every distinct sku in the sheet. Unknown skus are left out of the map.
func (s *ProductService) resolveSKUs(ctx context.Context, lines []csvimport.StockLine) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID)
	seen := make(map[string]bool)
	for _, line := range lines {
		if line.SKU == "" || seen[line.SKU] {
			continue
		}
		seen[line.SKU] = true
		product, err := s.productRepo.FindBySKU(ctx, line.SKU)
		if errors.Is(err, shared.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids[line.SKU] = product.ID
	}
	return ids, nil
}
