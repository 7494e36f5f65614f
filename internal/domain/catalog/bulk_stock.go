package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxBulkStockRows caps the size of a single bulk stock update
const MaxBulkStockRows = 500

// BulkStockMode says how a bulk row's quantity is applied
type BulkStockMode string

const (
	BulkModeSet      BulkStockMode = "set"
	BulkModeAdd      BulkStockMode = "add"
	BulkModeSubtract BulkStockMode = "subtract"
)

// BulkStockRow is one requested change in a bulk stock update
type BulkStockRow struct {
	ProductID uuid.UUID
	Quantity  int
	Mode      BulkStockMode
	Reason    string
}

// BulkRowError describes why one row was rejected
type BulkRowError struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"product_id"`
	Field     string    `json:"field"`
	Message   string    `json:"message"`
}

// BulkStockResult is the before/after preview or outcome of one row
type BulkStockResult struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Before    int       `json:"before"`
	After     int       `json:"after"`
}

// TargetQuantity computes the resulting stock for a row applied to current
func (r BulkStockRow) TargetQuantity(current int) int {
	switch r.Mode {
	case BulkModeAdd:
		return current + r.Quantity
	case BulkModeSubtract:
		return current - r.Quantity
	default:
		return r.Quantity
	}
}

// ValidateBulkStock checks every row against the loaded products and returns all failures.
// products is keyed by id and holds only live (non-deleted) products.
func ValidateBulkStock(rows []BulkStockRow, products map[uuid.UUID]*Product) ([]BulkStockResult, []BulkRowError) {
	var errs []BulkRowError
	if len(rows) == 0 {
		return nil, []BulkRowError{{Index: -1, Field: "items", Message: "at least one row is required"}}
	}
	if len(rows) > MaxBulkStockRows {
		return nil, []BulkRowError{{Index: -1, Field: "items", Message: fmt.Sprintf("at most %d rows are allowed", MaxBulkStockRows)}}
	}

	seen := make(map[uuid.UUID]int, len(rows))
	results := make([]BulkStockResult, 0, len(rows))
	for i, row := range rows {
		rowErr := func(field, msg string) {
			errs = append(errs, BulkRowError{Index: i, ProductID: row.ProductID, Field: field, Message: msg})
		}

		if row.ProductID == uuid.Nil {
			rowErr("product_id", "product_id is required")
			continue
		}
		if first, dup := seen[row.ProductID]; dup {
			rowErr("product_id", fmt.Sprintf("duplicate of row %d", first))
			continue
		}
		seen[row.ProductID] = i

		switch row.Mode {
		case BulkModeSet, BulkModeAdd, BulkModeSubtract:
		default:
			rowErr("mode", "mode must be one of set, add, subtract")
			continue
		}
		if row.Quantity < 0 {
			rowErr("quantity", "quantity cannot be negative")
			continue
		}
		if row.Mode != BulkModeSet && row.Quantity == 0 {
			rowErr("quantity", "quantity must be positive for add and subtract")
			continue
		}

		product, ok := products[row.ProductID]
		if !ok {
			rowErr("product_id", "product not found")
			continue
		}
		target := row.TargetQuantity(product.StockQuantity)
		if target < 0 {
			rowErr("quantity", fmt.Sprintf("cannot subtract %d from stock of %d", row.Quantity, product.StockQuantity))
			continue
		}
		results = append(results, BulkStockResult{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Before:    product.StockQuantity,
			After:     target,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return results, nil
}
