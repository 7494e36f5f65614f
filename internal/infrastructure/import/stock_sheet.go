package csvimport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Stock sheet columns
const (
	ColumnProductID = "product_id"
	ColumnSKU       = "sku"
	ColumnQuantity  = "quantity"
	ColumnMode      = "mode"
	ColumnReason    = "reason"
)

// DefaultStockMode applies when the mode column is absent or blank
const DefaultStockMode = "set"

// StockLine is one parsed row of a stock sheet. Exactly one of ProductID or SKU is set.
type StockLine struct {
	Line      int
	ProductID uuid.UUID
	SKU       string
	Quantity  int
	Mode      string
	Reason    string
}

// ParseStockSheet reads a stock count sheet with a quantity column and either a
// product_id or a sku column. File level problems are returned as the error;
// row problems are collected so every bad line can be reported at once.
func ParseStockSheet(r io.Reader, maxRows int) ([]StockLine, *ErrorCollection, error) {
	parser, err := NewCSVParser(r)
	if err != nil {
		return nil, nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, nil, err
	}
	if missing := parser.MissingHeaders(ColumnQuantity); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing column %s", ErrMissingHeader, strings.Join(missing, ", "))
	}
	if !parser.HasHeader(ColumnProductID) && !parser.HasHeader(ColumnSKU) {
		return nil, nil, fmt.Errorf("%w: a %s or %s column is required", ErrMissingHeader, ColumnSKU, ColumnProductID)
	}

	rows, errs := parser.ReadAllRows(maxRows)
	if len(rows) == 0 && !errs.HasErrors() {
		return nil, nil, ErrNoDataRows
	}

	lines := make([]StockLine, 0, len(rows))
	for _, row := range rows {
		line := StockLine{
			Line:   row.LineNumber,
			SKU:    strings.ToUpper(row.Get(ColumnSKU)),
			Mode:   strings.ToLower(row.Get(ColumnMode)),
			Reason: row.Get(ColumnReason),
		}
		if line.Mode == "" {
			line.Mode = DefaultStockMode
		}

		if raw := row.Get(ColumnProductID); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				errs.AddInvalid(row.LineNumber, ColumnProductID, ErrCodeInvalidType, "expected a UUID", raw)
				continue
			}
			line.ProductID = id
			line.SKU = ""
		} else if line.SKU == "" {
			errs.AddRequired(row.LineNumber, ColumnSKU)
			continue
		}

		raw := row.Get(ColumnQuantity)
		if raw == "" {
			errs.AddRequired(row.LineNumber, ColumnQuantity)
			continue
		}
		qty, err := strconv.Atoi(raw)
		if err != nil {
			errs.AddInvalid(row.LineNumber, ColumnQuantity, ErrCodeInvalidType, "expected a whole number", raw)
			continue
		}
		line.Quantity = qty
		lines = append(lines, line)
	}
	return lines, errs, nil
}
