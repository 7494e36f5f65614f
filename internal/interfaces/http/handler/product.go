package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/pharmapos/backend/internal/application/catalog"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
)

// maxImageUpload caps how much of a multipart image is read; the service applies the configured limit
const maxImageUpload = 10 << 20

// maxStockSheet caps an uploaded stock CSV
const maxStockSheet = 2 << 20

// ProductHandler handles product and stock endpoints
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// Create godoc
// @ID           createProduct
// @Summary      Create product
// @Description  Creates a product; a positive initial_stock is recorded as an initial stock movement
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Create(c.Request.Context(), actorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// GetByID godoc
// @ID           getProduct
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetBySKU godoc
// @ID           getProductBySku
// @Summary      Find product by SKU
// @Tags         products
// @Produce      json
// @Param        sku path string true "SKU"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/sku/{sku} [get]
func (h *ProductHandler) GetBySKU(c *gin.Context) {
	product, err := h.productService.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// GetByBarcode godoc
// @ID           getProductByBarcode
// @Summary      Find product by barcode
// @Description  Scanner lookup used at checkout
// @Tags         products
// @Produce      json
// @Param        barcode path string true "Barcode"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/barcode/{barcode} [get]
func (h *ProductHandler) GetByBarcode(c *gin.Context) {
	product, err := h.productService.GetByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List godoc
// @ID           listProducts
// @Summary      List products
// @Tags         products
// @Produce      json
// @Param        search query string false "Name, generic name, SKU or barcode"
// @Param        status query string false "Status" Enums(active, inactive)
// @Param        category_id query string false "Category" format(uuid)
// @Param        dosage_form query string false "Dosage form"
// @Param        stock_status query string false "Stock status" Enums(in_stock, low_stock, critical, out_of_stock)
// @Param        requires_prescription query bool false "Prescription-only filter"
// @Param        expiring_within_days query int false "Expiring within N days"
// @Param        deleted query bool false "List soft-deleted products instead"
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        order_by query string false "Sort field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	categoryID, ok := h.queryUUID(c, "category_id")
	if !ok {
		return
	}
	filter.CategoryID = categoryID

	products, total, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// Update godoc
// @ID           updateProduct
// @Summary      Update product
// @Description  Partial update; stock is changed only through the stock endpoints
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Changes"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Activate godoc
// @ID           activateProduct
// @Summary      Activate product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/activate [post]
func (h *ProductHandler) Activate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Deactivate godoc
// @ID           deactivateProduct
// @Summary      Deactivate product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/deactivate [post]
func (h *ProductHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete godoc
// @ID           deleteProduct
// @Summary      Delete product
// @Tags         products
// @Param        id path string true "Product ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore godoc
// @ID           restoreProduct
// @Summary      Restore product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/restore [post]
func (h *ProductHandler) Restore(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.productService.Restore(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// AdjustStock godoc
// @ID           adjustProductStock
// @Summary      Adjust stock
// @Description  Applies a signed correction with a mandatory reason
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.AdjustStockRequest true "Adjustment"
// @Success      200 {object} APIResponse[catalogapp.StockChangeResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/stock/adjust [post]
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.AdjustStockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.productService.AdjustStock(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Restock godoc
// @ID           restockProduct
// @Summary      Restock product
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body catalogapp.RestockRequest true "Delivery"
// @Success      200 {object} APIResponse[catalogapp.StockChangeResponse]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/stock/restock [post]
func (h *ProductHandler) Restock(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req catalogapp.RestockRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.productService.Restock(c.Request.Context(), actorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// BulkUpdateStock godoc
// @ID           bulkUpdateStock
// @Summary      Bulk stock update
// @Description  Validates every row first and applies nothing when any row fails. dry_run previews the result.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        request body catalogapp.BulkStockUpdateRequest true "Rows"
// @Success      200 {object} APIResponse[catalogapp.BulkStockUpdateResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/stock/bulk [post]
func (h *ProductHandler) BulkUpdateStock(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req catalogapp.BulkStockUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.productService.BulkUpdateStock(c.Request.Context(), actorID, req)
	if err != nil {
		var bulkErr *catalogapp.BulkValidationError
		if errors.As(err, &bulkErr) {
			h.ValidationError(c, "Bulk stock update rejected", bulkRowDetails(bulkErr.Rows))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportStockSheet godoc
// @ID           importStockSheet
// @Summary      Bulk stock update from CSV
// @Description  Multipart field "file" holds a CSV with sku or product_id, quantity, and optional mode and reason columns. Rejected rows are reported by sheet row number.
// @Tags         stock
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData file true  "Stock sheet"
// @Param        dry_run query    bool false "Validate and preview only"
// @Success      200 {object} APIResponse[catalogapp.BulkStockUpdateResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/stock/import [post]
func (h *ProductHandler) ImportStockSheet(c *gin.Context) {
	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Multipart field 'file' is required")
		return
	}
	if header.Size > maxStockSheet {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Stock sheet is too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer file.Close()

	dryRun := c.Query("dry_run") == "true"
	result, err := h.productService.ImportStockSheet(c.Request.Context(), actorID, io.LimitReader(file, maxStockSheet), dryRun)
	if err != nil {
		var bulkErr *catalogapp.BulkValidationError
		if errors.As(err, &bulkErr) {
			h.ValidationError(c, "Stock sheet rejected", bulkRowDetails(bulkErr.Rows))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func bulkRowDetails(rows []catalog.BulkRowError) []dto.ValidationDetail {
	details := make([]dto.ValidationDetail, 0, len(rows))
	for _, row := range rows {
		detail := dto.ValidationDetail{Field: row.Field, Message: row.Message}
		if row.Index >= 0 {
			index := row.Index
			detail.Index = &index
		}
		if row.ProductID != uuid.Nil {
			detail.ProductID = row.ProductID.String()
		}
		details = append(details, detail)
	}
	return details
}

// ListMovements godoc
// @ID           listStockMovements
// @Summary      Stock ledger
// @Description  Stock movements of one product, newest first
// @Tags         stock
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        type query string false "Movement type"
// @Param        from query string false "From date" format(date)
// @Param        to query string false "To date" format(date)
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]catalog.StockMovement]
// @Security     BearerAuth
// @Router       /catalog/products/{id}/movements [get]
func (h *ProductHandler) ListMovements(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var filter catalogapp.MovementListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	movements, total, err := h.productService.ListMovements(c.Request.Context(), id, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, movements, total, filter.Page, filter.PageSize)
}

// UploadImage godoc
// @ID           uploadProductImage
// @Summary      Upload product image
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        image formData file true "JPEG, PNG or WebP image"
// @Success      200 {object} APIResponse[catalogapp.ImageUploadResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/image [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "Multipart field 'image' is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded image")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageUpload+1))
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded image")
		return
	}
	if len(data) > maxImageUpload {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Image is too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	result, err := h.productService.UploadImage(c.Request.Context(), id, contentType, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImageURL godoc
// @ID           getProductImageUrl
// @Summary      Product image URL
// @Description  Returns a short-lived presigned download URL
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ImageUploadResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /catalog/products/{id}/image [get]
func (h *ProductHandler) ImageURL(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.productService.ImageURL(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
