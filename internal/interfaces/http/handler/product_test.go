package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/pharmapos/backend/internal/application/catalog"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type productFixture struct {
	products   *MockProductRepository
	categories *MockCategoryRepository
	movements  *MockMovementRepository
	handler    *ProductHandler
}

func newProductFixture() *productFixture {
	products := new(MockProductRepository)
	categories := new(MockCategoryRepository)
	movements := new(MockMovementRepository)
	service := catalogapp.NewProductService(
		products, categories, movements,
		catalogapp.NewNoOpTransactionScope(products, movements),
		nil,
		catalogapp.ProductServiceConfig{ExpiryWarnDays: 90},
		zap.NewNop(),
	)
	return &productFixture{
		products:   products,
		categories: categories,
		movements:  movements,
		handler:    NewProductHandler(service),
	}
}

func (f *productFixture) routes(engine *gin.Engine) *gin.Engine {
	g := engine.Group("/catalog/products")
	g.POST("", f.handler.Create)
	g.GET("", f.handler.List)
	g.GET("/barcode/:barcode", f.handler.GetByBarcode)
	g.GET("/sku/:sku", f.handler.GetBySKU)
	g.POST("/stock/bulk", f.handler.BulkUpdateStock)
	g.POST("/stock/import", f.handler.ImportStockSheet)
	g.GET("/:id", f.handler.GetByID)
	g.POST("/:id/stock/adjust", f.handler.AdjustStock)
	g.GET("/:id/movements", f.handler.ListMovements)
	g.POST("/:id/image", f.handler.UploadImage)
	g.GET("/:id/image", f.handler.ImageURL)
	return engine
}

func (f *productFixture) engine() *gin.Engine {
	return f.routes(newTestEngine(testClaims(uuid.New(), "product:read", "product:create", "stock:update")))
}

func newTestProduct(t *testing.T, sku string, stock int) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(sku, "Paracetamol 500mg", "tablet")
	require.NoError(t, err)
	product.StockQuantity = stock
	product.ReorderLevel = 10
	product.CriticalLevel = 3
	product.ClearDomainEvents()
	return product
}

func TestProductHandler_GetByBarcode(t *testing.T) {
	f := newProductFixture()
	product := newTestProduct(t, "PARA-500", 40)
	product.Barcode = "4006381333931"
	f.products.On("FindByBarcode", mock.Anything, "4006381333931").Return(product, nil)

	w := doRequest(f.engine(), http.MethodGet, "/catalog/products/barcode/4006381333931", nil)

	assertStatus(t, w, http.StatusOK)
	var got catalogapp.ProductResponse
	decodeData(t, w, &got)
	assert.Equal(t, product.ID, got.ID)
	assert.Equal(t, "PARA-500", got.SKU)
	assert.Equal(t, 40, got.StockQuantity)
	assert.Equal(t, catalog.StockStatus("in_stock"), got.StockStatus)
}

func TestProductHandler_GetBySKUNotFound(t *testing.T) {
	f := newProductFixture()
	f.products.On("FindBySKU", mock.Anything, "MISSING").Return(nil, shared.ErrNotFound)

	w := doRequest(f.engine(), http.MethodGet, "/catalog/products/sku/MISSING", nil)

	assertStatus(t, w, http.StatusNotFound)
	assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, w).Code)
}

func TestProductHandler_CreateRejectsBadSKU(t *testing.T) {
	f := newProductFixture()

	w := doRequest(f.engine(), http.MethodPost, "/catalog/products", map[string]any{
		"sku":  "PARA 500!",
		"name": "Paracetamol",
	})

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	require.NotEmpty(t, errInfo.Details)
	assert.Equal(t, "sku", errInfo.Details[0].Field)
	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductHandler_CreateRequiresAuthentication(t *testing.T) {
	f := newProductFixture()
	engine := f.routes(newTestEngine(nil))

	w := doRequest(engine, http.MethodPost, "/catalog/products", map[string]any{"sku": "PARA-500", "name": "Paracetamol"})

	assertStatus(t, w, http.StatusUnauthorized)
}

func TestProductHandler_ListRejectsBadCategoryID(t *testing.T) {
	f := newProductFixture()

	w := doRequest(f.engine(), http.MethodGet, "/catalog/products?category_id=drugs", nil)

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	require.Len(t, errInfo.Details, 1)
	assert.Equal(t, "category_id", errInfo.Details[0].Field)
}

func TestProductHandler_BulkUpdateStockDryRun(t *testing.T) {
	f := newProductFixture()
	a := newTestProduct(t, "AMOX-250", 20)
	b := newTestProduct(t, "IBU-200", 5)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{a.ID, b.ID}).Return([]catalog.Product{*a, *b}, nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/products/stock/bulk", map[string]any{
		"dry_run": true,
		"items": []map[string]any{
			{"product_id": a.ID, "quantity": 50, "mode": "set"},
			{"product_id": b.ID, "quantity": 2, "mode": "subtract"},
		},
	})

	assertStatus(t, w, http.StatusOK)
	var got catalogapp.BulkStockUpdateResponse
	decodeData(t, w, &got)
	assert.True(t, got.DryRun)
	assert.Zero(t, got.Applied)
	require.Len(t, got.Results, 2)
	assert.Equal(t, 20, got.Results[0].Before)
	assert.Equal(t, 50, got.Results[0].After)
	assert.Equal(t, 3, got.Results[1].After)
	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.movements.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
}

func TestProductHandler_BulkUpdateStockRejectsAllInvalidRows(t *testing.T) {
	f := newProductFixture()
	a := newTestProduct(t, "AMOX-250", 1)
	missing := uuid.New()
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{a.ID, missing}).Return([]catalog.Product{*a}, nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/products/stock/bulk", map[string]any{
		"dry_run": true,
		"items": []map[string]any{
			{"product_id": a.ID, "quantity": 5, "mode": "subtract"},
			{"product_id": missing, "quantity": 1, "mode": "add"},
		},
	})

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	require.Len(t, errInfo.Details, 2)

	require.NotNil(t, errInfo.Details[0].Index)
	assert.Equal(t, 0, *errInfo.Details[0].Index)
	assert.Equal(t, "quantity", errInfo.Details[0].Field)
	assert.Equal(t, a.ID.String(), errInfo.Details[0].ProductID)

	require.NotNil(t, errInfo.Details[1].Index)
	assert.Equal(t, 1, *errInfo.Details[1].Index)
	assert.Equal(t, "product_id", errInfo.Details[1].Field)
}

func TestProductHandler_BulkUpdateStockEmpty(t *testing.T) {
	f := newProductFixture()

	w := doRequest(f.engine(), http.MethodPost, "/catalog/products/stock/bulk", map[string]any{
		"items": []map[string]any{},
	})

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	require.Len(t, errInfo.Details, 1)
	assert.Nil(t, errInfo.Details[0].Index)
	assert.Equal(t, "items", errInfo.Details[0].Field)
}

func TestProductHandler_ListMovements(t *testing.T) {
	f := newProductFixture()
	product := newTestProduct(t, "PARA-500", 12)
	actor := uuid.New()
	movement := catalog.NewStockMovement(product.ID, catalog.MovementRestock, 2, 12, "GRN-1", "", &actor)
	f.products.On("FindByIDUnscoped", mock.Anything, product.ID).Return(product, nil)
	f.movements.On("FindByProduct", mock.Anything, product.ID, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters["type"] == "restock" && filter.OrderDir == "desc"
	})).Return([]catalog.StockMovement{*movement}, nil)
	f.movements.On("CountByProduct", mock.Anything, product.ID, mock.Anything).Return(int64(1), nil)

	w := doRequest(f.engine(), http.MethodGet, "/catalog/products/"+product.ID.String()+"/movements?type=restock", nil)

	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestProductHandler_UploadImageWithoutStorage(t *testing.T) {
	f := newProductFixture()
	engine := f.engine()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "pack.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/catalog/products/"+uuid.NewString()+"/image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assertStatus(t, w, http.StatusServiceUnavailable)
	assert.Equal(t, dto.ErrCodeFeatureUnavailable, decodeError(t, w).Code)
}

func TestProductHandler_UploadImageMissingField(t *testing.T) {
	f := newProductFixture()

	w := doRequest(f.engine(), http.MethodPost, "/catalog/products/"+uuid.NewString()+"/image", nil)

	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
}

func postStockSheet(t *testing.T, engine *gin.Engine, target, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "count.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestProductHandler_ImportStockSheetDryRun(t *testing.T) {
	f := newProductFixture()
	product := newTestProduct(t, "PARA-500", 40)
	f.products.On("FindBySKU", mock.Anything, "PARA-500").Return(product, nil)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{*product}, nil)

	w := postStockSheet(t, f.engine(), "/catalog/products/stock/import?dry_run=true",
		"sku,quantity,mode,reason\npara-500,12,add,delivery\n")

	assertStatus(t, w, http.StatusOK)
	var got catalogapp.BulkStockUpdateResponse
	decodeData(t, w, &got)
	assert.True(t, got.DryRun)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 40, got.Results[0].Before)
	assert.Equal(t, 52, got.Results[0].After)
	f.products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestProductHandler_ImportStockSheetRejectsRows(t *testing.T) {
	f := newProductFixture()
	f.products.On("FindBySKU", mock.Anything, "NOPE").Return(nil, shared.ErrNotFound)

	w := postStockSheet(t, f.engine(), "/catalog/products/stock/import", "sku,quantity\nnope,3\n")

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	require.Len(t, errInfo.Details, 1)
	require.NotNil(t, errInfo.Details[0].Index)
	assert.Equal(t, 2, *errInfo.Details[0].Index)
	assert.Equal(t, "sku", errInfo.Details[0].Field)
}

func TestProductHandler_ImportStockSheetMissingFile(t *testing.T) {
	f := newProductFixture()
	w := doRequest(f.engine(), http.MethodPost, "/catalog/products/stock/import", map[string]any{})
	assertStatus(t, w, http.StatusBadRequest)
}
