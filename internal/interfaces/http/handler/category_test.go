package handler

import (
	"net/http"
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
)

type categoryFixture struct {
	categories *MockCategoryRepository
	products   *MockProductRepository
	handler    *CategoryHandler
}

func newCategoryFixture() *categoryFixture {
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	return &categoryFixture{
		categories: categories,
		products:   products,
		handler:    NewCategoryHandler(catalogapp.NewCategoryService(categories, products)),
	}
}

func (f *categoryFixture) engine() *gin.Engine {
	engine := newTestEngine(testClaims(uuid.New(), "category:read", "category:create", "category:update", "category:delete"))
	g := engine.Group("/catalog/categories")
	g.POST("", f.handler.Create)
	g.GET("", f.handler.List)
	g.GET("/:id", f.handler.GetByID)
	g.PUT("/:id", f.handler.Update)
	g.POST("/:id/activate", f.handler.Activate)
	g.POST("/:id/deactivate", f.handler.Deactivate)
	g.DELETE("/:id", f.handler.Delete)
	g.POST("/:id/restore", f.handler.Restore)
	return engine
}

func newTestCategory(t *testing.T, name string) *catalog.Category {
	t.Helper()
	category, err := catalog.NewCategory(name, "", "#22AA88")
	require.NoError(t, err)
	return category
}

func TestCategoryHandler_Create(t *testing.T) {
	f := newCategoryFixture()
	f.categories.On("ExistsByName", mock.Anything, "Analgesics", (*uuid.UUID)(nil)).Return(false, nil)
	f.categories.On("Save", mock.Anything, mock.AnythingOfType("*catalog.Category")).Return(nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/categories", map[string]string{
		"name":  "Analgesics",
		"color": "#22AA88",
	})

	assertStatus(t, w, http.StatusCreated)
	var got catalogapp.CategoryResponse
	decodeData(t, w, &got)
	assert.Equal(t, "Analgesics", got.Name)
	assert.Equal(t, "#22aa88", got.Color)
	assert.True(t, got.IsActive)
	assert.Zero(t, got.ProductCount)
	f.categories.AssertExpectations(t)
}

func TestCategoryHandler_CreateValidation(t *testing.T) {
	f := newCategoryFixture()

	w := doRequest(f.engine(), http.MethodPost, "/catalog/categories", map[string]string{"color": "teal"})

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	fields := make([]string, 0, len(errInfo.Details))
	for _, d := range errInfo.Details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "color")
	f.categories.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCategoryHandler_CreateDuplicateName(t *testing.T) {
	f := newCategoryFixture()
	f.categories.On("ExistsByName", mock.Anything, "Analgesics", (*uuid.UUID)(nil)).Return(true, nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/categories", map[string]string{"name": "Analgesics"})

	assertStatus(t, w, http.StatusConflict)
	assert.Equal(t, dto.ErrCodeAlreadyExists, decodeError(t, w).Code)
}

func TestCategoryHandler_GetByID(t *testing.T) {
	f := newCategoryFixture()
	category := newTestCategory(t, "Vitamins")
	f.categories.On("FindByID", mock.Anything, category.ID).Return(category, nil)
	f.products.On("CountByCategory", mock.Anything, category.ID).Return(int64(7), nil)

	w := doRequest(f.engine(), http.MethodGet, "/catalog/categories/"+category.ID.String(), nil)

	assertStatus(t, w, http.StatusOK)
	var got catalogapp.CategoryResponse
	decodeData(t, w, &got)
	assert.Equal(t, category.ID, got.ID)
	assert.Equal(t, int64(7), got.ProductCount)
}

func TestCategoryHandler_GetByIDErrors(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		f := newCategoryFixture()
		w := doRequest(f.engine(), http.MethodGet, "/catalog/categories/42", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeInvalidID, decodeError(t, w).Code)
	})

	t.Run("not found", func(t *testing.T) {
		f := newCategoryFixture()
		id := uuid.New()
		f.categories.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)
		w := doRequest(f.engine(), http.MethodGet, "/catalog/categories/"+id.String(), nil)
		assertStatus(t, w, http.StatusNotFound)
		assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, w).Code)
	})
}

func TestCategoryHandler_List(t *testing.T) {
	f := newCategoryFixture()
	a := newTestCategory(t, "Antibiotics")
	b := newTestCategory(t, "Vitamins")
	f.categories.On("FindAll", mock.Anything, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Page == 1 && filter.PageSize == 10 && filter.Filters["is_active"] == true
	})).Return([]catalog.Category{*a, *b}, nil)
	f.categories.On("Count", mock.Anything, mock.Anything).Return(int64(2), nil)
	f.products.On("CountsByCategory", mock.Anything).Return(map[uuid.UUID]int64{a.ID: 3}, nil)

	w := doRequest(f.engine(), http.MethodGet, "/catalog/categories?page=1&page_size=10&is_active=true", nil)

	assertStatus(t, w, http.StatusOK)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)

	var got []catalogapp.CategoryResponse
	decodeData(t, w, &got)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ProductCount)
	assert.Zero(t, got[1].ProductCount)
}

func TestCategoryHandler_ListRejectsBadPageSize(t *testing.T) {
	f := newCategoryFixture()

	w := doRequest(f.engine(), http.MethodGet, "/catalog/categories?page_size=500", nil)

	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
}

func TestCategoryHandler_Delete(t *testing.T) {
	t.Run("empty category", func(t *testing.T) {
		f := newCategoryFixture()
		category := newTestCategory(t, "Seasonal")
		f.categories.On("FindByID", mock.Anything, category.ID).Return(category, nil)
		f.products.On("CountByCategory", mock.Anything, category.ID).Return(int64(0), nil)
		f.categories.On("Delete", mock.Anything, category.ID).Return(nil)

		w := doRequest(f.engine(), http.MethodDelete, "/catalog/categories/"+category.ID.String(), nil)

		assertStatus(t, w, http.StatusNoContent)
		f.categories.AssertExpectations(t)
	})

	t.Run("category with products", func(t *testing.T) {
		f := newCategoryFixture()
		category := newTestCategory(t, "Antibiotics")
		f.categories.On("FindByID", mock.Anything, category.ID).Return(category, nil)
		f.products.On("CountByCategory", mock.Anything, category.ID).Return(int64(4), nil)

		w := doRequest(f.engine(), http.MethodDelete, "/catalog/categories/"+category.ID.String(), nil)

		assertStatus(t, w, http.StatusConflict)
		assert.Equal(t, dto.ErrCodeCategoryHasProducts, decodeError(t, w).Code)
		f.categories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestCategoryHandler_Deactivate(t *testing.T) {
	f := newCategoryFixture()
	category := newTestCategory(t, "Cosmetics")
	f.categories.On("FindByID", mock.Anything, category.ID).Return(category, nil)
	f.categories.On("Save", mock.Anything, category).Return(nil)
	f.products.On("CountByCategory", mock.Anything, category.ID).Return(int64(0), nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/categories/"+category.ID.String()+"/deactivate", nil)

	assertStatus(t, w, http.StatusOK)
	var got catalogapp.CategoryResponse
	decodeData(t, w, &got)
	assert.False(t, got.IsActive)
}

func TestCategoryHandler_RestoreLiveCategory(t *testing.T) {
	f := newCategoryFixture()
	category := newTestCategory(t, "Cosmetics")
	f.categories.On("FindByIDUnscoped", mock.Anything, category.ID).Return(category, nil)

	w := doRequest(f.engine(), http.MethodPost, "/catalog/categories/"+category.ID.String()+"/restore", nil)

	assertStatus(t, w, http.StatusUnprocessableEntity)
	assert.Equal(t, dto.ErrCodeInvalidState, decodeError(t, w).Code)
}
