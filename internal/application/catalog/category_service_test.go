package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates category", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		svc := NewCategoryService(categories, new(MockProductRepository))
		categories.On("ExistsByName", ctx, "Analgesics", (*uuid.UUID)(nil)).Return(false, nil)
		categories.On("Save", ctx, mock.AnythingOfType("*catalog.Category")).Return(nil)

		resp, err := svc.Create(ctx, CreateCategoryRequest{Name: "Analgesics", Color: "#ff0000"})
		require.NoError(t, err)
		assert.Equal(t, "Analgesics", resp.Name)
		assert.True(t, resp.IsActive)
		assert.Equal(t, int64(0), resp.ProductCount)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		svc := NewCategoryService(categories, new(MockProductRepository))
		categories.On("ExistsByName", ctx, "Analgesics", (*uuid.UUID)(nil)).Return(true, nil)

		_, err := svc.Create(ctx, CreateCategoryRequest{Name: "Analgesics"})
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
		categories.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestCategoryService_List(t *testing.T) {
	ctx := context.Background()
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	svc := NewCategoryService(categories, products)

	a, err := catalog.NewCategory("Antibiotics", "", "")
	require.NoError(t, err)
	b, err := catalog.NewCategory("Vitamins", "", "")
	require.NoError(t, err)

	categories.On("FindAll", ctx, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 50 && f.OrderBy == "name" && f.Filters["deleted"] == nil
	})).Return([]catalog.Category{*a, *b}, nil)
	categories.On("Count", ctx, mock.Anything).Return(int64(2), nil)
	products.On("CountsByCategory", ctx).Return(map[uuid.UUID]int64{a.ID: 7}, nil)

	out, total, err := svc.List(ctx, CategoryListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, out, 2)
	assert.Equal(t, int64(7), out[0].ProductCount)
	assert.Equal(t, int64(0), out[1].ProductCount)
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while products reference it", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		products := new(MockProductRepository)
		svc := NewCategoryService(categories, products)
		c, _ := catalog.NewCategory("Antibiotics", "", "")

		categories.On("FindByID", ctx, c.ID).Return(c, nil)
		products.On("CountByCategory", ctx, c.ID).Return(int64(3), nil)

		err := svc.Delete(ctx, c.ID)
		assert.ErrorIs(t, err, catalog.ErrCategoryHasProducts)
		categories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes empty category", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		products := new(MockProductRepository)
		svc := NewCategoryService(categories, products)
		c, _ := catalog.NewCategory("Empty", "", "")

		categories.On("FindByID", ctx, c.ID).Return(c, nil)
		products.On("CountByCategory", ctx, c.ID).Return(int64(0), nil)
		categories.On("Delete", ctx, c.ID).Return(nil)

		require.NoError(t, svc.Delete(ctx, c.ID))
		categories.AssertExpectations(t)
	})

	t.Run("missing category", func(t *testing.T) {
		categories := new(MockCategoryRepository)
		svc := NewCategoryService(categories, new(MockProductRepository))
		id := uuid.New()
		categories.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		assert.ErrorIs(t, svc.Delete(ctx, id), shared.ErrNotFound)
	})
}

func TestCategoryService_Restore(t *testing.T) {
	ctx := context.Background()
	categories := new(MockCategoryRepository)
	products := new(MockProductRepository)
	svc := NewCategoryService(categories, products)

	c, _ := catalog.NewCategory("Antibiotics", "", "")
	deleted := *c
	deleted.DeletedAt.Valid = true

	categories.On("FindByIDUnscoped", ctx, c.ID).Return(&deleted, nil)
	categories.On("ExistsByName", ctx, "Antibiotics", &c.ID).Return(false, nil)
	categories.On("Restore", ctx, c.ID).Return(nil)
	categories.On("FindByID", ctx, c.ID).Return(c, nil)
	products.On("CountByCategory", ctx, c.ID).Return(int64(0), nil)

	resp, err := svc.Restore(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, resp.DeletedAt)
	categories.AssertExpectations(t)
}
