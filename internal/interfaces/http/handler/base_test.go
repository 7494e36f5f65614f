package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/catalog"
	"github.com/pharmapos/backend/internal/domain/shared"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"github.com/pharmapos/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.SuccessWithMeta(c, []string{"item1", "item2"}, 45, 2, 20)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestBaseHandlerCreated(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Created(c, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestBaseHandlerNoContent(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.DELETE("/test", func(c *gin.Context) {
		h.NoContent(c)
	})

	w := doRequest(router, http.MethodDelete, "/test", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "BadRequest",
			method:       func(h *BaseHandler, c *gin.Context) { h.BadRequest(c, "Invalid request") },
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
		{
			name:         "NotFound",
			method:       func(h *BaseHandler, c *gin.Context) { h.NotFound(c, "Resource not found") },
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "Unauthorized",
			method:       func(h *BaseHandler, c *gin.Context) { h.Unauthorized(c, "Not authenticated") },
			expectedCode: http.StatusUnauthorized,
			expectedErr:  dto.ErrCodeUnauthorized,
		},
		{
			name:         "InternalError",
			method:       func(h *BaseHandler, c *gin.Context) { h.InternalError(c, "Server error") },
			expectedCode: http.StatusInternalServerError,
			expectedErr:  dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			tt.method(h, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, tt.expectedErr, errInfo.Code)
			assert.NotZero(t, errInfo.Timestamp)
		})
	}
}

func TestBaseHandlerErrorWithRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(middleware.RequestIDKey, "test-request-123")

	h.BadRequest(c, "Invalid request")

	assert.Equal(t, "test-request-123", decodeError(t, w).RequestID)
}

func TestBaseHandlerValidationError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set(middleware.RequestIDKey, "val-req-456")

	h.ValidationError(c, "Request validation failed", []dto.ValidationDetail{
		{Field: "email", Message: "Invalid format"},
		{Field: "name", Message: "Required"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	assert.Equal(t, "val-req-456", errInfo.RequestID)
	assert.Len(t, errInfo.Details, 2)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"already exists", shared.ErrAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"invalid input", shared.ErrInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, dto.ErrCodeForbidden},
		{"invalid state", shared.ErrInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"concurrency conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"insufficient stock", shared.ErrInsufficientStock, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock},
		{"category has products", catalog.ErrCategoryHasProducts, http.StatusConflict, dto.ErrCodeCategoryHasProducts},
		{"already active maps to invalid state", shared.NewDomainError("ALREADY_ACTIVE", "x"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"storage disabled", shared.NewDomainError("STORAGE_DISABLED", "x"), http.StatusServiceUnavailable, dto.ErrCodeFeatureUnavailable},
		{"image too large", shared.NewDomainError("IMAGE_TOO_LARGE", "x"), http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge},
		{"unlisted invalid code", shared.NewDomainError("INVALID_SKU", "x"), http.StatusBadRequest, "ERR_INVALID_SKU"},
		{"wrapped domain error", fmt.Errorf("loading product: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedErr, decodeError(t, w).Code)
		})
	}
}

func TestBaseHandlerHandleErrorHidesInternalErrors(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, fmt.Errorf("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeInternal, errInfo.Code)
	assert.Equal(t, "An unexpected error occurred", errInfo.Message)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestBaseHandlerHandleNilError(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerPathUUID(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.GET("/items/:id", func(c *gin.Context) {
		id, ok := h.pathUUID(c, "id")
		if !ok {
			return
		}
		h.Success(c, id)
	})

	t.Run("valid", func(t *testing.T) {
		id := uuid.New()
		w := doRequest(router, http.MethodGet, "/items/"+id.String(), nil)
		assertStatus(t, w, http.StatusOK)
		var got uuid.UUID
		decodeData(t, w, &got)
		assert.Equal(t, id, got)
	})

	t.Run("invalid", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/items/not-a-uuid", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, dto.ErrCodeInvalidID, decodeError(t, w).Code)
	})
}

func TestBaseHandlerQueryUUID(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.GET("/items", func(c *gin.Context) {
		id, ok := h.queryUUID(c, "category_id")
		if !ok {
			return
		}
		h.Success(c, gin.H{"present": id != nil})
	})

	w := doRequest(router, http.MethodGet, "/items", nil)
	assertStatus(t, w, http.StatusOK)
	var got map[string]bool
	decodeData(t, w, &got)
	assert.False(t, got["present"])

	w = doRequest(router, http.MethodGet, "/items?category_id="+uuid.NewString(), nil)
	assertStatus(t, w, http.StatusOK)
	decodeData(t, w, &got)
	assert.True(t, got["present"])

	w = doRequest(router, http.MethodGet, "/items?category_id=abc", nil)
	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	require.Len(t, errInfo.Details, 1)
	assert.Equal(t, "category_id", errInfo.Details[0].Field)
}

func TestBaseHandlerCurrentUserID(t *testing.T) {
	h := &BaseHandler{}
	handler := func(c *gin.Context) {
		id, ok := h.currentUserID(c)
		if !ok {
			return
		}
		h.Success(c, id)
	}

	t.Run("anonymous", func(t *testing.T) {
		engine := newTestEngine(nil)
		engine.GET("/me", handler)
		w := doRequest(engine, http.MethodGet, "/me", nil)
		assertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("authenticated", func(t *testing.T) {
		userID := uuid.New()
		engine := newTestEngine(testClaims(userID))
		engine.GET("/me", handler)
		w := doRequest(engine, http.MethodGet, "/me", nil)
		assertStatus(t, w, http.StatusOK)
		var got uuid.UUID
		decodeData(t, w, &got)
		assert.Equal(t, userID, got)
	})

	t.Run("malformed subject", func(t *testing.T) {
		claims := testClaims(uuid.New())
		claims.UserID = "nobody"
		engine := newTestEngine(claims)
		engine.GET("/me", handler)
		w := doRequest(engine, http.MethodGet, "/me", nil)
		assertStatus(t, w, http.StatusUnauthorized)
		assert.Equal(t, dto.ErrCodeTokenInvalid, decodeError(t, w).Code)
	})
}
