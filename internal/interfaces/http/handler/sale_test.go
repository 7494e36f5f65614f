package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/pharmapos/backend/internal/application/sales"
	"github.com/pharmapos/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Only request validation is exercised here; the service is built without repositories.
func newSaleEngine(claimsUser *uuid.UUID) *gin.Engine {
	service := salesapp.NewSaleService(nil, nil, nil, nil, salesapp.SaleServiceConfig{}, nil)
	h := NewSaleHandler(service, nil)

	var engine *gin.Engine
	if claimsUser != nil {
		engine = newTestEngine(testClaims(*claimsUser, "sale:create", "sale:read"))
	} else {
		engine = newTestEngine(nil)
	}
	g := engine.Group("/sales")
	g.POST("", h.Checkout)
	g.GET("/:id/receipt", h.Receipt)
	g.POST("/:id/void", h.Void)
	return engine
}

func TestSaleHandler_CheckoutValidation(t *testing.T) {
	user := uuid.New()
	engine := newSaleEngine(&user)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"empty cart", map[string]any{"items": []any{}, "payment_method": "cash"}, "items"},
		{"unknown payment method", map[string]any{
			"items":          []map[string]any{{"product_id": uuid.New(), "quantity": 1}},
			"payment_method": "cheque",
		}, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(engine, http.MethodPost, "/sales", tt.body)

			assertStatus(t, w, http.StatusBadRequest)
			errInfo := decodeError(t, w)
			assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
			require.NotEmpty(t, errInfo.Details)
			assert.Equal(t, tt.field, errInfo.Details[0].Field)
		})
	}
}

func TestSaleHandler_CheckoutRequiresAuthentication(t *testing.T) {
	w := doRequest(newSaleEngine(nil), http.MethodPost, "/sales", map[string]any{"payment_method": "cash"})

	assertStatus(t, w, http.StatusUnauthorized)
}

func TestSaleHandler_ReceiptRejectsUnknownFormat(t *testing.T) {
	user := uuid.New()

	w := doRequest(newSaleEngine(&user), http.MethodGet, "/sales/"+uuid.NewString()+"/receipt?format=docx", nil)

	assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
}

func TestSaleHandler_VoidRequiresReason(t *testing.T) {
	user := uuid.New()

	w := doRequest(newSaleEngine(&user), http.MethodPost, "/sales/"+uuid.NewString()+"/void", map[string]string{})

	assertStatus(t, w, http.StatusBadRequest)
	errInfo := decodeError(t, w)
	require.NotEmpty(t, errInfo.Details)
	assert.Equal(t, "reason", errInfo.Details[0].Field)
}
